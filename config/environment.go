package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

const (
	placeholderPrefix = "${"
	placeholderSuffix = "}"
	escapedPrefix     = `\${`
	defaultSeparator  = ":"
)

// UnresolvablePlaceholderError 表示占位符既没有配置值也没有默认值
type UnresolvablePlaceholderError struct {
	Placeholder string
	Text        string
}

func (e *UnresolvablePlaceholderError) Error() string {
	return fmt.Sprintf("config: could not resolve placeholder %q in value %q", e.Placeholder, e.Text)
}

// Environment 在配置之上解析 ${key:default} 占位符。
// 键使用 "." 分隔，第一个 ":" 之后是默认值；占位符可以嵌套，\${ 输出字面量 ${。
type Environment struct {
	config Configuration
}

// NewEnvironment 创建环境
func NewEnvironment(config Configuration) *Environment {
	return &Environment{config: config}
}

// Configuration 返回底层配置
func (e *Environment) Configuration() Configuration {
	return e.config
}

// ResolvePlaceholders 解析占位符，无法解析的占位符原样保留
func (e *Environment) ResolvePlaceholders(text string) string {
	out, _ := e.parse(text, false, map[string]bool{})
	return out
}

// ResolveRequiredPlaceholders 解析占位符，无法解析时返回 UnresolvablePlaceholderError。
// text 恰好是一个占位符时返回配置中的原始值（数字、列表、map 等）。
func (e *Environment) ResolveRequiredPlaceholders(text string) (any, error) {
	if strings.HasPrefix(text, placeholderPrefix) {
		if end := findPlaceholderEnd(text, len(placeholderPrefix)); end == len(text)-1 {
			v, _, err := e.resolve(text[len(placeholderPrefix):end], text, true, map[string]bool{})
			return v, err
		}
	}
	return e.parse(text, true, map[string]bool{})
}

func (e *Environment) parse(text string, required bool, visiting map[string]bool) (string, error) {
	if !strings.Contains(text, placeholderPrefix) {
		return text, nil
	}

	var b strings.Builder
	for i := 0; i < len(text); {
		rest := text[i:]
		if strings.HasPrefix(rest, escapedPrefix) {
			b.WriteString(placeholderPrefix)
			i += len(escapedPrefix)
			continue
		}
		if !strings.HasPrefix(rest, placeholderPrefix) {
			b.WriteByte(text[i])
			i++
			continue
		}

		end := findPlaceholderEnd(text, i+len(placeholderPrefix))
		if end < 0 {
			// 未闭合，按字面量处理
			b.WriteString(rest)
			break
		}
		v, found, err := e.resolve(text[i+len(placeholderPrefix):end], text, required, visiting)
		if err != nil {
			return "", err
		}
		if found {
			b.WriteString(stringify(v))
		} else {
			b.WriteString(text[i : end+1])
		}
		i = end + 1
	}
	return b.String(), nil
}

// resolve 解析一个占位符的内容（不含 ${ 和 }）
func (e *Environment) resolve(content, text string, required bool, visiting map[string]bool) (any, bool, error) {
	if visiting[content] {
		return nil, false, fmt.Errorf("config: circular placeholder reference %q in value %q", content, text)
	}
	visiting[content] = true
	defer delete(visiting, content)

	content, err := e.parse(content, required, visiting)
	if err != nil {
		return nil, false, err
	}

	key, def, hasDefault := strings.Cut(content, defaultSeparator)
	if v, ok := e.config.Lookup(strings.TrimSpace(key)); ok {
		if s, isString := v.(string); isString {
			resolved, err := e.parse(s, required, visiting)
			return resolved, err == nil, err
		}
		return v, true, nil
	}
	if hasDefault {
		resolved, err := e.parse(def, required, visiting)
		return resolved, err == nil, err
	}
	if required {
		return nil, false, &UnresolvablePlaceholderError{Placeholder: key, Text: text}
	}
	return nil, false, nil
}

// findPlaceholderEnd 返回与 start 之前的 ${ 匹配的 } 的位置，没有时返回 -1
func findPlaceholderEnd(text string, start int) int {
	depth := 0
	for i := start; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], placeholderPrefix):
			depth++
			i += len(placeholderPrefix)
		case strings.HasPrefix(text[i:], placeholderSuffix):
			if depth == 0 {
				return i
			}
			depth--
			i++
		default:
			i++
		}
	}
	return -1
}

func stringify(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
