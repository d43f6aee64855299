// Package expr 求值 value 标签中的 #{...} 表达式。
//
// #{...} 内是对配置树求值的 JMESPath 表达式，#{@name} 返回名为 name 的 bean，
// #{@name|expr} 再对该 bean 求值 expr。${...} 占位符原样保留，由 config.Environment 处理。
package expr

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmespath/go-jmespath"
	"github.com/spf13/cast"
)

const (
	exprPrefix   = "#{"
	escapedExpr  = `\#{`
	beanPrefix   = "@"
	beanPipe     = "|"
	defaultCache = 256
)

// Engine 实现 di.ExpressionEngine
type Engine struct {
	config config.Configuration
	beans  atomic.Pointer[di.BeanLookup]
	cache  *lru.Cache[string, *jmespath.JMESPath]
}

// Option 配置 Engine
type Option func(*options)

type options struct {
	beans     di.BeanLookup
	cacheSize int
}

// WithBeans 绑定 #{@name} 使用的 bean 查找
func WithBeans(lookup di.BeanLookup) Option {
	return func(o *options) {
		o.beans = lookup
	}
}

// WithCacheSize 设置已编译表达式的缓存大小
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// New 创建表达式引擎；cfg 可以为 nil，此时配置树为空
func New(cfg config.Configuration, opts ...Option) (*Engine, error) {
	o := options{cacheSize: defaultCache}
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := lru.New[string, *jmespath.JMESPath](o.cacheSize)
	if err != nil {
		return nil, err
	}
	e := &Engine{config: cfg, cache: cache}
	if o.beans != nil {
		e.Bind(o.beans)
	}
	return e, nil
}

// Bind 设置 bean 查找，容器创建之后调用
func (e *Engine) Bind(lookup di.BeanLookup) {
	e.beans.Store(&lookup)
}

// Evaluate 求值模板。模板恰好是一个 #{...} 时返回表达式的原始结果，
// 否则各段按文本拼接。
func (e *Engine) Evaluate(template string) (any, error) {
	segments, err := split(template)
	if err != nil {
		return nil, &di.ExpressionEvaluationError{Expr: template, Err: err}
	}

	if len(segments) == 1 && segments[0].expr {
		v, err := e.eval(segments[0].text)
		if err != nil {
			return nil, &di.ExpressionEvaluationError{Expr: template, Err: err}
		}
		return v, nil
	}

	var b strings.Builder
	for _, seg := range segments {
		if !seg.expr {
			b.WriteString(seg.text)
			continue
		}
		v, err := e.eval(seg.text)
		if err != nil {
			return nil, &di.ExpressionEvaluationError{Expr: template, Err: err}
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			s = fmt.Sprint(v)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (e *Engine) eval(source string) (any, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}

	if strings.HasPrefix(source, beanPrefix) {
		name, path, piped := strings.Cut(source[len(beanPrefix):], beanPipe)
		bean, err := e.bean(strings.TrimSpace(name))
		if err != nil || !piped {
			return bean, err
		}
		return e.search(strings.TrimSpace(path), bean)
	}

	var data any = map[string]any{}
	if e.config != nil {
		data = e.config.GetAll()
	}
	return e.search(source, data)
}

func (e *Engine) bean(name string) (any, error) {
	lookup := e.beans.Load()
	if lookup == nil {
		return nil, fmt.Errorf("bean reference @%s used without a bean lookup", name)
	}
	return (*lookup).GetByName(name)
}

func (e *Engine) search(source string, data any) (any, error) {
	compiled, ok := e.cache.Get(source)
	if !ok {
		c, err := jmespath.Compile(source)
		if err != nil {
			return nil, err
		}
		e.cache.Add(source, c)
		compiled = c
	}
	return compiled.Search(data)
}

type segment struct {
	text string
	expr bool
}

// split 把模板切分为文本段和 #{...} 段，表达式内的 {} 需要配对
func split(template string) ([]segment, error) {
	var out []segment
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, segment{text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(template); {
		rest := template[i:]
		switch {
		case strings.HasPrefix(rest, escapedExpr):
			text.WriteString(exprPrefix)
			i += len(escapedExpr)
		case strings.HasPrefix(rest, exprPrefix):
			start := i + len(exprPrefix)
			end := closingBrace(template, start)
			if end < 0 {
				return nil, fmt.Errorf("unterminated expression at offset %d", i)
			}
			flush()
			out = append(out, segment{text: template[start:end], expr: true})
			i = end + 1
		default:
			text.WriteByte(template[i])
			i++
		}
	}
	flush()
	if len(out) == 0 {
		out = append(out, segment{})
	}
	return out, nil
}

// closingBrace 返回与 start 前的 { 配对的 } 位置，跳过引号内的内容
func closingBrace(s string, start int) int {
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
