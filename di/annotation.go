package di

import (
	"fmt"
	"reflect"
	"strings"
)

// 结构体标签键，每个策略一个
const (
	TagResource  = "resource"
	TagQualifier = "qualifier"
	TagAutowired = "autowired"
	TagNames     = "beannames"
	TagBeans     = "beans"
	TagValue     = "value"
	TagLazy      = "lazy"
	// TagLegacy 是 qualifier 的简写：`di:"name,?"`
	TagLegacy = "di"
)

// LazyFlag 记录成员或方法上的 lazy 声明
type LazyFlag int

const (
	LazyUnset LazyFlag = iota
	LazyOn
	LazyOff
)

// override 返回更具体的一层声明：当前层未声明时沿用外层
func (f LazyFlag) override(outer LazyFlag) LazyFlag {
	if f != LazyUnset {
		return f
	}
	return outer
}

func (f LazyFlag) enabled() bool { return f == LazyOn }

// Annotation 是一个成员上某个策略的声明
type Annotation struct {
	Strategy Strategy
	// Name 是 Resource/Qualifier 的显式名称
	Name     string
	Required bool
	Exclude  []string
	Specify  []string
	// Expr 是 Value 的表达式原文
	Expr string
}

// Resource 按名称注入；name 为空时使用成员名
func Resource(name string) Annotation {
	return Annotation{Strategy: StrategyResource, Name: name, Required: true}
}

// Qualifier 与 Resource 相同，但可以是可选的
func Qualifier(name string, required bool) Annotation {
	return Annotation{Strategy: StrategyQualifier, Name: name, Required: required}
}

// Autowired 按类型注入
func Autowired(required bool) Annotation {
	return Annotation{Strategy: StrategyAutowired, Required: required}
}

// NameCollector 注入某类型全部 bean 的名称
func NameCollector(exclude ...string) Annotation {
	return Annotation{Strategy: StrategyNameCollector, Required: true, Exclude: exclude}
}

// InstanceCollector 注入某类型的 bean 实例集合；specify 非空时只收集指定的 bean
func InstanceCollector(specify []string, exclude ...string) Annotation {
	return Annotation{Strategy: StrategyInstanceCollector, Required: true, Specify: specify, Exclude: exclude}
}

// Value 注入表达式的求值结果
func Value(expr string) Annotation {
	return Annotation{Strategy: StrategyValue, Required: true, Expr: expr}
}

// tagKey 返回策略对应的标签键
func tagKey(s Strategy) string {
	switch s {
	case StrategyResource:
		return TagResource
	case StrategyQualifier:
		return TagQualifier
	case StrategyAutowired:
		return TagAutowired
	case StrategyNameCollector:
		return TagNames
	case StrategyInstanceCollector:
		return TagBeans
	default:
		return TagValue
	}
}

// parseFieldTags 解析字段标签上的全部策略声明（按优先级排列）和 lazy 声明
func parseFieldTags(tag reflect.StructTag) ([]Annotation, LazyFlag, error) {
	var anns []Annotation
	for _, s := range Strategies() {
		raw, ok := tag.Lookup(tagKey(s))
		if !ok && s == StrategyQualifier {
			raw, ok = tag.Lookup(TagLegacy)
		}
		if !ok {
			continue
		}
		ann, err := parseAnnotation(s, raw)
		if err != nil {
			return nil, LazyUnset, err
		}
		anns = append(anns, ann)
	}

	lazy, err := parseLazy(tag)
	if err != nil {
		return nil, LazyUnset, err
	}
	return anns, lazy, nil
}

func parseLazy(tag reflect.StructTag) (LazyFlag, error) {
	raw, ok := tag.Lookup(TagLazy)
	if !ok {
		return LazyUnset, nil
	}
	switch strings.TrimSpace(raw) {
	case "", "true":
		return LazyOn, nil
	case "false":
		return LazyOff, nil
	default:
		return LazyUnset, fmt.Errorf("di: invalid lazy tag %q", raw)
	}
}

// parseAnnotation 解析单个策略标签
//
//	resource:"name"
//	qualifier:"name,optional"   di:"name,?"
//	autowired:"optional"
//	beannames:"exclude=a|b"
//	beans:"specify=a|b,exclude=c"
//	value:"${server.port:8080}"
func parseAnnotation(s Strategy, raw string) (Annotation, error) {
	ann := Annotation{Strategy: s, Required: true}

	if s == StrategyValue {
		// 表达式可能包含逗号，不做切分
		ann.Expr = raw
		return ann, nil
	}

	parts := strings.Split(raw, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "optional" || part == "?":
			ann.Required = false
		case part == "required":
			ann.Required = true
		case strings.HasPrefix(part, "required="):
			ann.Required = strings.TrimPrefix(part, "required=") != "false"
		case strings.HasPrefix(part, "exclude="):
			ann.Exclude = splitNames(strings.TrimPrefix(part, "exclude="))
		case strings.HasPrefix(part, "specify="):
			ann.Specify = splitNames(strings.TrimPrefix(part, "specify="))
		case i == 0 && (s == StrategyResource || s == StrategyQualifier):
			ann.Name = part
		default:
			return ann, fmt.Errorf("di: unknown option %q in %s tag", part, tagKey(s))
		}
	}

	if s == StrategyResource && !ann.Required {
		return ann, fmt.Errorf("di: resource injection is always required, use qualifier for optional names")
	}
	if len(ann.Specify) > 0 && s != StrategyInstanceCollector {
		return ann, fmt.Errorf("di: specify is only valid on %s", TagBeans)
	}
	if len(ann.Exclude) > 0 && !(s == StrategyNameCollector || s == StrategyInstanceCollector) {
		return ann, fmt.Errorf("di: exclude is only valid on collectors")
	}
	return ann, nil
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, "|") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
