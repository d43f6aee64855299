package di

import (
	"fmt"
	"reflect"
	"strconv"
)

// PropertyValue 是字段注入点及其引用
type PropertyValue struct {
	Member   *Member
	Strategy Strategy
	Ref      Reference
}

// SetterValue 是 setter 方法及其各参数的引用
type SetterValue struct {
	Member   *Member
	Strategy Strategy
	Refs     []Reference
}

// ConstructorArgs 是构造函数各参数的引用
type ConstructorArgs struct {
	Fn   reflect.Value
	Refs []Reference
}

// BuildReference 按 ann 声明的策略为成员构建引用。
// outer 是外层（方法或构造函数）的 lazy 声明，成员自身的声明优先。
func BuildReference(name string, typ reflect.Type, ann Annotation, lazy, outer LazyFlag) (Reference, error) {
	ref := Reference{Type: typ, Required: ann.Required}
	ref.Lazy = lazy.override(outer).enabled()

	// Lazy[T] 句柄按 T 解析
	if isLazyHandle(typ) {
		ref.Type = lazyTarget(typ)
		ref.Lazy = true
	}

	switch ann.Strategy {
	case StrategyResource, StrategyQualifier:
		if ann.Name != "" {
			ref.Mode = ModeByName
			ref.Name = ann.Name
		} else {
			ref.Mode = ModeAutoNameFirst
			ref.Name = name
		}
		if ann.Strategy == StrategyResource {
			ref.Required = true
		}
	case StrategyAutowired:
		ref.Mode = ModeAutoTypeFirst
		ref.Name = name
	case StrategyNameCollector:
		elem, err := nameCollectorElem(ref.Type)
		if err != nil {
			return ref, err
		}
		ref.Mode = ModeNameCollector
		ref.Elem = elem
		ref.Exclude = ann.Exclude
	case StrategyInstanceCollector:
		elem, err := instanceCollectorElem(ref.Type)
		if err != nil {
			return ref, err
		}
		ref.Mode = ModeInstanceCollector
		ref.Elem = elem
		ref.Specify = ann.Specify
		ref.Exclude = ann.Exclude
	case StrategyValue:
		ref.Mode = ModeValue
		ref.Name = ann.Expr
		if ref.Name == "" {
			ref.Name = name
		}
	default:
		return ref, fmt.Errorf("di: unknown strategy %d", ann.Strategy)
	}
	return ref, ref.Validate()
}

// BuildPropertyValues 为字段类注入点构建引用，顺序与分类结果一致
func BuildPropertyValues(el *InjectionElement) ([]PropertyValue, error) {
	var out []PropertyValue
	err := el.Each(func(s Strategy, m *Member) error {
		ann, _ := m.Annotation(s)
		ref, err := BuildReference(m.Name, m.Type, ann, m.Lazy, LazyUnset)
		if err != nil {
			return fmt.Errorf("%v.%s: %w", el.Type, m.Display, err)
		}
		out = append(out, PropertyValue{Member: m, Strategy: s, Ref: ref})
		return nil
	})
	return out, err
}

// BuildSetterValues 为方法类注入点构建引用。
// 除 Autowired 外的策略要求方法只有一个参数；
// Autowired 方法的参数可以各自声明策略，未声明的参数按类型优先解析并沿用方法的 required。
func BuildSetterValues(el *InjectionElement) ([]SetterValue, error) {
	var out []SetterValue
	err := el.Each(func(s Strategy, m *Member) error {
		ann, _ := m.Annotation(s)
		if s.singleArgument() && len(m.Params) != 1 {
			return fmt.Errorf("di: %v.%s: %s method must take exactly one argument, got %d",
				el.Type, m.Method, s, len(m.Params))
		}

		refs := make([]Reference, len(m.Params))
		for i, p := range m.Params {
			pann := ann
			if s == StrategyAutowired && p.Annotation != nil {
				pann = *p.Annotation
			}
			ref, err := BuildReference(p.Name, p.Type, pann, p.Lazy, m.Lazy)
			if err != nil {
				return fmt.Errorf("%v.%s param %d: %w", el.Type, m.Method, i, err)
			}
			refs[i] = ref
		}
		out = append(out, SetterValue{Member: m, Strategy: s, Refs: refs})
		return nil
	})
	return out, err
}

// BuildConstructorArgs 为构造函数参数构建引用。
// 未声明策略的参数按类型优先解析，且是必需的。
func BuildConstructorArgs(fn any, params []ParamSpec, lazy LazyFlag) (ConstructorArgs, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return ConstructorArgs{}, fmt.Errorf("di: constructor must be a function, got %T", fn)
	}
	ft := fv.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
		return ConstructorArgs{}, fmt.Errorf("di: constructor %v must return (T) or (T, error)", ft)
	}
	return buildArgs(fv, params, lazy)
}

// buildInvokeArgs 为 Invoke 构建参数引用，不限制返回值
func buildInvokeArgs(fn any, params []ParamSpec) (ConstructorArgs, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return ConstructorArgs{}, fmt.Errorf("di: invoke target must be a function, got %T", fn)
	}
	return buildArgs(fv, params, LazyUnset)
}

func buildArgs(fv reflect.Value, params []ParamSpec, lazy LazyFlag) (ConstructorArgs, error) {
	ft := fv.Type()
	if ft.IsVariadic() {
		return ConstructorArgs{}, fmt.Errorf("di: variadic function %v is not supported", ft)
	}
	if len(params) > ft.NumIn() {
		return ConstructorArgs{}, fmt.Errorf("di: function %v declares %d params but takes %d", ft, len(params), ft.NumIn())
	}

	refs := make([]Reference, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		var p ParamSpec
		if i < len(params) {
			p = params[i]
		}
		if p.Name == "" {
			p.Name = "arg" + strconv.Itoa(i)
		}
		ann := Autowired(true)
		if p.Annotation != nil {
			ann = *p.Annotation
		}
		ref, err := BuildReference(p.Name, ft.In(i), ann, p.Lazy, lazy)
		if err != nil {
			return ConstructorArgs{}, fmt.Errorf("function %v param %d: %w", ft, i, err)
		}
		refs[i] = ref
	}
	return ConstructorArgs{Fn: fv, Refs: refs}, nil
}
