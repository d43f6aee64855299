package di

import (
	"fmt"
	"reflect"
	"strings"
)

// Reference 描述一个注入点的解析意图。
// 构建后不可变，同一个定义的多次实例化共享同一份 Reference。
type Reference struct {
	Mode Mode
	// Name 对 ByName/AutoNameFirst/AutoTypeFirst 是查找键，对 ModeValue 是表达式原文
	Name string
	// Type 是声明类型，也是最终转换的目标类型
	Type reflect.Type
	// Elem 是集合模式下参与查找的元素类型
	Elem     reflect.Type
	Required bool
	Lazy     bool
	// Exclude/Specify 仅对集合模式有意义
	Exclude []string
	Specify []string
}

// ByName 创建按名称查找的引用
func ByName(name string, typ reflect.Type, required bool) Reference {
	return Reference{Mode: ModeByName, Name: name, Type: typ, Required: required}
}

// ByType 创建严格按类型查找的引用
func ByType(typ reflect.Type, required bool) Reference {
	return Reference{Mode: ModeByType, Type: typ, Required: required}
}

// AutoNameFirst 创建名称优先的引用
func AutoNameFirst(name string, typ reflect.Type, required bool) Reference {
	return Reference{Mode: ModeAutoNameFirst, Name: name, Type: typ, Required: required}
}

// AutoTypeFirst 创建类型优先的引用
func AutoTypeFirst(name string, typ reflect.Type, required bool) Reference {
	return Reference{Mode: ModeAutoTypeFirst, Name: name, Type: typ, Required: required}
}

// ValueOf 创建表达式引用
func ValueOf(expr string, typ reflect.Type) Reference {
	return Reference{Mode: ModeValue, Name: expr, Type: typ, Required: true}
}

// Validate 检查各字段是否与模式匹配
func (r Reference) Validate() error {
	if r.Type == nil {
		return fmt.Errorf("di: reference %s has no type", r.Mode)
	}
	switch r.Mode {
	case ModeByName:
		if r.Name == "" {
			return fmt.Errorf("di: ByName reference for %v has empty name", r.Type)
		}
	case ModeByType, ModeAutoNameFirst, ModeAutoTypeFirst, ModeValue:
	case ModeNameCollector, ModeInstanceCollector:
		if r.Elem == nil {
			return fmt.Errorf("di: %s reference for %v has no element type", r.Mode, r.Type)
		}
		return nil
	default:
		return fmt.Errorf("di: unknown reference mode %d", r.Mode)
	}
	if len(r.Exclude) > 0 || len(r.Specify) > 0 {
		return fmt.Errorf("di: %s reference for %v cannot carry collector filters", r.Mode, r.Type)
	}
	return nil
}

func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.Mode.String())
	b.WriteByte('{')
	switch {
	case r.Mode.usesName():
		fmt.Fprintf(&b, "name=%q, ", r.Name)
	case r.Mode == ModeValue:
		fmt.Fprintf(&b, "expr=%q, ", r.Name)
	case r.Mode.IsCollector():
		fmt.Fprintf(&b, "elem=%v, ", r.Elem)
		if len(r.Specify) > 0 {
			fmt.Fprintf(&b, "specify=%v, ", r.Specify)
		}
		if len(r.Exclude) > 0 {
			fmt.Fprintf(&b, "exclude=%v, ", r.Exclude)
		}
	}
	fmt.Fprintf(&b, "type=%v, required=%t, lazy=%t}", r.Type, r.Required, r.Lazy)
	return b.String()
}

// beanTyped 由名称集合类型实现，用来携带元素类型
type beanTyped interface {
	BeanType() reflect.Type
}

// BeanNames 是名称收集器的列表形态，T 为参与收集的 bean 类型。
//
//	type Registry struct {
//		Handlers di.BeanNames[Handler] `beannames:"exclude=legacy"`
//	}
type BeanNames[T any] []string

// BeanType 返回参与收集的 bean 类型
func (BeanNames[T]) BeanType() reflect.Type { return TypeOf[T]() }

// BeanNameSet 是名称收集器的集合形态
type BeanNameSet[T any] map[string]struct{}

// BeanType 返回参与收集的 bean 类型
func (BeanNameSet[T]) BeanType() reflect.Type { return TypeOf[T]() }

// Has 判断集合是否包含 name
func (s BeanNameSet[T]) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// nameCollectorElem 从声明类型推断名称收集器的元素类型
func nameCollectorElem(typ reflect.Type) (reflect.Type, error) {
	if typ.Implements(beanTypedType) {
		return reflect.Zero(typ).Interface().(beanTyped).BeanType(), nil
	}
	return nil, fmt.Errorf("di: name collector target %v must be di.BeanNames[T] or di.BeanNameSet[T]", typ)
}

// instanceCollectorElem 从容器类型推断实例收集器的元素类型
func instanceCollectorElem(typ reflect.Type) (reflect.Type, error) {
	switch typ.Kind() {
	case reflect.Slice, reflect.Array:
		return typ.Elem(), nil
	case reflect.Map:
		if typ.Key().Kind() == reflect.String {
			return typ.Elem(), nil
		}
	}
	return nil, fmt.Errorf("di: instance collector target %v must be a slice, an array or a map keyed by string", typ)
}

// TypeOf 获取类型 T 的 reflect.Type
//
//	userServiceType := di.TypeOf[*UserService]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	beanTypedType = TypeOf[beanTyped]()
	errorType     = TypeOf[error]()
)
