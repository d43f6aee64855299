package di

import "reflect"

// BeanLookup 是解析引擎对 bean 注册表的全部要求。
// 单例作用域的 bean 在并发首次访问时也必须只有一个实例。
type BeanLookup interface {
	// GetByName 未找到时返回 *NoSuchBeanDefinitionError
	GetByName(name string) (any, error)
	// GetByType 未找到返回 *NoSuchBeanDefinitionError，多个候选返回 *AmbiguousBeanDefinitionError
	GetByType(typ reflect.Type) (any, error)
	Contains(name string) bool
	// NamesForType 按注册顺序返回可赋值给 typ 的 bean 名称
	NamesForType(typ reflect.Type) []string
}

// TypeMatcher 是 BeanLookup 的可选能力：不实例化 bean 即可判断类型
type TypeMatcher interface {
	IsTypeMatch(name string, typ reflect.Type) (bool, error)
}

// OrderedLookup 是 BeanLookup 的可选能力：提供 bean 的排序值和注册序号
type OrderedLookup interface {
	BeanOrder(name string) (order int, seq int, ok bool)
}

// ExpressionEngine 对表达式文本求值
type ExpressionEngine interface {
	Evaluate(expr string) (any, error)
}

// PlaceholderResolver 解析文本中的 ${...} 占位符，无法解析时返回错误
type PlaceholderResolver interface {
	ResolveRequiredPlaceholders(text string) (any, error)
}

// TypeConverter 把原始值转换为目标类型
type TypeConverter interface {
	Convert(value any, typ reflect.Type) (any, error)
}

// Ordered 由需要在实例收集器中排序的 bean 实现，值越小越靠前
type Ordered interface {
	Order() int
}

// LowestPrecedence 是未声明排序值的 bean 的默认排序值
const LowestPrecedence = int(^uint32(0) >> 1)

// rootLookup 由创建期包装的 lookup 实现，返回不绑定创建链的根 lookup
type rootLookup interface {
	Root() BeanLookup
}

func rootOf(lookup BeanLookup) BeanLookup {
	if r, ok := lookup.(rootLookup); ok {
		return r.Root()
	}
	return lookup
}
