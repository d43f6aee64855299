package di

import (
	"reflect"

	"github.com/gocrud/ioc/logging"
)

// Option 配置 bean 注册。
type Option func(*Definition)

// WithScope 设置 bean 的作用域。
func WithScope(scope ScopeType) Option {
	return func(d *Definition) {
		d.Scope = scope
	}
}

// WithSingleton 将作用域设置为 Singleton（默认）。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithPrototype 将作用域设置为 Prototype。
func WithPrototype() Option {
	return WithScope(ScopePrototype)
}

// WithValue 注册已创建的实例。
// inject 为 true 时仍对实例执行字段和 setter 注入。
func WithValue(v any, inject ...bool) Option {
	return func(d *Definition) {
		d.Value = v
		d.Scope = ScopeSingleton
		d.InjectValue = len(inject) > 0 && inject[0]
		if d.Type == nil {
			d.Type = reflect.TypeOf(v)
		}
	}
}

// WithFactory 注册构造函数，参数按类型优先注入；params 可以为参数指定名称或策略。
func WithFactory(fn any, params ...ParamSpec) Option {
	return func(d *Definition) {
		d.Factory = fn
		d.Params = params
	}
}

// WithLazyArgs 使构造函数的所有参数默认懒加载，参数自身的声明优先。
func WithLazyArgs() Option {
	return func(d *Definition) {
		d.LazyArgs = LazyOn
	}
}

// WithName 设置 bean 名称。
func WithName(name string) Option {
	return func(d *Definition) {
		d.Name = name
	}
}

// WithOrder 设置实例收集器中的排序值，越小越靠前。
func WithOrder(order int) Option {
	return func(d *Definition) {
		d.Order = order
		d.HasOrder = true
	}
}

// WithPrimary 在按类型查找出现多个候选时优先选择此 bean。
func WithPrimary() Option {
	return func(d *Definition) {
		d.Primary = true
	}
}

// WithSetters 声明需要注入的 setter 方法。
func WithSetters(specs ...MethodSpec) Option {
	return func(d *Definition) {
		d.Setters = append(d.Setters, specs...)
	}
}

// As 指定对外暴露的类型，通常是接口。
func As[T any]() Option {
	return func(d *Definition) {
		d.Type = TypeOf[T]()
	}
}

// Use 指定实现类型，用于按接口注册的结构体 bean。
func Use[T any]() Option {
	return func(d *Definition) {
		d.ImplType = TypeOf[T]()
	}
}

// ContainerOption 配置容器本身。
type ContainerOption func(*Container)

// WithLogger 设置容器及解析引擎的日志。
func WithLogger(l logging.Logger) ContainerOption {
	return func(c *Container) {
		c.logger = l
	}
}

// WithPrecedence 设置多策略成员的处理方式。
func WithPrecedence(p Precedence) ContainerOption {
	return func(c *Container) {
		c.precedence = p
	}
}

// WithExpressionEngine 设置 value 表达式引擎。
func WithExpressionEngine(e ExpressionEngine) ContainerOption {
	return func(c *Container) {
		c.resolverOpts = append(c.resolverOpts, WithExpressions(e))
	}
}

// WithPlaceholderResolver 设置占位符解析器。
func WithPlaceholderResolver(p PlaceholderResolver) ContainerOption {
	return func(c *Container) {
		c.resolverOpts = append(c.resolverOpts, WithPlaceholders(p))
	}
}

// WithTypeConverter 替换默认的类型转换器。
func WithTypeConverter(tc TypeConverter) ContainerOption {
	return func(c *Container) {
		c.resolverOpts = append(c.resolverOpts, WithConverter(tc))
	}
}

// WithMetrics 设置解析指标。
func WithMetrics(m *Metrics) ContainerOption {
	return func(c *Container) {
		c.resolverOpts = append(c.resolverOpts, WithResolverMetrics(m))
	}
}

// WithProxyFactory 替换懒加载代理工厂。
func WithProxyFactory(p *ProxyFactory) ContainerOption {
	return func(c *Container) {
		c.resolverOpts = append(c.resolverOpts, WithProxies(p))
	}
}
