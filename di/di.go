// Package di 是基于反射的 bean 引用解析与注入引擎。
//
// 结构体字段通过标签声明依赖：
//
//	type Widget struct {
//		Svc     Service          `autowired:""`          // 按类型，失败时回退到名称 "svc"
//		Repo    Repository       `resource:"orderRepo"`  // 按名称
//		Cache   Cache            `qualifier:",optional"` // 先按名称 "cache"，再按类型
//		Names   di.BeanNames[Handler] `beannames:""`     // 所有 Handler bean 的名称
//		All     []Handler        `beans:",exclude=legacy"`
//		Timeout time.Duration    `value:"${http.timeout:5s}"`
//		Later   di.Lazy[*Heavy]  `autowired:""`
//	}
//
// 每个成员只使用一种策略，优先级为
// resource > qualifier > autowired > beannames > beans > value。
package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/logging"
)

// Register 注册类型 T 的 bean，失败时 panic。
// T 是接口时需要用 di.Use[Impl]() 指定实现。
func Register[T any](c *Container, opts ...Option) {
	typ := TypeOf[T]()
	def := &Definition{Type: typ, Scope: ScopeSingleton}
	if typ.Kind() != reflect.Interface {
		def.ImplType = typ
	}
	for _, opt := range opts {
		opt(def)
	}
	if err := c.Register(def); err != nil {
		panic(fmt.Sprintf("di: failed to register %v: %v", typ, err))
	}
}

// Provide 根据 target 的形态注册 bean，返回 bean 名称。
//
// 支持的 target:
//   - func(...) (T, error?)  注册为构造函数
//   - *Struct                注册为已有实例，并执行字段注入
//   - reflect.Type           注册为由容器实例化的结构体
func Provide(c *Container, target any, opts ...Option) (string, error) {
	def := &Definition{Scope: ScopeSingleton}

	if typ, ok := target.(reflect.Type); ok {
		def.Type = typ
		def.ImplType = typ
	} else {
		v := reflect.ValueOf(target)
		switch v.Kind() {
		case reflect.Func:
			def.Factory = target
		case reflect.Pointer:
			if v.IsNil() {
				return "", fmt.Errorf("di: cannot provide nil %T", target)
			}
			def.Value = target
			def.InjectValue = v.Elem().Kind() == reflect.Struct
		default:
			return "", fmt.Errorf("di: unsupported provide target type: %T", target)
		}
	}

	for _, opt := range opts {
		opt(def)
	}
	if err := c.Register(def); err != nil {
		return "", err
	}
	return def.Name, nil
}

// Resolve 按类型解析 T
func Resolve[T any](c *Container) (T, error) {
	return ResolveNamed[T](c, "")
}

// ResolveNamed 按名称解析 T；name 为空时按类型
func ResolveNamed[T any](c *Container, name string) (T, error) {
	var zero T
	typ := TypeOf[T]()

	var ref Reference
	if name == "" {
		ref = ByType(typ, true)
	} else {
		ref = ByName(name, typ, true)
	}
	val, err := c.resolver.ResolveNow(ref, c)
	if err != nil {
		return zero, err
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, typ)
}

// MustResolve 解析失败时 panic
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// Invoke 调用 fn，参数按类型优先注入（名称为 argN）。
// fn 最后一个返回值为 error 时返回它。
func Invoke(c *Container, fn any, params ...ParamSpec) ([]reflect.Value, error) {
	args, err := buildInvokeArgs(fn, params)
	if err != nil {
		return nil, err
	}
	ft := args.Fn.Type()
	in := make([]reflect.Value, len(args.Refs))
	for i, ref := range args.Refs {
		v, err := c.resolver.ResolveValue(ref, ft.In(i), c)
		if err != nil {
			return nil, fmt.Errorf("di: invoke param %d: %w", i, err)
		}
		if !v.IsValid() {
			v = reflect.Zero(ft.In(i))
		}
		in[i] = v
	}

	out := args.Fn.Call(in)
	if n := len(out); n > 0 && ft.Out(n-1) == errorType && !out[n-1].IsNil() {
		return out, out[n-1].Interface().(error)
	}
	return out, nil
}

func orNop(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.Nop()
	}
	return l
}
