package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Lazy 是一个推迟解析的依赖句柄。
// 每次 Get 都会重新查找，句柄本身不缓存结果；单例的复用由容器保证。
//
//	type OrderService struct {
//		Payments di.Lazy[*PaymentService] `autowired:""`
//	}
type Lazy[T any] struct {
	resolve func() (any, error)
}

// Get 解析并返回依赖
func (l Lazy[T]) Get() (T, error) {
	var zero T
	if l.resolve == nil {
		return zero, fmt.Errorf("di: lazy %v is not bound", TypeOf[T]())
	}
	v, err := l.resolve()
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: lazy %v resolved to %T", TypeOf[T](), v)
	}
	return t, nil
}

// MustGet 解析失败时 panic
func (l Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Bound 判断句柄是否已经绑定到解析器
func (l Lazy[T]) Bound() bool {
	return l.resolve != nil
}

func (l *Lazy[T]) bind(fn func() (any, error)) {
	l.resolve = fn
}

// Target 返回句柄解析的类型
func (Lazy[T]) Target() reflect.Type {
	return TypeOf[T]()
}

type lazyBinder interface {
	bind(fn func() (any, error))
}

type lazyHandle interface {
	Target() reflect.Type
	Bound() bool
}

var lazyHandleType = TypeOf[lazyHandle]()

func isLazyHandle(typ reflect.Type) bool {
	return typ.Kind() == reflect.Struct && typ.Implements(lazyHandleType) &&
		reflect.PointerTo(typ).Implements(TypeOf[lazyBinder]())
}

func lazyTarget(typ reflect.Type) reflect.Type {
	return reflect.Zero(typ).Interface().(lazyHandle).Target()
}

// NewLazy 创建绑定到 fn 的句柄，主要用于测试
func NewLazy[T any](fn func() (T, error)) Lazy[T] {
	return Lazy[T]{resolve: func() (any, error) { return fn() }}
}

// ProxyFactory 为懒加载引用创建替身。
// 支持三种形态：Lazy[T] 句柄、函数类型（通过 reflect.MakeFunc 转发）、
// 以及通过 RegisterProxy 注册了转发器的接口类型。
type ProxyFactory struct {
	mu       sync.RWMutex
	builders map[reflect.Type]func(target func() (any, error)) any
}

// NewProxyFactory 创建代理工厂
func NewProxyFactory() *ProxyFactory {
	return &ProxyFactory{builders: make(map[reflect.Type]func(func() (any, error)) any)}
}

// RegisterProxy 为接口 I 注册转发器。
// ctor 收到的 delegate 每次调用都会重新解析目标；解析失败时 delegate 会 panic。
//
//	di.RegisterProxy[Greeter](pf, func(delegate func() Greeter) Greeter {
//		return greeterProxy{delegate}
//	})
func RegisterProxy[I any](f *ProxyFactory, ctor func(delegate func() I) I) {
	typ := TypeOf[I]()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[typ] = func(target func() (any, error)) any {
		return ctor(func() I {
			v, err := target()
			if err != nil {
				panic(err)
			}
			i, _ := v.(I)
			return i
		})
	}
}

// Wrap 为 ref.Type 创建替身，target 在替身被使用时才调用
func (f *ProxyFactory) Wrap(ref Reference, target func() (any, error)) (any, error) {
	typ := ref.Type
	f.mu.RLock()
	build, ok := f.builders[typ]
	f.mu.RUnlock()
	if ok {
		return build(target), nil
	}

	if typ.Kind() == reflect.Func {
		return forwardFunc(typ, target).Interface(), nil
	}

	reason := "no proxy registered for this type"
	if typ.Kind() != reflect.Interface {
		reason = "only interfaces with a registered proxy, func types and di.Lazy fields can be lazy"
	}
	return nil, &ProxyCreationError{Type: typ, Reason: reason}
}

// Handle 创建 handleType（某个 Lazy[T]）的句柄
func (f *ProxyFactory) Handle(handleType reflect.Type, target func() (any, error)) (reflect.Value, error) {
	if !isLazyHandle(handleType) {
		return reflect.Value{}, &ProxyCreationError{Type: handleType, Reason: "not a di.Lazy handle"}
	}
	ptr := reflect.New(handleType)
	ptr.Interface().(lazyBinder).bind(target)
	return ptr.Elem(), nil
}

// forwardFunc 生成与 typ 签名相同的函数，每次调用都先解析目标函数再转发。
// 目标签名最后一个返回值是 error 时解析失败通过它返回，否则 panic。
func forwardFunc(typ reflect.Type, target func() (any, error)) reflect.Value {
	returnsErr := typ.NumOut() > 0 && typ.Out(typ.NumOut()-1) == errorType
	return reflect.MakeFunc(typ, func(args []reflect.Value) []reflect.Value {
		v, err := target()
		if err == nil && isNil(v) {
			err = &NoSuchBeanDefinitionError{Type: typ}
		}
		if err != nil {
			if !returnsErr {
				panic(err)
			}
			out := make([]reflect.Value, typ.NumOut())
			for i := range out {
				out[i] = reflect.Zero(typ.Out(i))
			}
			out[len(out)-1] = reflect.ValueOf(&err).Elem()
			return out
		}
		fn := reflect.ValueOf(v)
		if typ.IsVariadic() {
			return fn.CallSlice(args)
		}
		return fn.Call(args)
	})
}
