package di

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/gocrud/ioc/logging"
	"github.com/samber/lo"
)

// Resolver 把 Reference 解析为实际的值。
// 它本身不加锁，单例的唯一性由 BeanLookup 保证。
type Resolver struct {
	expressions  ExpressionEngine
	placeholders PlaceholderResolver
	converter    TypeConverter
	proxies      *ProxyFactory
	metrics      *Metrics
	logger       logging.Logger
}

// ResolverOption 配置 Resolver
type ResolverOption func(*Resolver)

// WithExpressions 设置表达式引擎；未设置时表达式原文即为结果
func WithExpressions(e ExpressionEngine) ResolverOption {
	return func(r *Resolver) { r.expressions = e }
}

// WithPlaceholders 设置占位符解析器
func WithPlaceholders(p PlaceholderResolver) ResolverOption {
	return func(r *Resolver) { r.placeholders = p }
}

// WithConverter 替换默认的类型转换器
func WithConverter(c TypeConverter) ResolverOption {
	return func(r *Resolver) { r.converter = c }
}

// WithProxies 替换懒加载代理工厂
func WithProxies(p *ProxyFactory) ResolverOption {
	return func(r *Resolver) { r.proxies = p }
}

// WithResolverMetrics 设置解析指标
func WithResolverMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithResolverLogger 设置日志
func WithResolverLogger(l logging.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver 创建解析引擎
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		converter: NewConverter(),
		proxies:   NewProxyFactory(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = orNop(r.logger).WithCategory("di.resolver")
	return r
}

// Proxies 返回代理工厂
func (r *Resolver) Proxies() *ProxyFactory {
	return r.proxies
}

// Resolve 解析引用；lazy 的非集合引用返回代理，真正的查找推迟到首次调用
func (r *Resolver) Resolve(ref Reference, lookup BeanLookup) (any, error) {
	if ref.Lazy && !ref.Mode.IsCollector() {
		proxy, err := r.proxies.Wrap(ref, func() (any, error) {
			return r.ResolveNow(ref, rootOf(lookup))
		})
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Err: err}
		}
		return proxy, nil
	}
	return r.ResolveNow(ref, lookup)
}

// ResolveNow 立即解析引用，忽略 lazy
func (r *Resolver) ResolveNow(ref Reference, lookup BeanLookup) (any, error) {
	start := time.Now()
	v, err := r.dispatch(ref, lookup)
	if err != nil && !ref.Required && isAbsent(err) {
		v, err = nil, nil
	}
	if err == nil && isNil(v) {
		v = nil
		if ref.Required {
			err = &NoSuchBeanDefinitionError{Type: ref.Type}
		}
	}
	r.metrics.observe(ref.Mode, start, err)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Err: err}
	}

	r.logger.Trace("reference resolved",
		logging.Field{Key: "ref", Value: ref.String()},
		logging.Field{Key: "elapsed", Value: time.Since(start)})
	return v, nil
}

func (r *Resolver) dispatch(ref Reference, lookup BeanLookup) (any, error) {
	switch ref.Mode {
	case ModeByName:
		return r.byName(ref, lookup)
	case ModeByType:
		return lookup.GetByType(ref.Type)
	case ModeAutoNameFirst:
		if lookup.Contains(ref.Name) {
			return r.byName(ref, lookup)
		}
		return lookup.GetByType(ref.Type)
	case ModeAutoTypeFirst:
		v, err := lookup.GetByType(ref.Type)
		if err == nil {
			return v, nil
		}
		if !recoverable(err) || ref.Name == "" || !lookup.Contains(ref.Name) {
			return nil, err
		}
		byName, nameErr := r.byName(ref, lookup)
		var mismatch *BeanTypeMismatchError
		if errors.As(nameErr, &mismatch) {
			return nil, err
		}
		return byName, nameErr
	case ModeValue:
		return r.evaluate(ref)
	case ModeNameCollector:
		return r.collectNames(ref, lookup)
	case ModeInstanceCollector:
		return r.collectInstances(ref, lookup)
	}
	return nil, fmt.Errorf("di: unknown reference mode %d", ref.Mode)
}

// recoverable 是 AutoTypeFirst 可以回退到名称查找的失败：类型本身未找到或歧义
func recoverable(err error) bool {
	var creation *BeanCreationError
	if errors.As(err, &creation) {
		return false
	}
	return IsNotFound(err) || IsAmbiguous(err)
}

func (r *Resolver) byName(ref Reference, lookup BeanLookup) (any, error) {
	v, err := lookup.GetByName(ref.Name)
	if err != nil {
		return nil, err
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(ref.Type) {
		return nil, &BeanTypeMismatchError{Name: ref.Name, Expected: ref.Type, Actual: reflect.TypeOf(v)}
	}
	return v, nil
}

// evaluate 先求值表达式，文本结果再解析一次占位符，最后转换为声明类型
func (r *Resolver) evaluate(ref Reference) (any, error) {
	var raw any = ref.Name
	if r.expressions != nil {
		v, err := r.expressions.Evaluate(ref.Name)
		if err != nil {
			return nil, asExpressionError(ref.Name, err)
		}
		raw = v
	}
	if s, ok := raw.(string); ok && r.placeholders != nil {
		v, err := r.placeholders.ResolveRequiredPlaceholders(s)
		if err != nil {
			return nil, asExpressionError(s, err)
		}
		raw = v
	}
	return r.converter.Convert(raw, ref.Type)
}

func asExpressionError(expr string, err error) error {
	var ee *ExpressionEvaluationError
	if errors.As(err, &ee) {
		return err
	}
	return &ExpressionEvaluationError{Expr: expr, Err: err}
}

func (r *Resolver) collectNames(ref Reference, lookup BeanLookup) (any, error) {
	names := lo.Without(lookup.NamesForType(ref.Elem), ref.Exclude...)
	if names == nil {
		names = []string{}
	}
	return r.converter.Convert(names, ref.Type)
}

type collected struct {
	name  string
	bean  any
	order int
	seq   int
}

// collectInstances 收集实例；显式指定的 bean 必须与元素类型兼容且不为 nil，否则直接失败
func (r *Resolver) collectInstances(ref Reference, lookup BeanLookup) (any, error) {
	var names []string
	if len(ref.Specify) > 0 {
		for _, name := range ref.Specify {
			ok, err := typeMatch(lookup, name, ref.Elem)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &IncompatibleCollectorError{Name: name, Elem: ref.Elem}
			}
		}
		names = ref.Specify
	} else {
		names = lo.Without(lookup.NamesForType(ref.Elem), ref.Exclude...)
	}

	beans := make([]collected, 0, len(names))
	for i, name := range names {
		bean, err := lookup.GetByName(name)
		if err != nil {
			return nil, err
		}
		if isNil(bean) {
			// 工厂返回 nil 的 bean 视为不存在；显式指定时报错
			if len(ref.Specify) > 0 {
				return nil, &NoSuchBeanDefinitionError{Name: name}
			}
			continue
		}
		order, seq := orderOf(lookup, name, bean, i)
		beans = append(beans, collected{name: name, bean: bean, order: order, seq: seq})
	}
	sort.SliceStable(beans, func(i, j int) bool {
		if beans[i].order != beans[j].order {
			return beans[i].order < beans[j].order
		}
		return beans[i].seq < beans[j].seq
	})

	if ref.Type.Kind() == reflect.Map {
		m := reflect.MakeMapWithSize(ref.Type, len(beans))
		for _, b := range beans {
			m.SetMapIndex(reflect.ValueOf(b.name).Convert(ref.Type.Key()), reflect.ValueOf(b.bean))
		}
		return m.Interface(), nil
	}

	seq := reflect.MakeSlice(reflect.SliceOf(ref.Elem), len(beans), len(beans))
	for i, b := range beans {
		seq.Index(i).Set(reflect.ValueOf(b.bean))
	}
	return r.converter.Convert(seq.Interface(), ref.Type)
}

func typeMatch(lookup BeanLookup, name string, typ reflect.Type) (bool, error) {
	if m, ok := lookup.(TypeMatcher); ok {
		return m.IsTypeMatch(name, typ)
	}
	if !lookup.Contains(name) {
		return false, &NoSuchBeanDefinitionError{Name: name}
	}
	v, err := lookup.GetByName(name)
	if err != nil {
		return false, err
	}
	return v != nil && reflect.TypeOf(v).AssignableTo(typ), nil
}

// orderOf 返回排序值和注册序号：实例实现的 Ordered 优先于定义上的排序值
func orderOf(lookup BeanLookup, name string, bean any, pos int) (int, int) {
	order, seq := LowestPrecedence, pos
	if ol, ok := lookup.(OrderedLookup); ok {
		if o, s, ok := ol.BeanOrder(name); ok {
			order, seq = o, s
		}
	}
	if o, ok := bean.(Ordered); ok {
		order = o.Order()
	}
	return order, seq
}

// isNil 同时识别 nil 接口和装在接口里的 nil 指针
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
