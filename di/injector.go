package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/logging"
	"github.com/puzpuzpuz/xsync/v3"
)

// InjectionPlan 是某个类型预先构建好的注入点，同一类型的所有实例共享
type InjectionPlan struct {
	Type       reflect.Type
	Properties []PropertyValue
	Setters    []SetterValue
}

// Empty 判断是否没有任何注入点
func (p *InjectionPlan) Empty() bool {
	return len(p.Properties) == 0 && len(p.Setters) == 0
}

// Injector 把解析出的值写入目标实例：先字段，后 setter 方法；
// 每一部分内部按类别优先级、类别内按声明顺序。第一个失败即中止。
type Injector struct {
	classifier *Classifier
	fields     MemberEnumerator
	methods    MemberEnumerator
	resolver   *Resolver
	logger     logging.Logger
	plans      *xsync.MapOf[reflect.Type, *InjectionPlan]
}

// NewInjector 创建注入器；methods 可以为 nil
func NewInjector(classifier *Classifier, resolver *Resolver, fields, methods MemberEnumerator, logger logging.Logger) *Injector {
	if fields == nil {
		fields = NewFieldEnumerator()
	}
	return &Injector{
		classifier: classifier,
		fields:     fields,
		methods:    methods,
		resolver:   resolver,
		logger:     orNop(logger).WithCategory("di.injector"),
		plans:      xsync.NewMapOf[reflect.Type, *InjectionPlan](),
	}
}

// Plan 分类并构建 typ 的注入计划，结果按类型缓存
func (i *Injector) Plan(typ reflect.Type) (*InjectionPlan, error) {
	if plan, ok := i.plans.Load(typ); ok {
		return plan, nil
	}

	plan := &InjectionPlan{Type: typ}
	fields, err := i.classifier.Classify(typ, i.fields)
	if err != nil {
		return nil, err
	}
	if plan.Properties, err = BuildPropertyValues(fields); err != nil {
		return nil, err
	}
	if i.methods != nil {
		methods, err := i.classifier.Classify(typ, i.methods)
		if err != nil {
			return nil, err
		}
		if plan.Setters, err = BuildSetterValues(methods); err != nil {
			return nil, err
		}
	}

	actual, _ := i.plans.LoadOrStore(typ, plan)
	return actual, nil
}

// Inject 对 target（指向结构体的指针）执行字段和 setter 注入
func (i *Injector) Inject(target any, lookup BeanLookup) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("di: inject target must be a non-nil pointer to struct, got %T", target)
	}
	plan, err := i.Plan(v.Type())
	if err != nil {
		return err
	}
	return i.Apply(plan, v, lookup)
}

// Apply 按计划注入
func (i *Injector) Apply(plan *InjectionPlan, target reflect.Value, lookup BeanLookup) error {
	elem := target.Elem()
	for _, pv := range plan.Properties {
		val, err := i.resolver.ResolveValue(pv.Ref, pv.Member.Type, lookup)
		if err != nil {
			return &InjectionError{Target: plan.Type, Member: pv.Member.Display, Err: err}
		}
		if !val.IsValid() {
			// 可选且不存在，保留字段原值
			continue
		}
		field, err := elem.FieldByIndexErr(pv.Member.Index)
		if err != nil {
			return &InjectionError{Target: plan.Type, Member: pv.Member.Display, Err: err}
		}
		field.Set(val)
	}

	for _, sv := range plan.Setters {
		if err := i.invokeSetter(plan, target, sv, lookup); err != nil {
			return &InjectionError{Target: plan.Type, Member: sv.Member.Display, Err: err}
		}
	}

	if !plan.Empty() {
		i.logger.Debug("bean injected",
			logging.Field{Key: "type", Value: plan.Type.String()},
			logging.Field{Key: "properties", Value: len(plan.Properties)},
			logging.Field{Key: "setters", Value: len(plan.Setters)})
	}
	return nil
}

func (i *Injector) invokeSetter(plan *InjectionPlan, target reflect.Value, sv SetterValue, lookup BeanLookup) error {
	method := target.MethodByName(sv.Member.Method)
	if !method.IsValid() {
		return fmt.Errorf("method %s not found on %v", sv.Member.Method, plan.Type)
	}
	args := make([]reflect.Value, len(sv.Refs))
	for idx, ref := range sv.Refs {
		ptype := sv.Member.Params[idx].Type
		val, err := i.resolver.ResolveValue(ref, ptype, lookup)
		if err != nil {
			return err
		}
		if !val.IsValid() {
			val = reflect.Zero(ptype)
		}
		args[idx] = val
	}
	out := method.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// ResolveValue 解析 ref 并适配为 declared 类型的可赋值值。
// declared 为 Lazy[T] 时返回绑定好的句柄；可选且不存在时返回无效的 reflect.Value。
func (r *Resolver) ResolveValue(ref Reference, declared reflect.Type, lookup BeanLookup) (reflect.Value, error) {
	if isLazyHandle(declared) {
		root := rootOf(lookup)
		return r.proxies.Handle(declared, func() (any, error) {
			return r.ResolveNow(ref, root)
		})
	}

	v, err := r.Resolve(ref, lookup)
	if err != nil {
		return reflect.Value{}, err
	}
	if v == nil {
		return reflect.Value{}, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(declared) {
		converted, err := r.converter.Convert(v, declared)
		if err != nil {
			return reflect.Value{}, err
		}
		rv = reflect.ValueOf(converted)
	}
	out := reflect.New(declared).Elem()
	out.Set(rv)
	return out, nil
}
