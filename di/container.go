package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

// PostConstructor 由需要在注入完成后初始化的 bean 实现
type PostConstructor interface {
	PostConstruct() error
}

// Container 是 bean 注册表，也是 BeanLookup 的默认实现。
// 注册必须在 Build 之前完成；Build 之后定义不可变。
type Container struct {
	mu         sync.RWMutex
	defs       []*Definition
	byName     map[string]*Definition
	singletons *xsync.MapOf[string, *singleton]
	built      atomic.Bool

	createdMu sync.Mutex
	created   []string

	precedence   Precedence
	logger       logging.Logger
	resolverOpts []ResolverOption
	proxies      *ProxyFactory
	fields       *FieldEnumerator
	methods      *MethodEnumerator
	resolver     *Resolver
	injector     *Injector
}

// NewContainer 创建一个新的空容器。
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		byName:     make(map[string]*Definition),
		singletons: xsync.NewMapOf[string, *singleton](),
		fields:     NewFieldEnumerator(),
		methods:    NewMethodEnumerator(),
		proxies:    NewProxyFactory(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.wire()
	return c
}

// Configure 在 Build 之前追加容器配置
func (c *Container) Configure(opts ...ContainerOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built.Load() {
		return fmt.Errorf("di: cannot configure container after build")
	}
	for _, opt := range opts {
		opt(c)
	}
	c.wire()
	return nil
}

func (c *Container) wire() {
	c.logger = orNop(c.logger)
	classifier := NewClassifier(c.precedence, c.logger)
	// 重新配置时沿用同一个代理工厂，已注册的转发器不丢失
	base := []ResolverOption{WithResolverLogger(c.logger), WithProxies(c.proxies)}
	c.resolver = NewResolver(append(base, c.resolverOpts...)...)
	c.proxies = c.resolver.Proxies()
	c.injector = NewInjector(classifier, c.resolver, c.fields, c.methods, c.logger)
	c.logger = c.logger.WithCategory("di.container")
}

// Resolver 返回容器使用的解析引擎
func (c *Container) Resolver() *Resolver {
	return c.resolver
}

// Injector 返回容器使用的注入器
func (c *Container) Injector() *Injector {
	return c.injector
}

// Register 向容器添加 bean 定义。
func (c *Container) Register(def *Definition) error {
	if c.built.Load() {
		return fmt.Errorf("di: cannot register bean after build")
	}
	if err := normalize(def); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[def.Name]; exists {
		return fmt.Errorf("di: bean %q (%v) already registered", def.Name, def.Type)
	}
	def.seq = len(c.defs)
	c.defs = append(c.defs, def)
	c.byName[def.Name] = def

	if len(def.Setters) > 0 {
		target := injectionType(def)
		if target == nil {
			return fmt.Errorf("di: bean %q: setters need a concrete pointer-to-struct type", def.Name)
		}
		c.methods.Register(target, def.Setters...)
	}
	return nil
}

// normalize 补全定义的类型和名称
func normalize(def *Definition) error {
	switch {
	case def.Value != nil:
		if def.Type == nil {
			def.Type = reflect.TypeOf(def.Value)
		}
		if !reflect.TypeOf(def.Value).AssignableTo(def.Type) {
			return fmt.Errorf("di: value %T is not assignable to %v", def.Value, def.Type)
		}
	case def.Factory != nil:
		ft := reflect.TypeOf(def.Factory)
		if ft.Kind() != reflect.Func || ft.NumOut() == 0 {
			return fmt.Errorf("di: factory must be a function returning the bean, got %v", ft)
		}
		if def.Type == nil {
			def.Type = ft.Out(0)
		}
		if !ft.Out(0).AssignableTo(def.Type) {
			return fmt.Errorf("di: factory result %v is not assignable to %v", ft.Out(0), def.Type)
		}
	default:
		if def.ImplType == nil {
			def.ImplType = def.Type
		}
		if def.ImplType == nil {
			return fmt.Errorf("di: bean definition has no type")
		}
		if def.ImplType.Kind() == reflect.Struct {
			def.ImplType = reflect.PointerTo(def.ImplType)
		}
		if def.ImplType.Kind() != reflect.Pointer || def.ImplType.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("di: cannot instantiate %v, register a value or a factory instead", def.ImplType)
		}
		if def.Type == nil || def.Type.Kind() == reflect.Struct {
			def.Type = def.ImplType
		}
		if !def.ImplType.AssignableTo(def.Type) {
			return fmt.Errorf("di: %v does not implement %v", def.ImplType, def.Type)
		}
	}
	if def.Name == "" {
		def.Name = BeanName(def.Type)
	}
	return nil
}

// BeanName 返回类型的默认 bean 名称：去掉指针后的类型名首字母小写
func BeanName(typ reflect.Type) string {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Name() == "" {
		return lowerFirst(typ.String())
	}
	return lowerFirst(typ.Name())
}

// injectionType 返回需要字段/setter 注入的实例类型，不需要时返回 nil
func injectionType(def *Definition) reflect.Type {
	var t reflect.Type
	switch {
	case def.Value != nil:
		if !def.InjectValue {
			return nil
		}
		t = reflect.TypeOf(def.Value)
	case def.Factory != nil:
		t = reflect.TypeOf(def.Factory).Out(0)
	default:
		t = def.ImplType
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return t
	}
	return nil
}

// Build 校验全部定义、预先构建注入计划，然后按注册顺序创建单例。
// 重复调用是安全的。
func (c *Container) Build() error {
	c.mu.Lock()
	if c.built.Load() {
		c.mu.Unlock()
		return nil
	}

	var errs error
	for _, def := range c.defs {
		if err := c.prepare(def); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bean %q: %w", def.Name, err))
		}
	}
	if errs != nil {
		c.mu.Unlock()
		return errs
	}

	// 此后 Register 将失败，定义不可变
	c.built.Store(true)
	defs := append([]*Definition(nil), c.defs...)
	c.mu.Unlock()

	for _, def := range defs {
		if def.Scope != ScopeSingleton {
			continue
		}
		if _, err := c.get(def.Name, nil); err != nil {
			return err
		}
	}

	c.logger.Info("container built", logging.Field{Key: "beans", Value: len(defs)})
	return nil
}

func (c *Container) prepare(def *Definition) error {
	if def.Factory != nil {
		args, err := BuildConstructorArgs(def.Factory, def.Params, def.LazyArgs)
		if err != nil {
			return err
		}
		def.args = args
	}
	if t := injectionType(def); t != nil {
		plan, err := c.injector.Plan(t)
		if err != nil {
			return err
		}
		def.plan = plan
	}
	return nil
}

// GetByName 实现 BeanLookup
func (c *Container) GetByName(name string) (any, error) {
	return c.get(name, nil)
}

// GetByType 实现 BeanLookup
func (c *Container) GetByType(typ reflect.Type) (any, error) {
	return c.getByType(typ, nil)
}

// Contains 实现 BeanLookup
func (c *Container) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byName[name]
	return ok
}

// NamesForType 实现 BeanLookup，按注册顺序返回
func (c *Container) NamesForType(typ reflect.Type) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for _, def := range c.defs {
		if def.Type.AssignableTo(typ) {
			names = append(names, def.Name)
		}
	}
	return names
}

// IsTypeMatch 实现 TypeMatcher，不会实例化 bean
func (c *Container) IsTypeMatch(name string, typ reflect.Type) (bool, error) {
	def, ok := c.Definition(name)
	if !ok {
		return false, &NoSuchBeanDefinitionError{Name: name}
	}
	return def.Type.AssignableTo(typ), nil
}

// BeanOrder 实现 OrderedLookup
func (c *Container) BeanOrder(name string) (int, int, bool) {
	def, ok := c.Definition(name)
	if !ok {
		return 0, 0, false
	}
	if def.HasOrder {
		return def.Order, def.seq, true
	}
	return LowestPrecedence, def.seq, true
}

// Definition 返回名称对应的定义
func (c *Container) Definition(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byName[name]
	return def, ok
}

// Definitions 按注册顺序返回全部定义
func (c *Container) Definitions() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Definition(nil), c.defs...)
}

// Inject 用容器中的 bean 对任意结构体指针执行注入
func (c *Container) Inject(target any) error {
	if !c.built.Load() {
		return fmt.Errorf("di: container is not built")
	}
	return c.injector.Inject(target, c)
}

// Evaluate 按 value 表达式的规则求值并转换为 typ
func (c *Container) Evaluate(expr string, typ reflect.Type) (any, error) {
	return c.resolver.ResolveNow(ValueOf(expr, typ), c)
}

func (c *Container) getByType(typ reflect.Type, path *creationPath) (any, error) {
	names := c.NamesForType(typ)
	switch len(names) {
	case 0:
		return nil, &NoSuchBeanDefinitionError{Type: typ}
	case 1:
		return c.get(names[0], path)
	}

	var primary []string
	for _, name := range names {
		if def, ok := c.Definition(name); ok && def.Primary {
			primary = append(primary, name)
		}
	}
	if len(primary) == 1 {
		return c.get(primary[0], path)
	}
	return nil, &AmbiguousBeanDefinitionError{Type: typ, Candidates: names}
}

func (c *Container) get(name string, path *creationPath) (any, error) {
	def, ok := c.Definition(name)
	if !ok {
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}
	if !c.built.Load() {
		return nil, fmt.Errorf("di: container is not built")
	}

	if def.Scope == ScopePrototype {
		if path.contains(name) {
			return nil, &CircularDependencyError{Chain: path.chain(name)}
		}
		return c.create(def, path.push(name), nil)
	}

	s, _ := c.singletons.LoadOrCompute(name, func() *singleton { return &singleton{} })

	// 当前创建链上已有此 bean：只能返回提前引用。
	// 创建链属于当前 goroutine，此时它持有 s.mu。
	if path.contains(name) {
		if s.early != nil {
			return s.early, nil
		}
		return nil, &CircularDependencyError{Chain: path.chain(name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.inst, s.err
	}

	s.creating = true
	inst, err := c.create(def, path.push(name), s)
	s.creating = false
	s.early = nil
	s.done = true
	s.inst, s.err = inst, err

	if err == nil {
		c.createdMu.Lock()
		c.created = append(c.created, name)
		c.createdMu.Unlock()
	}
	return inst, err
}

// create 实例化、注入并初始化 bean
func (c *Container) create(def *Definition, path *creationPath, s *singleton) (any, error) {
	lookup := &pathLookup{c: c, path: path}

	var inst any
	switch {
	case def.Value != nil:
		inst = def.Value
		if !def.InjectValue {
			return inst, nil
		}
	case def.Factory != nil:
		v, err := c.invoke(def.args, lookup)
		if err != nil {
			return nil, &BeanCreationError{Name: def.Name, Err: err}
		}
		inst = v
	default:
		inst = reflect.New(def.ImplType.Elem()).Interface()
	}

	if s != nil {
		s.early = inst
	}

	if def.plan != nil && !isNil(inst) {
		if err := c.injector.Apply(def.plan, reflect.ValueOf(inst), lookup); err != nil {
			return nil, &BeanCreationError{Name: def.Name, Err: err}
		}
	}

	if pc, ok := inst.(PostConstructor); ok {
		if err := pc.PostConstruct(); err != nil {
			return nil, &BeanCreationError{Name: def.Name, Err: err}
		}
	}

	c.logger.Debug("bean created",
		logging.Field{Key: "name", Value: def.Name},
		logging.Field{Key: "type", Value: def.Type.String()},
		logging.Field{Key: "scope", Value: def.Scope.String()})
	return inst, nil
}

// invoke 解析构造函数参数并调用
func (c *Container) invoke(args ConstructorArgs, lookup BeanLookup) (any, error) {
	ft := args.Fn.Type()
	in := make([]reflect.Value, len(args.Refs))
	for i, ref := range args.Refs {
		v, err := c.resolver.ResolveValue(ref, ft.In(i), lookup)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		if !v.IsValid() {
			v = reflect.Zero(ft.In(i))
		}
		in[i] = v
	}

	results := args.Fn.Call(in)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// Close 按创建的逆序关闭容器创建的单例（实现 Close() error 或 Close() 的 bean）。
// 通过 WithValue 注册的实例由注册方负责关闭。
func (c *Container) Close() error {
	c.createdMu.Lock()
	created := c.created
	c.created = nil
	c.createdMu.Unlock()

	var errs error
	for i := len(created) - 1; i >= 0; i-- {
		def, ok := c.Definition(created[i])
		if !ok || def.Value != nil {
			continue
		}
		s, ok := c.singletons.Load(created[i])
		if !ok {
			continue
		}
		switch closer := s.inst.(type) {
		case interface{ Close() error }:
			if err := closer.Close(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("close bean %q: %w", def.Name, err))
			}
		case interface{ Close() }:
			closer.Close()
		}
	}
	return errs
}

// creationPath 是当前调用链上正在创建的 bean，不可变链表
type creationPath struct {
	name   string
	parent *creationPath
}

func (p *creationPath) push(name string) *creationPath {
	return &creationPath{name: name, parent: p}
}

func (p *creationPath) contains(name string) bool {
	for n := p; n != nil; n = n.parent {
		if n.name == name {
			return true
		}
	}
	return false
}

func (p *creationPath) chain(next string) []string {
	var out []string
	for n := p; n != nil; n = n.parent {
		out = append([]string{n.name}, out...)
	}
	return append(out, next)
}

// pathLookup 把创建链带入解析过程，用于发现循环依赖和提供提前引用
type pathLookup struct {
	c    *Container
	path *creationPath
}

func (l *pathLookup) GetByName(name string) (any, error) { return l.c.get(name, l.path) }

func (l *pathLookup) GetByType(typ reflect.Type) (any, error) { return l.c.getByType(typ, l.path) }

func (l *pathLookup) Contains(name string) bool { return l.c.Contains(name) }

func (l *pathLookup) NamesForType(typ reflect.Type) []string { return l.c.NamesForType(typ) }

func (l *pathLookup) IsTypeMatch(name string, typ reflect.Type) (bool, error) {
	return l.c.IsTypeMatch(name, typ)
}

func (l *pathLookup) BeanOrder(name string) (int, int, bool) { return l.c.BeanOrder(name) }

func (l *pathLookup) Root() BeanLookup { return l.c }
