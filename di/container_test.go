package di

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consumer struct {
	Svc Service `autowired:""`
}

func TestAutowiredResolvesUniqueImplementation(t *testing.T) {
	c := NewContainer()
	Register[Service](c, Use[*svcImpl](), WithName("svcImpl"))
	Register[*consumer](c)
	require.NoError(t, c.Build())

	def, ok := c.Definition("consumer")
	require.True(t, ok)
	require.Len(t, def.Plan().Properties, 1)
	assert.Equal(t, AutoTypeFirst("svc", svcType, true), def.Plan().Properties[0].Ref)

	impl, err := c.GetByName("svcImpl")
	require.NoError(t, err)
	w, err := ResolveNamed[*consumer](c, "consumer")
	require.NoError(t, err)
	assert.Same(t, impl, w.Svc)
}

func TestAutowiredFallsBackToFieldName(t *testing.T) {
	c := NewContainer()
	Register[Service](c, Use[*svcImpl](), WithName("other"))
	Register[Service](c, Use[*svcImpl](), WithName("svc"))
	Register[*consumer](c)
	require.NoError(t, c.Build())

	svc, err := c.GetByName("svc")
	require.NoError(t, err)
	w := MustResolve[*consumer](c)
	assert.Same(t, svc, w.Svc)
}

type foo struct{}

type holder struct {
	A *foo `resource:""`
	B int  `value:"${x}"`
}

func TestResourceAndValue(t *testing.T) {
	c := NewContainer(WithPlaceholderResolver(placeholders{"x": "42"}))
	Register[*foo](c, WithName("a"))
	Register[*holder](c)
	require.NoError(t, c.Build())

	a, err := c.GetByName("a")
	require.NoError(t, err)
	h := MustResolve[*holder](c)
	assert.Same(t, a, h.A)
	assert.Equal(t, 42, h.B)
}

type needsMissing struct {
	Repo Service `resource:"orderRepo"`
}

func TestBuildFailsOnMissingRequiredBean(t *testing.T) {
	c := NewContainer()
	Register[*needsMissing](c)

	err := c.Build()
	require.Error(t, err)

	var creation *BeanCreationError
	require.True(t, errors.As(err, &creation))
	assert.Equal(t, "needsMissing", creation.Name)
	var inj *InjectionError
	require.True(t, errors.As(err, &inj))
	assert.Equal(t, "Repo", inj.Member)
	var missing *NoSuchBeanDefinitionError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "orderRepo", missing.Name)
}

type optionalDeps struct {
	Cache Service   `qualifier:"cache,optional"`
	Extra Service   `autowired:"optional"`
	All   []Service `beans:""`
	Keep  string    `qualifier:"label,?"`
}

func TestOptionalReferencesLeaveFieldsUntouched(t *testing.T) {
	c := NewContainer()
	Register[*optionalDeps](c, WithValue(&optionalDeps{Keep: "default"}, true))
	require.NoError(t, c.Build())

	d := MustResolve[*optionalDeps](c)
	assert.Nil(t, d.Cache)
	assert.Nil(t, d.Extra)
	assert.Empty(t, d.All)
	assert.Equal(t, "default", d.Keep)
}

type cycA struct {
	B *cycB `autowired:""`
}

type cycB struct {
	A *cycA `autowired:""`
}

func TestFieldCycleUsesEarlyReference(t *testing.T) {
	c := NewContainer()
	Register[*cycA](c)
	Register[*cycB](c)
	require.NoError(t, c.Build())

	a := MustResolve[*cycA](c)
	b := MustResolve[*cycB](c)
	assert.Same(t, b, a.B)
	assert.Same(t, a, b.A)
}

type ctorA struct{ b *ctorB }

type ctorB struct{ a *ctorA }

func TestConstructorCycleFails(t *testing.T) {
	c := NewContainer()
	_, err := Provide(c, func(b *ctorB) *ctorA { return &ctorA{b: b} })
	require.NoError(t, err)
	_, err = Provide(c, func(a *ctorA) *ctorB { return &ctorB{a: a} })
	require.NoError(t, err)

	err = c.Build()
	var cycle *CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"ctorA", "ctorB", "ctorA"}, cycle.Chain)
}

type lazyA struct{ b Lazy[*lazyB] }

type lazyB struct{ a *lazyA }

func TestLazyArgumentBreaksConstructorCycle(t *testing.T) {
	c := NewContainer()
	_, err := Provide(c, func(b Lazy[*lazyB]) *lazyA { return &lazyA{b: b} })
	require.NoError(t, err)
	_, err = Provide(c, func(a *lazyA) *lazyB { return &lazyB{a: a} })
	require.NoError(t, err)
	require.NoError(t, c.Build())

	a := MustResolve[*lazyA](c)
	b, err := a.b.Get()
	require.NoError(t, err)
	assert.Same(t, a, b.a)
	assert.Same(t, MustResolve[*lazyB](c), b)
}

type counter struct{ n int }

type prototypeUser struct {
	First  *counter `autowired:""`
	Second *counter `autowired:""`
}

func TestPrototypeScope(t *testing.T) {
	c := NewContainer()
	Register[*counter](c, WithPrototype())
	Register[*prototypeUser](c)
	require.NoError(t, c.Build())

	u := MustResolve[*prototypeUser](c)
	assert.NotSame(t, u.First, u.Second)

	x, err := c.GetByName("counter")
	require.NoError(t, err)
	y, err := c.GetByName("counter")
	require.NoError(t, err)
	assert.NotSame(t, x, y)
}

func TestPrimaryResolvesAmbiguity(t *testing.T) {
	c := NewContainer()
	Register[Service](c, Use[*svcImpl](), WithName("a"))
	Register[Service](c, Use[*svcImpl](), WithName("b"), WithPrimary())
	require.NoError(t, c.Build())

	b, err := c.GetByName("b")
	require.NoError(t, err)
	got, err := Resolve[Service](c)
	require.NoError(t, err)
	assert.Same(t, b, got)

	c = NewContainer()
	Register[Service](c, Use[*svcImpl](), WithName("a"))
	Register[Service](c, Use[*svcImpl](), WithName("b"))
	require.NoError(t, c.Build())
	_, err = Resolve[Service](c)
	assert.True(t, IsAmbiguous(err))
}

type ranked struct {
	svcImpl
}

type registry struct {
	Handlers []Service          `beans:""`
	Named    map[string]Service `beans:"specify=second|first"`
	Names    BeanNames[Service] `beannames:"exclude=first"`
}

func TestCollectorsFollowOrderThenRegistration(t *testing.T) {
	c := NewContainer()
	Register[Service](c, Use[*svcImpl](), WithName("first"))
	Register[Service](c, Use[*ranked](), WithName("second"), WithOrder(1))
	Register[Service](c, Use[*svcImpl](), WithName("third"))
	Register[*registry](c)
	require.NoError(t, c.Build())

	r := MustResolve[*registry](c)
	second, _ := c.GetByName("second")
	first, _ := c.GetByName("first")
	third, _ := c.GetByName("third")
	assert.Equal(t, []Service{second.(Service), first.(Service), third.(Service)}, r.Handlers)
	assert.Len(t, r.Named, 2)
	assert.Same(t, first, r.Named["first"])
	assert.Equal(t, BeanNames[Service]{"second", "third"}, r.Names)
}

type nilAware struct {
	All   []Service          `beans:""`
	ByKey map[string]Service `beans:""`
}

type nilSpecified struct {
	Picked []Service `beans:"specify=empty"`
}

func TestCollectorsSkipNilBeans(t *testing.T) {
	c := NewContainer()
	_, err := Provide(c, func() Service { return nil }, WithName("empty"))
	require.NoError(t, err)
	Register[Service](c, Use[*svcImpl](), WithName("real"))
	Register[*nilAware](c)
	require.NotPanics(t, func() { require.NoError(t, c.Build()) })

	present, _ := c.GetByName("real")
	got := MustResolve[*nilAware](c)
	assert.Equal(t, []Service{present.(Service)}, got.All)
	assert.Len(t, got.ByKey, 1)
	assert.Same(t, present, got.ByKey["real"])

	c = NewContainer()
	_, err = Provide(c, func() Service { return nil }, WithName("empty"))
	require.NoError(t, err)
	Register[*nilSpecified](c)
	err = c.Build()
	var missing *NoSuchBeanDefinitionError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "empty", missing.Name)
}

type lazyConsumer struct {
	Svc Service `autowired:"" lazy:""`
}

func TestRegisteredProxySurvivesReconfigure(t *testing.T) {
	c := NewContainer()
	RegisterProxy[Service](c.Resolver().Proxies(), func(delegate func() Service) Service {
		return greeterProxy{delegate: delegate}
	})
	require.NoError(t, c.Configure(WithPrecedence(PrecedenceStrict)))
	Register[Service](c, WithValue(&svcImpl{name: "late"}), WithName("svc"))
	Register[*lazyConsumer](c)
	require.NoError(t, c.Build())

	got := MustResolve[*lazyConsumer](c)
	_, isProxy := got.Svc.(greeterProxy)
	assert.True(t, isProxy)
	assert.Equal(t, "late", got.Svc.Name())
}

type closeLog struct{ names []string }

type backCloser struct {
	Log *closeLog `autowired:""`
}

func (b *backCloser) Close() { b.Log.names = append(b.Log.names, "back") }

type frontCloser struct {
	Back *backCloser `autowired:""`
	Log  *closeLog   `autowired:""`
}

func (f *frontCloser) Close() error {
	f.Log.names = append(f.Log.names, "front")
	return errors.New("front failed")
}

func TestCloseInReverseCreationOrder(t *testing.T) {
	log := &closeLog{}
	c := NewContainer()
	Register[*closeLog](c, WithValue(log))
	Register[*frontCloser](c)
	Register[*backCloser](c)
	require.NoError(t, c.Build())

	err := c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front failed")
	assert.Equal(t, []string{"front", "back"}, log.names)

	// 第二次关闭不会重复调用
	require.NoError(t, c.Close())
	assert.Len(t, log.names, 2)
}

type initAware struct {
	Svc   Service `autowired:""`
	ready bool
}

func (i *initAware) PostConstruct() error {
	if i.Svc == nil {
		return errors.New("svc not injected")
	}
	i.ready = true
	return nil
}

type failingInit struct{}

func (failingInit) PostConstruct() error { return errors.New("init failed") }

func TestPostConstruct(t *testing.T) {
	c := NewContainer()
	Register[Service](c, Use[*svcImpl]())
	Register[*initAware](c)
	require.NoError(t, c.Build())
	assert.True(t, MustResolve[*initAware](c).ready)

	c = NewContainer()
	Register[*failingInit](c)
	err := c.Build()
	var creation *BeanCreationError
	require.True(t, errors.As(err, &creation))
	assert.Contains(t, err.Error(), "init failed")
}

type mailer struct {
	transport Service
	limit     int
}

func (m *mailer) SetTransport(t Service) { m.transport = t }

func (m *mailer) SetLimit(limit int) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}
	m.limit = limit
	return nil
}

func TestSetterInjection(t *testing.T) {
	c := NewContainer(WithPlaceholderResolver(placeholders{}))
	Register[Service](c, Use[*svcImpl](), WithName("transport"))
	Register[*mailer](c, WithSetters(
		Method("SetTransport", Qualifier("", true)),
		Method("SetLimit", Value("${limit:7}")),
	))
	require.NoError(t, c.Build())

	transport, _ := c.GetByName("transport")
	m := MustResolve[*mailer](c)
	assert.Same(t, transport, m.transport)
	assert.Equal(t, 7, m.limit)

	c = NewContainer(WithPlaceholderResolver(placeholders{"limit": -1}))
	Register[Service](c, Use[*svcImpl](), WithName("transport"))
	Register[*mailer](c, WithSetters(Method("SetLimit", Value("${limit:7}"))))
	err := c.Build()
	var inj *InjectionError
	require.True(t, errors.As(err, &inj))
	assert.Equal(t, "SetLimit()", inj.Member)
}

func TestFactoryParams(t *testing.T) {
	c := NewContainer(WithPlaceholderResolver(placeholders{"name": "configured"}))
	Register[Service](c, Use[*svcImpl](), WithName("main"))
	Register[Service](c, Use[*svcImpl](), WithName("backup"))
	Register[*mailer](c, WithFactory(func(s Service, limit int) (*mailer, error) {
		return &mailer{transport: s, limit: limit}, nil
	}, Param("main", Resource("backup")), Param("limit", Value("${limit:3}"))))
	require.NoError(t, c.Build())

	backup, _ := c.GetByName("backup")
	m := MustResolve[*mailer](c)
	assert.Same(t, backup, m.transport)
	assert.Equal(t, 3, m.limit)

	def, _ := c.Definition("mailer")
	require.Len(t, def.ConstructorRefs(), 2)
	assert.Equal(t, ByName("backup", svcType, true), def.ConstructorRefs()[0])
}

func TestFactoryErrorIsWrapped(t *testing.T) {
	c := NewContainer()
	_, err := Provide(c, func() (*foo, error) { return nil, errors.New("dial failed") })
	require.NoError(t, err)

	err = c.Build()
	var creation *BeanCreationError
	require.True(t, errors.As(err, &creation))
	assert.Equal(t, "foo", creation.Name)
}

func TestRegisterValidation(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register(&Definition{Type: TypeOf[*foo]()}))
	assert.Error(t, c.Register(&Definition{Type: TypeOf[*foo]()}), "duplicate name")
	assert.Error(t, c.Register(&Definition{Type: svcType}), "interface without implementation")
	assert.Error(t, c.Register(&Definition{Name: "n", Value: 1, Type: TypeOf[string]()}))
	assert.Error(t, c.Register(&Definition{Name: "f", Factory: func() {}}))

	require.NoError(t, c.Build())
	assert.Error(t, c.Register(&Definition{Name: "late", Type: TypeOf[*holder]()}))
	assert.Error(t, c.Configure(WithPrecedence(PrecedenceStrict)))
	// 重复 Build 是安全的
	assert.NoError(t, c.Build())
}

func TestInjectInvokeAndEvaluate(t *testing.T) {
	c := NewContainer(WithPlaceholderResolver(placeholders{"x": "5"}))
	Register[Service](c, Use[*svcImpl](), WithName("svc"))

	var h consumer
	assert.Error(t, c.Inject(&h), "not built")
	require.NoError(t, c.Build())
	require.NoError(t, c.Inject(&h))
	assert.NotNil(t, h.Svc)
	assert.Error(t, c.Inject(h))

	out, err := Invoke(c, func(s Service) (string, error) {
		if s == nil {
			return "", errors.New("nil service")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out[0].String())

	_, err = Invoke(c, func(s Service) error { return errors.New("handler failed") })
	assert.EqualError(t, err, "handler failed")

	v, err := c.Evaluate("${x}", TypeOf[int]())
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = ResolveNamed[*foo](c, "svc")
	var mismatch *BeanTypeMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestContainerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	c := NewContainer(WithMetrics(m))
	Register[Service](c, Use[*svcImpl](), WithName("svc"))
	Register[*consumer](c)
	require.NoError(t, c.Build())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions().WithLabelValues("AutoTypeFirst", "ok")))
	n, err := testutil.GatherAndCount(reg, "ioc_resolution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStrictPrecedenceFailsBuild(t *testing.T) {
	c := NewContainer(WithPrecedence(PrecedenceStrict))
	Register[Service](c, Use[*svcImpl](), WithName("main"))
	Register[*multiTagged](c, WithValue(&multiTagged{}, true))

	err := c.Build()
	var multi *MultipleStrategiesError
	require.True(t, errors.As(err, &multi))
}
