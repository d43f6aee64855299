package di

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReference(t *testing.T) {
	svcType := TypeOf[Service]()

	tests := []struct {
		name string
		ann  Annotation
		typ  reflect.Type
		want Reference
	}{
		{
			name: "resource with name",
			ann:  Resource("orderRepo"),
			typ:  svcType,
			want: ByName("orderRepo", svcType, true),
		},
		{
			name: "resource without name",
			ann:  Resource(""),
			typ:  svcType,
			want: AutoNameFirst("svc", svcType, true),
		},
		{
			name: "optional qualifier",
			ann:  Qualifier("cache", false),
			typ:  svcType,
			want: ByName("cache", svcType, false),
		},
		{
			name: "qualifier without name",
			ann:  Qualifier("", true),
			typ:  svcType,
			want: AutoNameFirst("svc", svcType, true),
		},
		{
			name: "autowired",
			ann:  Autowired(true),
			typ:  svcType,
			want: AutoTypeFirst("svc", svcType, true),
		},
		{
			name: "value without expression uses member name",
			ann:  Value(""),
			typ:  TypeOf[int](),
			want: ValueOf("svc", TypeOf[int]()),
		},
		{
			name: "name collector",
			ann:  NameCollector("legacy"),
			typ:  TypeOf[BeanNames[Service]](),
			want: Reference{
				Mode: ModeNameCollector, Type: TypeOf[BeanNames[Service]](), Elem: svcType,
				Required: true, Exclude: []string{"legacy"},
			},
		},
		{
			name: "instance collector map",
			ann:  InstanceCollector([]string{"a", "b"}),
			typ:  TypeOf[map[string]Service](),
			want: Reference{
				Mode: ModeInstanceCollector, Type: TypeOf[map[string]Service](), Elem: svcType,
				Required: true, Specify: []string{"a", "b"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildReference("svc", tt.typ, tt.ann, LazyUnset, LazyUnset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildReferenceRejectsBadCollectorTargets(t *testing.T) {
	_, err := BuildReference("names", TypeOf[[]string](), NameCollector(), LazyUnset, LazyUnset)
	assert.Error(t, err)

	_, err = BuildReference("all", TypeOf[map[int]Service](), InstanceCollector(nil), LazyUnset, LazyUnset)
	assert.Error(t, err)
}

func TestBuildReferenceLazy(t *testing.T) {
	svcType := TypeOf[Service]()

	ref, err := BuildReference("svc", svcType, Autowired(true), LazyUnset, LazyOn)
	require.NoError(t, err)
	assert.True(t, ref.Lazy)

	// 成员自身的声明优先于外层
	ref, err = BuildReference("svc", svcType, Autowired(true), LazyOff, LazyOn)
	require.NoError(t, err)
	assert.False(t, ref.Lazy)

	// Lazy[T] 句柄按 T 解析
	ref, err = BuildReference("svc", TypeOf[Lazy[Service]](), Autowired(true), LazyUnset, LazyUnset)
	require.NoError(t, err)
	assert.True(t, ref.Lazy)
	assert.Equal(t, svcType, ref.Type)
}

type widget struct {
	Svc      Service          `autowired:""`
	Repo     Service          `resource:"orderRepo"`
	Cache    Service          `qualifier:",optional"`
	Handlers []Service        `beans:",exclude=legacy"`
	Port     int              `value:"${server.port:8080}"`
	Later    Lazy[Service]    `autowired:""`
	Fallback func() Service   `autowired:"" lazy:""`
	Names    BeanNameSet[any] `beannames:""`
}

func TestBuildPropertyValues(t *testing.T) {
	typ := reflect.TypeOf(&widget{})
	el, err := NewClassifier(PrecedenceSilent, nil).Classify(typ, NewFieldEnumerator())
	require.NoError(t, err)

	pvs, err := BuildPropertyValues(el)
	require.NoError(t, err)

	got := make(map[string]Reference, len(pvs))
	var order []string
	for _, pv := range pvs {
		got[pv.Member.Display] = pv.Ref
		order = append(order, pv.Member.Display)
	}
	assert.Equal(t, []string{"Repo", "Cache", "Svc", "Later", "Fallback", "Names", "Handlers", "Port"}, order)

	assert.Equal(t, ModeAutoTypeFirst, got["Svc"].Mode)
	assert.Equal(t, "svc", got["Svc"].Name)
	assert.True(t, got["Svc"].Required)

	assert.Equal(t, ByName("orderRepo", TypeOf[Service](), true), got["Repo"])
	assert.Equal(t, AutoNameFirst("cache", TypeOf[Service](), false), got["Cache"])
	assert.Equal(t, []string{"legacy"}, got["Handlers"].Exclude)
	assert.Equal(t, ValueOf("${server.port:8080}", TypeOf[int]()), got["Port"])
	assert.True(t, got["Later"].Lazy)
	assert.True(t, got["Fallback"].Lazy)
	assert.Equal(t, TypeOf[any](), got["Names"].Elem)
}

type wiring struct{}

func (w *wiring) SetPrimary(s Service) {}

func (w *wiring) SetPair(a, b Service) {}

func (w *wiring) Wire(main Service, limit int) error { return nil }

func (w *wiring) Connect(main Service, backup *svcImpl) {}

func TestBuildSetterValues(t *testing.T) {
	typ := reflect.TypeOf(&wiring{})
	en := NewMethodEnumerator()
	en.Register(typ,
		Method("SetPrimary", Qualifier("", true)),
		Method("Wire", Autowired(true)).WithParams(
			Param("main", Resource("mainSvc")),
			Param("limit", Value("${limit:3}")),
		),
		Method("Connect", Autowired(false)).WithLazy(true).WithParams(
			Param("main").WithLazy(false),
		),
	)

	el, err := NewClassifier(PrecedenceSilent, nil).Classify(typ, en)
	require.NoError(t, err)
	svs, err := BuildSetterValues(el)
	require.NoError(t, err)
	require.Len(t, svs, 3)

	primary := svs[0]
	assert.Equal(t, "SetPrimary", primary.Member.Method)
	assert.Equal(t, AutoNameFirst("primary", TypeOf[Service](), true), primary.Refs[0])

	wire := svs[1]
	assert.Equal(t, ByName("mainSvc", TypeOf[Service](), true), wire.Refs[0])
	assert.Equal(t, ValueOf("${limit:3}", TypeOf[int]()), wire.Refs[1])

	connect := svs[2]
	assert.False(t, connect.Refs[0].Lazy)
	assert.True(t, connect.Refs[1].Lazy)
	assert.False(t, connect.Refs[1].Required)
	assert.Equal(t, "arg1", connect.Refs[1].Name)
}

func TestBuildSetterValuesSingleArgument(t *testing.T) {
	typ := reflect.TypeOf(&wiring{})
	en := NewMethodEnumerator()
	en.Register(typ, Method("SetPair", Resource("pair")))

	el, err := NewClassifier(PrecedenceSilent, nil).Classify(typ, en)
	require.NoError(t, err)
	_, err = BuildSetterValues(el)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one argument")
}

func TestBuildConstructorArgs(t *testing.T) {
	ctor := func(s Service, limit int) (*svcImpl, error) { return &svcImpl{}, nil }

	args, err := BuildConstructorArgs(ctor, []ParamSpec{{}, Param("limit", Value("${limit:5}"))}, LazyUnset)
	require.NoError(t, err)
	require.Len(t, args.Refs, 2)
	assert.Equal(t, AutoTypeFirst("arg0", TypeOf[Service](), true), args.Refs[0])
	assert.Equal(t, ValueOf("${limit:5}", TypeOf[int]()), args.Refs[1])

	_, err = BuildConstructorArgs(func() {}, nil, LazyUnset)
	assert.Error(t, err)

	_, err = BuildConstructorArgs(func() (int, int) { return 0, 0 }, nil, LazyUnset)
	assert.Error(t, err)

	_, err = BuildConstructorArgs(func(xs ...int) int { return 0 }, nil, LazyUnset)
	assert.Error(t, err)

	_, err = BuildConstructorArgs("not a func", nil, LazyUnset)
	assert.Error(t, err)
}

func TestReferenceValidate(t *testing.T) {
	assert.Error(t, ByName("", TypeOf[Service](), true).Validate())
	assert.Error(t, Reference{Mode: ModeByType}.Validate())
	assert.Error(t, Reference{Mode: ModeNameCollector, Type: TypeOf[[]string]()}.Validate())

	ref := AutoTypeFirst("svc", TypeOf[Service](), true)
	require.NoError(t, ref.Validate())
	ref.Exclude = []string{"x"}
	assert.Error(t, ref.Validate())

	assert.Equal(t, `AutoTypeFirst{name="svc", type=di.Service, required=true, lazy=false}`,
		AutoTypeFirst("svc", TypeOf[Service](), true).String())
}
