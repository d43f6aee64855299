package di

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockLookup 模拟 bean 注册表
type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) GetByName(name string) (any, error) {
	args := m.Called(name)
	return args.Get(0), args.Error(1)
}

func (m *mockLookup) GetByType(typ reflect.Type) (any, error) {
	args := m.Called(typ)
	return args.Get(0), args.Error(1)
}

func (m *mockLookup) Contains(name string) bool {
	return m.Called(name).Bool(0)
}

func (m *mockLookup) NamesForType(typ reflect.Type) []string {
	args := m.Called(typ)
	names, _ := args.Get(0).([]string)
	return names
}

// mapLookup 是按注册顺序保存 bean 的简单注册表
type mapLookup struct {
	names []string
	beans map[string]any
	order map[string]int
}

func newMapLookup() *mapLookup {
	return &mapLookup{beans: map[string]any{}, order: map[string]int{}}
}

func (l *mapLookup) add(name string, bean any) *mapLookup {
	l.names = append(l.names, name)
	l.beans[name] = bean
	return l
}

func (l *mapLookup) GetByName(name string) (any, error) {
	b, ok := l.beans[name]
	if !ok {
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}
	return b, nil
}

func (l *mapLookup) GetByType(typ reflect.Type) (any, error) {
	names := l.NamesForType(typ)
	switch len(names) {
	case 0:
		return nil, &NoSuchBeanDefinitionError{Type: typ}
	case 1:
		return l.beans[names[0]], nil
	}
	return nil, &AmbiguousBeanDefinitionError{Type: typ, Candidates: names}
}

func (l *mapLookup) Contains(name string) bool {
	_, ok := l.beans[name]
	return ok
}

func (l *mapLookup) NamesForType(typ reflect.Type) []string {
	var out []string
	for _, n := range l.names {
		if reflect.TypeOf(l.beans[n]).AssignableTo(typ) {
			out = append(out, n)
		}
	}
	return out
}

func (l *mapLookup) BeanOrder(name string) (int, int, bool) {
	for i, n := range l.names {
		if n == name {
			if o, ok := l.order[name]; ok {
				return o, i, true
			}
			return LowestPrecedence, i, true
		}
	}
	return 0, 0, false
}

var svcType = TypeOf[Service]()

func TestResolveByNameReturnsSameInstance(t *testing.T) {
	a := &svcImpl{name: "a"}
	lookup := newMapLookup().add("a", a)
	r := NewResolver()

	v, err := r.ResolveNow(ByName("a", svcType, true), lookup)
	require.NoError(t, err)
	assert.Same(t, a, v)

	_, err = r.ResolveNow(ByName("a", TypeOf[*strings.Builder](), true), lookup)
	var mismatch *BeanTypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "a", mismatch.Name)
}

func TestResolveRequiredAndOptional(t *testing.T) {
	r := NewResolver()
	lookup := newMapLookup()

	_, err := r.ResolveNow(ByName("missing", svcType, true), lookup)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "missing", re.Ref.Name)

	v, err := r.ResolveNow(ByName("missing", svcType, false), lookup)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = r.ResolveNow(ByType(svcType, false), lookup)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveOptionalKeepsDependencyFailures(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("GetByName", "broken").Return(nil, &BeanCreationError{
		Name: "broken", Err: &NoSuchBeanDefinitionError{Name: "dep"},
	})

	_, err := NewResolver().ResolveNow(ByName("broken", svcType, false), lookup)
	require.Error(t, err)
	var creation *BeanCreationError
	assert.True(t, errors.As(err, &creation))
	lookup.AssertExpectations(t)
}

func TestAutoNameFirst(t *testing.T) {
	named := &svcImpl{name: "svc"}

	lookup := new(mockLookup)
	lookup.On("Contains", "svc").Return(true)
	lookup.On("GetByName", "svc").Return(named, nil)

	v, err := NewResolver().ResolveNow(AutoNameFirst("svc", svcType, true), lookup)
	require.NoError(t, err)
	assert.Same(t, named, v)
	lookup.AssertNotCalled(t, "GetByType", mock.Anything)
	lookup.AssertExpectations(t)

	other := &svcImpl{name: "other"}
	lookup = new(mockLookup)
	lookup.On("Contains", "svc").Return(false)
	lookup.On("GetByType", svcType).Return(other, nil)

	v, err = NewResolver().ResolveNow(AutoNameFirst("svc", svcType, true), lookup)
	require.NoError(t, err)
	assert.Same(t, other, v)
	lookup.AssertNotCalled(t, "GetByName", mock.Anything)
}

func TestAutoTypeFirst(t *testing.T) {
	a := &svcImpl{name: "a"}
	svc := &svcImpl{name: "svc"}

	t.Run("unique type wins", func(t *testing.T) {
		lookup := new(mockLookup)
		lookup.On("GetByType", svcType).Return(a, nil)

		v, err := NewResolver().ResolveNow(AutoTypeFirst("svc", svcType, true), lookup)
		require.NoError(t, err)
		assert.Same(t, a, v)
		lookup.AssertNotCalled(t, "Contains", mock.Anything)
		lookup.AssertNotCalled(t, "GetByName", mock.Anything)
	})

	t.Run("ambiguous falls back to name", func(t *testing.T) {
		lookup := newMapLookup().add("a", a).add("svc", svc)
		v, err := NewResolver().ResolveNow(AutoTypeFirst("svc", svcType, true), lookup)
		require.NoError(t, err)
		assert.Same(t, svc, v)
	})

	t.Run("ambiguous without matching name re-raises", func(t *testing.T) {
		lookup := newMapLookup().add("a", a).add("b", &svcImpl{name: "b"})
		_, err := NewResolver().ResolveNow(AutoTypeFirst("svc", svcType, true), lookup)
		require.Error(t, err)
		assert.True(t, IsAmbiguous(err))
	})

	t.Run("name of another type re-raises type failure", func(t *testing.T) {
		lookup := newMapLookup().add("svc", "plain string")
		_, err := NewResolver().ResolveNow(AutoTypeFirst("svc", svcType, true), lookup)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		var mismatch *BeanTypeMismatchError
		assert.False(t, errors.As(err, &mismatch))
	})

	t.Run("creation failure is not recovered", func(t *testing.T) {
		lookup := new(mockLookup)
		lookup.On("GetByType", svcType).Return(nil, &BeanCreationError{Name: "a", Err: errors.New("boom")})

		_, err := NewResolver().ResolveNow(AutoTypeFirst("svc", svcType, true), lookup)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		lookup.AssertNotCalled(t, "Contains", mock.Anything)
	})
}

func TestByTypeAmbiguousNeverFallsBackToName(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("GetByType", svcType).Return(nil, &AmbiguousBeanDefinitionError{
		Type: svcType, Candidates: []string{"a", "svc"},
	})
	lookup.On("Contains", "svc").Return(true).Maybe()

	ref := ByType(svcType, true)
	ref.Name = "svc"
	_, err := NewResolver().ResolveNow(ref, lookup)
	require.Error(t, err)
	var ambiguous *AmbiguousBeanDefinitionError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{"a", "svc"}, ambiguous.Candidates)
	lookup.AssertNotCalled(t, "GetByName", mock.Anything)
}

type ordered struct {
	svcImpl
	order int
}

func (o *ordered) Order() int { return o.order }

func TestInstanceCollector(t *testing.T) {
	first := &svcImpl{name: "first"}
	second := &svcImpl{name: "second"}
	early := &ordered{svcImpl: svcImpl{name: "early"}, order: -1}
	legacy := &svcImpl{name: "legacy"}

	lookup := newMapLookup().
		add("first", first).
		add("second", second).
		add("early", early).
		add("legacy", legacy).
		add("unrelated", "text")
	lookup.order["second"] = 1
	r := NewResolver()

	ref, err := BuildReference("all", TypeOf[[]Service](), InstanceCollector(nil, "legacy"), LazyUnset, LazyUnset)
	require.NoError(t, err)
	v, err := r.ResolveNow(ref, lookup)
	require.NoError(t, err)
	assert.Equal(t, []Service{early, second, first}, v)

	ref, err = BuildReference("all", TypeOf[map[string]Service](), InstanceCollector(nil), LazyUnset, LazyUnset)
	require.NoError(t, err)
	v, err = r.ResolveNow(ref, lookup)
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Same(t, legacy, v.(map[string]Service)["legacy"])

	ref, err = BuildReference("all", TypeOf[[]Service](), InstanceCollector([]string{"legacy", "first"}), LazyUnset, LazyUnset)
	require.NoError(t, err)
	v, err = r.ResolveNow(ref, lookup)
	require.NoError(t, err)
	assert.Equal(t, []Service{first, legacy}, v)
}

func TestInstanceCollectorSpecifyIncompatible(t *testing.T) {
	lookup := newMapLookup().add("a", &svcImpl{}).add("text", "plain")

	ref, err := BuildReference("all", TypeOf[[]Service](), InstanceCollector([]string{"a", "text"}), LazyUnset, LazyUnset)
	require.NoError(t, err)
	_, err = NewResolver().ResolveNow(ref, lookup)
	require.Error(t, err)

	var incompatible *IncompatibleCollectorError
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, "text", incompatible.Name)
	assert.Equal(t, svcType, incompatible.Elem)
}

func TestInstanceCollectorEmpty(t *testing.T) {
	ref, err := BuildReference("all", TypeOf[[]Service](), InstanceCollector(nil), LazyUnset, LazyUnset)
	require.NoError(t, err)

	v, err := NewResolver().ResolveNow(ref, newMapLookup())
	require.NoError(t, err)
	assert.Equal(t, []Service{}, v)
}

func TestNameCollector(t *testing.T) {
	lookup := newMapLookup().
		add("a", &svcImpl{}).
		add("legacy", &svcImpl{}).
		add("b", &svcImpl{}).
		add("text", "plain")
	r := NewResolver()

	ref, err := BuildReference("names", TypeOf[BeanNames[Service]](), NameCollector("legacy"), LazyUnset, LazyUnset)
	require.NoError(t, err)
	v, err := r.ResolveNow(ref, lookup)
	require.NoError(t, err)
	assert.Equal(t, BeanNames[Service]{"a", "b"}, v)

	ref, err = BuildReference("names", TypeOf[BeanNameSet[Service]](), NameCollector(), LazyUnset, LazyUnset)
	require.NoError(t, err)
	v, err = r.ResolveNow(ref, lookup)
	require.NoError(t, err)
	set := v.(BeanNameSet[Service])
	assert.True(t, set.Has("legacy"))
	assert.False(t, set.Has("text"))
	assert.Len(t, set, 3)
}

// placeholders 是基于 map 的占位符解析器，只支持整串 ${key} 和 ${key:default}
type placeholders map[string]any

func (p placeholders) ResolveRequiredPlaceholders(text string) (any, error) {
	if !strings.HasPrefix(text, "${") || !strings.HasSuffix(text, "}") {
		return text, nil
	}
	key, def, hasDef := strings.Cut(text[2:len(text)-1], ":")
	if v, ok := p[key]; ok {
		return v, nil
	}
	if hasDef {
		return def, nil
	}
	return nil, errors.New("could not resolve placeholder " + key)
}

type upperEngine struct{}

func (upperEngine) Evaluate(expr string) (any, error) {
	if strings.HasPrefix(expr, "#{") {
		return strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(expr, "#{"), "}")), nil
	}
	return expr, nil
}

func TestValueExpressions(t *testing.T) {
	r := NewResolver(
		WithPlaceholders(placeholders{"x": "42", "hosts": "a, b"}),
		WithExpressions(upperEngine{}),
	)
	lookup := new(mockLookup)

	v, err := r.ResolveNow(ValueOf("${x}", TypeOf[int]()), lookup)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = r.ResolveNow(ValueOf("${port:8080}", TypeOf[uint16]()), lookup)
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), v)

	v, err = r.ResolveNow(ValueOf("${hosts}", TypeOf[[]string]()), lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = r.ResolveNow(ValueOf("#{name}", TypeOf[string]()), lookup)
	require.NoError(t, err)
	assert.Equal(t, "NAME", v)

	_, err = r.ResolveNow(ValueOf("${missing}", TypeOf[int]()), lookup)
	var ee *ExpressionEvaluationError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "${missing}", ee.Expr)

	_, err = r.ResolveNow(ValueOf("abc", TypeOf[int]()), lookup)
	var ce *ConversionError
	require.True(t, errors.As(err, &ce))

	// 值引用不会查询注册表
	lookup.AssertNotCalled(t, "GetByName", mock.Anything)
	lookup.AssertNotCalled(t, "GetByType", mock.Anything)
}

func TestLazyReferenceDefersLookup(t *testing.T) {
	fn := func() string { return "real" }
	lookup := new(mockLookup)
	lookup.On("GetByType", TypeOf[func() string]()).Return(fn, nil).Once()

	ref := AutoTypeFirst("fn", TypeOf[func() string](), true)
	ref.Lazy = true
	v, err := NewResolver().Resolve(ref, lookup)
	require.NoError(t, err)
	lookup.AssertNotCalled(t, "GetByType", mock.Anything)

	proxy := v.(func() string)
	assert.Equal(t, "real", proxy())
	lookup.AssertExpectations(t)
}

func TestMetricsCountsResolutions(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	r := NewResolver(WithResolverMetrics(m))
	lookup := newMapLookup().add("a", &svcImpl{})

	_, err = r.ResolveNow(ByName("a", svcType, true), lookup)
	require.NoError(t, err)
	_, err = r.ResolveNow(ByName("b", svcType, true), lookup)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions().WithLabelValues("ByName", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions().WithLabelValues("ByName", "not_found")))
}
