package di

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Service interface {
	Name() string
}

type svcImpl struct{ name string }

func (s *svcImpl) Name() string { return s.name }

type multiTagged struct {
	Both    Service            `resource:"main" autowired:""`
	Plain   Service            `autowired:"optional"`
	Names   BeanNames[Service] `beannames:""`
	All     []Service          `beans:""`
	Limit   int                `value:"${limit:10}"`
	Ignored string
}

func TestClassifyDisjointInPriorityOrder(t *testing.T) {
	c := NewClassifier(PrecedenceSilent, nil)
	el, err := c.Classify(reflect.TypeOf(&multiTagged{}), NewFieldEnumerator())
	require.NoError(t, err)

	display := func(s Strategy) []string {
		var out []string
		for _, m := range el.Members(s) {
			out = append(out, m.Display)
		}
		return out
	}
	assert.Equal(t, []string{"Both"}, display(StrategyResource))
	assert.Empty(t, display(StrategyQualifier))
	assert.Equal(t, []string{"Plain"}, display(StrategyAutowired))
	assert.Equal(t, []string{"Names"}, display(StrategyNameCollector))
	assert.Equal(t, []string{"All"}, display(StrategyInstanceCollector))
	assert.Equal(t, []string{"Limit"}, display(StrategyValue))

	var seen []string
	require.NoError(t, el.Each(func(s Strategy, m *Member) error {
		seen = append(seen, m.Display)
		return nil
	}))
	assert.Equal(t, []string{"Both", "Plain", "Names", "All", "Limit"}, seen)
}

func TestClassifyIsCached(t *testing.T) {
	c := NewClassifier(PrecedenceSilent, nil)
	en := NewFieldEnumerator()
	typ := reflect.TypeOf(&multiTagged{})

	first, err := c.Classify(typ, en)
	require.NoError(t, err)
	second, err := c.Classify(typ, en)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// 不同的枚举器单独缓存
	other, err := c.Classify(typ, NewFieldEnumerator())
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

// sliceEnumerator 是值类型且不可比较
type sliceEnumerator struct {
	fields []string
}

func (e sliceEnumerator) Members(typ reflect.Type, s Strategy) ([]*Member, error) {
	return NewFieldEnumerator().Members(typ, s)
}

func TestClassifyUncomparableEnumerator(t *testing.T) {
	c := NewClassifier(PrecedenceSilent, nil)
	en := sliceEnumerator{fields: []string{"All"}}
	typ := reflect.TypeOf(&multiTagged{})

	var first, second *InjectionElement
	require.NotPanics(t, func() {
		var err error
		first, err = c.Classify(typ, en)
		require.NoError(t, err)
		second, err = c.Classify(typ, en)
		require.NoError(t, err)
	})
	assert.NotSame(t, first, second)
	assert.Equal(t, displays(t, first), displays(t, second))
}

func displays(t *testing.T, el *InjectionElement) []string {
	var out []string
	require.NoError(t, el.Each(func(_ Strategy, m *Member) error {
		out = append(out, m.Display)
		return nil
	}))
	return out
}

func TestClassifyStrictRejectsMultipleStrategies(t *testing.T) {
	c := NewClassifier(PrecedenceStrict, nil)
	_, err := c.Classify(reflect.TypeOf(&multiTagged{}), NewFieldEnumerator())
	require.Error(t, err)

	var multi *MultipleStrategiesError
	require.True(t, errors.As(err, &multi))
	assert.Equal(t, "Both", multi.Member)
	assert.Equal(t, StrategyResource, multi.First)
	assert.Equal(t, StrategyAutowired, multi.Second)
}

type hiddenTagged struct {
	svc Service `autowired:""`
}

func TestClassifyRejectsUnexportedTaggedField(t *testing.T) {
	c := NewClassifier(PrecedenceSilent, nil)
	_, err := c.Classify(reflect.TypeOf(&hiddenTagged{}), NewFieldEnumerator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not exported")
}

type Base struct {
	Svc Service `autowired:""`
}

type derived struct {
	Base
	Other Service `qualifier:"other,optional"`
}

func TestClassifyWalksEmbeddedStructs(t *testing.T) {
	c := NewClassifier(PrecedenceSilent, nil)
	el, err := c.Classify(reflect.TypeOf(&derived{}), NewFieldEnumerator())
	require.NoError(t, err)

	auto := el.Members(StrategyAutowired)
	require.Len(t, auto, 1)
	assert.Equal(t, []int{0, 0}, auto[0].Index)
	assert.Equal(t, "svc", auto[0].Name)

	q := el.Members(StrategyQualifier)
	require.Len(t, q, 1)
	ann, ok := q[0].Annotation(StrategyQualifier)
	require.True(t, ok)
	assert.Equal(t, "other", ann.Name)
	assert.False(t, ann.Required)
}

type setterTarget struct {
	repo Service
	a, b Service
}

func (s *setterTarget) SetRepo(r Service) { s.repo = r }

func (s *setterTarget) Wire(a, b Service) error {
	s.a, s.b = a, b
	return nil
}

func TestClassifyMethods(t *testing.T) {
	en := NewMethodEnumerator()
	typ := reflect.TypeOf(&setterTarget{})
	en.Register(typ,
		Method("SetRepo", Resource("mainRepo"), Autowired(true)),
		Method("Wire", Autowired(false)),
	)

	c := NewClassifier(PrecedenceSilent, nil)
	el, err := c.Classify(typ, en)
	require.NoError(t, err)

	res := el.Members(StrategyResource)
	require.Len(t, res, 1)
	assert.Equal(t, "repo", res[0].Name)
	assert.Equal(t, TypeOf[Service](), res[0].Type)

	auto := el.Members(StrategyAutowired)
	require.Len(t, auto, 1)
	assert.Equal(t, "Wire", auto[0].Method)
	assert.Len(t, auto[0].Params, 2)
	assert.Equal(t, "arg1", auto[0].Params[1].Name)
}

func TestMethodEnumeratorRejectsUnknownMethod(t *testing.T) {
	en := NewMethodEnumerator()
	typ := reflect.TypeOf(&setterTarget{})
	en.Register(typ, Method("SetMissing", Autowired(true)))

	_, err := NewClassifier(PrecedenceSilent, nil).Classify(typ, en)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SetMissing")
}

func TestParseAnnotationOptions(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		raw     string
		want    Annotation
		wantErr bool
	}{
		{"resource name", StrategyResource, "orderRepo", Annotation{Strategy: StrategyResource, Name: "orderRepo", Required: true}, false},
		{"resource optional", StrategyResource, "orderRepo,optional", Annotation{}, true},
		{"qualifier short optional", StrategyQualifier, "cache,?", Annotation{Strategy: StrategyQualifier, Name: "cache"}, false},
		{"autowired required=false", StrategyAutowired, "required=false", Annotation{Strategy: StrategyAutowired}, false},
		{"beans specify", StrategyInstanceCollector, "specify=a|b,exclude=c", Annotation{
			Strategy: StrategyInstanceCollector, Required: true, Specify: []string{"a", "b"}, Exclude: []string{"c"},
		}, false},
		{"exclude on qualifier", StrategyQualifier, "x,exclude=a", Annotation{}, true},
		{"specify on beannames", StrategyNameCollector, "specify=a", Annotation{}, true},
		{"unknown option", StrategyAutowired, "eager", Annotation{}, true},
		{"value keeps commas", StrategyValue, "${a:1,2}", Annotation{Strategy: StrategyValue, Required: true, Expr: "${a:1,2}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.s, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLazyTag(t *testing.T) {
	type lazyFields struct {
		On  func() Service `autowired:"" lazy:""`
		Off func() Service `autowired:"" lazy:"false"`
		Bad func() Service `autowired:"" lazy:"maybe"`
	}
	typ := reflect.TypeOf(lazyFields{})

	f, _ := typ.FieldByName("On")
	flag, err := parseLazy(f.Tag)
	require.NoError(t, err)
	assert.Equal(t, LazyOn, flag)

	f, _ = typ.FieldByName("Off")
	flag, err = parseLazy(f.Tag)
	require.NoError(t, err)
	assert.Equal(t, LazyOff, flag)

	f, _ = typ.FieldByName("Bad")
	_, err = parseLazy(f.Tag)
	assert.Error(t, err)
}
