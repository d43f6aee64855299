package di

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level int

type serverConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
	Tags    []string
}

func TestConverter(t *testing.T) {
	c := NewConverter()

	tests := []struct {
		name  string
		value any
		typ   reflect.Type
		want  any
	}{
		{"string to int", "8080", TypeOf[int](), 8080},
		{"float to int64", 3.0, TypeOf[int64](), int64(3)},
		{"string to bool", "true", TypeOf[bool](), true},
		{"named type", "3", TypeOf[level](), level(3)},
		{"duration", "1m30s", TypeOf[time.Duration](), 90 * time.Second},
		{"int to string", 42, TypeOf[string](), "42"},
		{"csv to slice", "a, b ,c", TypeOf[[]string](), []string{"a", "b", "c"}},
		{"slice elements", []any{"1", 2, 3.0}, TypeOf[[]int](), []int{1, 2, 3}},
		{"array", []any{1, 2}, TypeOf[[3]int](), [3]int{1, 2, 0}},
		{"set", []string{"x", "y", "x"}, TypeOf[map[string]struct{}](), map[string]struct{}{"x": {}, "y": {}}},
		{"bool set from csv", "x,y", TypeOf[map[string]bool](), map[string]bool{"x": true, "y": true}},
		{"bytes", "hi", TypeOf[[]byte](), []byte("hi")},
		{"pointer", "7", TypeOf[*int](), func() *int { n := 7; return &n }()},
		{"empty csv", "", TypeOf[[]string](), []string{}},
		{"struct", map[string]any{
			"host": "localhost", "port": "80", "timeout": "2s", "tags": "a,b",
		}, TypeOf[serverConfig](), serverConfig{
			Host: "localhost", Port: 80, Timeout: 2 * time.Second, Tags: []string{"a", "b"},
		}},
		{"map of ints", map[string]any{"a": "1"}, TypeOf[map[string]int](), map[string]int{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.value, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConverterErrors(t *testing.T) {
	c := NewConverter()

	for _, tc := range []struct {
		value any
		typ   reflect.Type
	}{
		{"abc", TypeOf[int]()},
		{300, TypeOf[int8]()},
		{"1,2,3,4", TypeOf[[2]int]()},
		{struct{}{}, TypeOf[chan int]()},
		{"x,y", TypeOf[[]int]()},
	} {
		_, err := c.Convert(tc.value, tc.typ)
		var ce *ConversionError
		if assert.True(t, errors.As(err, &ce), "%v -> %v", tc.value, tc.typ) {
			assert.Equal(t, tc.typ, ce.Type)
		}
	}

	v, err := c.Convert(nil, TypeOf[int]())
	require.NoError(t, err)
	assert.Nil(t, v)
}
