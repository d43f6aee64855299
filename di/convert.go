package di

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Converter 是默认的 TypeConverter。
// 标量使用 cast，map 到结构体使用 mapstructure，序列之间逐元素转换。
type Converter struct{}

// NewConverter 创建默认转换器
func NewConverter() *Converter {
	return &Converter{}
}

var durationType = TypeOf[time.Duration]()

// Convert 实现 TypeConverter
func (c *Converter) Convert(value any, typ reflect.Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	out, err := c.convert(reflect.ValueOf(value), typ)
	if err != nil {
		return nil, &ConversionError{Value: value, Type: typ, Err: err}
	}
	return out.Interface(), nil
}

func (c *Converter) convert(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if v.Type().AssignableTo(typ) {
		out := reflect.New(typ).Elem()
		out.Set(v)
		return out, nil
	}
	// 接口中的具体值
	if v.Kind() == reflect.Interface && !v.IsNil() {
		return c.convert(v.Elem(), typ)
	}

	raw := v.Interface()
	switch typ.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(raw)
		return fit(s, typ, err)
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		return fit(b, typ, err)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if typ == durationType {
			d, err := cast.ToDurationE(raw)
			return fit(d, typ, err)
		}
		n, err := cast.ToInt64E(raw)
		if err == nil && reflect.Zero(typ).OverflowInt(n) {
			err = fmt.Errorf("%d overflows %v", n, typ)
		}
		return fit(n, typ, err)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := cast.ToUint64E(raw)
		if err == nil && reflect.Zero(typ).OverflowUint(n) {
			err = fmt.Errorf("%d overflows %v", n, typ)
		}
		return fit(n, typ, err)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		return fit(f, typ, err)
	case reflect.Slice, reflect.Array:
		return c.toSequence(v, typ)
	case reflect.Map:
		if isSetType(typ) {
			if elems, ok := sequence(v); ok {
				return c.toSet(elems, typ)
			}
		}
		return decode(raw, typ)
	case reflect.Struct:
		return decode(raw, typ)
	case reflect.Pointer:
		elem, err := c.convert(v, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported conversion")
}

// fit 把 cast 的结果转换到命名类型（如 type Level int）
func fit(x any, typ reflect.Type, err error) (reflect.Value, error) {
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(x).Convert(typ), nil
}

// sequence 把切片、数组或逗号分隔的字符串展开为元素列表
func sequence(v reflect.Value) ([]reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]reflect.Value, v.Len())
		for i := range out {
			out[i] = v.Index(i)
		}
		return out, true
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return nil, true
		}
		parts := strings.Split(s, ",")
		out := make([]reflect.Value, len(parts))
		for i, p := range parts {
			out[i] = reflect.ValueOf(strings.TrimSpace(p))
		}
		return out, true
	case reflect.Map:
		if isSetType(v.Type()) {
			out := make([]reflect.Value, 0, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				out = append(out, iter.Key())
			}
			return out, true
		}
	}
	return nil, false
}

func (c *Converter) toSequence(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8 && v.Kind() == reflect.String {
		return reflect.ValueOf([]byte(v.String())).Convert(typ), nil
	}
	elems, ok := sequence(v)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%v is not a sequence", v.Type())
	}

	var out reflect.Value
	if typ.Kind() == reflect.Array {
		if len(elems) > typ.Len() {
			return reflect.Value{}, fmt.Errorf("%d elements exceed array length %d", len(elems), typ.Len())
		}
		out = reflect.New(typ).Elem()
	} else {
		out = reflect.MakeSlice(typ, len(elems), len(elems))
	}
	for i, e := range elems {
		ev, err := c.convert(e, typ.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

// isSetType 判断是否为 map[K]struct{} 或 map[K]bool
func isSetType(typ reflect.Type) bool {
	if typ.Kind() != reflect.Map {
		return false
	}
	e := typ.Elem()
	return e.Kind() == reflect.Bool || (e.Kind() == reflect.Struct && e.NumField() == 0)
}

func (c *Converter) toSet(elems []reflect.Value, typ reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(typ, len(elems))
	member := reflect.New(typ.Elem()).Elem()
	if typ.Elem().Kind() == reflect.Bool {
		member.SetBool(true)
	}
	for i, e := range elems {
		k, err := c.convert(e, typ.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.SetMapIndex(k, member)
	}
	return out, nil
}

// decode 使用 mapstructure 把 map 解码为结构体或其他 map
func decode(raw any, typ reflect.Type) (reflect.Value, error) {
	out := reflect.New(typ)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
