package di

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemberKind 区分字段和方法
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberMethod
)

// MemberID 是成员的身份，去重只比较身份，不比较名称
type MemberID struct {
	Kind MemberKind
	// Path 是字段的索引路径或方法名
	Path string
}

// Member 是一个可注入的字段或 setter 方法
type Member struct {
	ID    MemberID
	Owner reflect.Type
	// Name 是默认查找名：字段名首字母小写，或由方法名推断
	Name string
	// Display 用于日志和错误信息
	Display string
	// Type 是字段类型；单参数方法时为参数类型
	Type reflect.Type
	// Index 是字段索引路径
	Index []int
	// Method 是方法名，Params 是方法参数
	Method string
	Params []ParamSpec
	Lazy   LazyFlag

	annotations []Annotation
}

// Annotation 返回成员在策略 s 下的声明
func (m *Member) Annotation(s Strategy) (Annotation, bool) {
	for _, a := range m.annotations {
		if a.Strategy == s {
			return a, true
		}
	}
	return Annotation{}, false
}

// Strategies 返回成员声明的全部策略（优先级顺序）
func (m *Member) Strategies() []Strategy {
	out := make([]Strategy, 0, len(m.annotations))
	for _, a := range m.annotations {
		out = append(out, a.Strategy)
	}
	return out
}

// MemberEnumerator 返回 typ 上声明了策略 s 的成员（声明顺序）
type MemberEnumerator interface {
	Members(typ reflect.Type, s Strategy) ([]*Member, error)
}

// FieldEnumerator 通过结构体标签枚举字段，结果按类型缓存
type FieldEnumerator struct {
	cache *xsync.MapOf[reflect.Type, fieldScan]
}

type fieldScan struct {
	members []*Member
	err     error
}

// NewFieldEnumerator 创建字段枚举器
func NewFieldEnumerator() *FieldEnumerator {
	return &FieldEnumerator{cache: xsync.NewMapOf[reflect.Type, fieldScan]()}
}

// Members 实现 MemberEnumerator
func (e *FieldEnumerator) Members(typ reflect.Type, s Strategy) ([]*Member, error) {
	scan, _ := e.cache.LoadOrCompute(typ, func() fieldScan {
		members, err := scanFields(typ)
		return fieldScan{members: members, err: err}
	})
	if scan.err != nil {
		return nil, scan.err
	}
	var out []*Member
	for _, m := range scan.members {
		if _, ok := m.Annotation(s); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// scanFields 扫描结构体（含匿名嵌入结构体）上带注入标签的字段
func scanFields(typ reflect.Type) ([]*Member, error) {
	owner := typ
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, nil
	}

	var members []*Member
	var walk func(t reflect.Type, prefix []int) error
	walk = func(t reflect.Type, prefix []int) error {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			index := append(append([]int(nil), prefix...), i)

			anns, lazy, err := parseFieldTags(field.Tag)
			if err != nil {
				return fmt.Errorf("%v.%s: %w", owner, field.Name, err)
			}
			if len(anns) == 0 {
				if field.Anonymous && field.Type.Kind() == reflect.Struct && field.IsExported() {
					if err := walk(field.Type, index); err != nil {
						return err
					}
				}
				continue
			}
			if !field.IsExported() {
				return fmt.Errorf("di: %v.%s is tagged for injection but not exported", owner, field.Name)
			}

			if isLazyHandle(field.Type) {
				lazy = LazyOn
			}
			members = append(members, &Member{
				ID:          MemberID{Kind: MemberField, Path: indexPath(index)},
				Owner:       owner,
				Name:        lowerFirst(field.Name),
				Display:     field.Name,
				Type:        field.Type,
				Index:       index,
				Lazy:        lazy,
				annotations: anns,
			})
		}
		return nil
	}
	if err := walk(typ, nil); err != nil {
		return nil, err
	}
	return members, nil
}

func indexPath(index []int) string {
	parts := make([]string, len(index))
	for i, v := range index {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// MethodSpec 声明一个需要注入的 setter 方法
//
//	di.Method("SetRepo", di.Autowired(true))
//	di.Method("Wire", di.Autowired(true)).WithParams(di.Param("primary", di.Resource("mainDB")), di.Param("replica"))
type MethodSpec struct {
	Name        string
	Annotations []Annotation
	Params      []ParamSpec
	Lazy        LazyFlag
}

// ParamSpec 声明方法或构造函数的一个参数
type ParamSpec struct {
	Name       string
	Annotation *Annotation
	Lazy       LazyFlag
	Type       reflect.Type
}

// Method 创建 setter 声明
func Method(name string, anns ...Annotation) MethodSpec {
	return MethodSpec{Name: name, Annotations: anns}
}

// WithParams 为方法的各个参数指定名称或单独的策略
func (m MethodSpec) WithParams(params ...ParamSpec) MethodSpec {
	m.Params = params
	return m
}

// WithLazy 设置方法级别的 lazy
func (m MethodSpec) WithLazy(lazy bool) MethodSpec {
	m.Lazy = boolLazy(lazy)
	return m
}

// Param 创建参数声明；最多接受一个策略
func Param(name string, ann ...Annotation) ParamSpec {
	p := ParamSpec{Name: name}
	if len(ann) > 0 {
		a := ann[0]
		p.Annotation = &a
	}
	return p
}

// WithLazy 设置参数级别的 lazy，覆盖方法级别
func (p ParamSpec) WithLazy(lazy bool) ParamSpec {
	p.Lazy = boolLazy(lazy)
	return p
}

func boolLazy(lazy bool) LazyFlag {
	if lazy {
		return LazyOn
	}
	return LazyOff
}

// MethodEnumerator 通过显式注册枚举 setter 方法
type MethodEnumerator struct {
	mu    sync.RWMutex
	specs map[reflect.Type][]MethodSpec
}

// NewMethodEnumerator 创建方法枚举器
func NewMethodEnumerator() *MethodEnumerator {
	return &MethodEnumerator{specs: make(map[reflect.Type][]MethodSpec)}
}

// Register 为 typ 注册 setter 声明
func (e *MethodEnumerator) Register(typ reflect.Type, specs ...MethodSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.specs[typ] = append(e.specs[typ], specs...)
}

// Members 实现 MemberEnumerator
func (e *MethodEnumerator) Members(typ reflect.Type, s Strategy) ([]*Member, error) {
	e.mu.RLock()
	specs := e.specs[typ]
	e.mu.RUnlock()

	var out []*Member
	for _, spec := range specs {
		var matched bool
		for _, a := range spec.Annotations {
			if a.Strategy == s {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		m, err := methodMember(typ, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// methodMember 把 setter 声明与方法集核对后生成成员
func methodMember(typ reflect.Type, spec MethodSpec) (*Member, error) {
	method, ok := typ.MethodByName(spec.Name)
	if !ok {
		return nil, fmt.Errorf("di: %v has no exported method %s", typ, spec.Name)
	}
	// 方法值的第 0 个入参是接收者
	numIn := method.Type.NumIn() - 1
	if len(spec.Params) > numIn {
		return nil, fmt.Errorf("di: %v.%s declares %d params but takes %d", typ, spec.Name, len(spec.Params), numIn)
	}
	if out := method.Type.NumOut(); out > 1 || (out == 1 && method.Type.Out(0) != errorType) {
		return nil, fmt.Errorf("di: setter %v.%s may only return error", typ, spec.Name)
	}

	params := make([]ParamSpec, numIn)
	for i := 0; i < numIn; i++ {
		if i < len(spec.Params) {
			params[i] = spec.Params[i]
		}
		params[i].Type = method.Type.In(i + 1)
		if params[i].Name == "" {
			params[i].Name = paramName(spec.Name, i, numIn)
		}
	}

	m := &Member{
		ID:          MemberID{Kind: MemberMethod, Path: spec.Name},
		Owner:       typ,
		Display:     spec.Name + "()",
		Method:      spec.Name,
		Params:      params,
		Lazy:        spec.Lazy,
		annotations: append([]Annotation(nil), spec.Annotations...),
	}
	if numIn == 1 {
		m.Name = params[0].Name
		m.Type = params[0].Type
	}
	return m, nil
}

// paramName 推断参数的默认名称：单参数 setter 取方法名去掉 Set 前缀
func paramName(method string, i, n int) string {
	if n == 1 {
		name := strings.TrimPrefix(method, "Set")
		if name == "" {
			name = method
		}
		return lowerFirst(name)
	}
	return "arg" + strconv.Itoa(i)
}

// lowerFirst 首字母小写
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
