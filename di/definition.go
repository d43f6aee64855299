package di

import (
	"reflect"
	"sync"
)

// ScopeType 定义了 bean 的生命周期。
type ScopeType int

const (
	// ScopeSingleton 每个容器一个实例。
	ScopeSingleton ScopeType = iota
	// ScopePrototype 每次查找创建一个新实例。
	ScopePrototype
)

func (s ScopeType) String() string {
	if s == ScopePrototype {
		return "prototype"
	}
	return "singleton"
}

// Definition 包含注册 bean 的元数据。
type Definition struct {
	Name string
	// Type 是对外暴露、参与按类型查找的类型
	Type reflect.Type
	// ImplType 是结构体实例化时使用的类型（指针）
	ImplType reflect.Type
	Scope    ScopeType
	Order    int
	HasOrder bool
	Primary  bool

	// Value 已创建好的实例
	Value any
	// InjectValue 是否对 Value 执行字段和 setter 注入
	InjectValue bool

	// Factory 构造函数，参数由 Params 声明
	Factory  any
	Params   []ParamSpec
	LazyArgs LazyFlag

	Setters []MethodSpec

	seq  int
	args ConstructorArgs
	plan *InjectionPlan
}

// Seq 返回注册序号
func (d *Definition) Seq() int {
	return d.seq
}

// Plan 返回 Build 时构建的注入计划，未构建时为 nil
func (d *Definition) Plan() *InjectionPlan {
	return d.plan
}

// ConstructorRefs 返回构造函数参数的引用
func (d *Definition) ConstructorRefs() []Reference {
	return d.args.Refs
}

// singleton 是单例的创建状态：
// 未创建 -> 创建中（实例化后可提供提前引用）-> 已完成
type singleton struct {
	mu    sync.Mutex
	done  bool
	inst  any
	err   error
	early any
	// creating 在持有 mu 的创建过程中为 true
	creating bool
}
