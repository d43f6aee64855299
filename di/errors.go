package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// NoSuchBeanDefinitionError 必需的引用没有解析到任何值
type NoSuchBeanDefinitionError struct {
	Name string
	Type reflect.Type
}

func (e *NoSuchBeanDefinitionError) Error() string {
	switch {
	case e.Name != "" && e.Type != nil:
		return fmt.Sprintf("di: no bean named %q of type %v", e.Name, e.Type)
	case e.Name != "":
		return fmt.Sprintf("di: no bean named %q", e.Name)
	default:
		return fmt.Sprintf("di: no bean of type %v", e.Type)
	}
}

// AmbiguousBeanDefinitionError 按类型查找匹配到多个候选且无法决出唯一者
type AmbiguousBeanDefinitionError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *AmbiguousBeanDefinitionError) Error() string {
	return fmt.Sprintf("di: %d beans match type %v: [%s]", len(e.Candidates), e.Type, strings.Join(e.Candidates, ", "))
}

// IncompatibleCollectorError 实例收集器显式指定的 bean 与元素类型不匹配
type IncompatibleCollectorError struct {
	Name string
	Elem reflect.Type
}

func (e *IncompatibleCollectorError) Error() string {
	return fmt.Sprintf("di: specified bean %q is not assignable to collector element type %v", e.Name, e.Elem)
}

// ProxyCreationError 懒加载引用的目标类型无法生成代理
type ProxyCreationError struct {
	Type   reflect.Type
	Reason string
}

func (e *ProxyCreationError) Error() string {
	return fmt.Sprintf("di: cannot create lazy proxy for %v: %s", e.Type, e.Reason)
}

// ExpressionEvaluationError 表达式或占位符求值失败
type ExpressionEvaluationError struct {
	Expr string
	Err  error
}

func (e *ExpressionEvaluationError) Error() string {
	return fmt.Sprintf("di: evaluate %q: %v", e.Expr, e.Err)
}

func (e *ExpressionEvaluationError) Unwrap() error { return e.Err }

// ConversionError 值无法转换为目标类型
type ConversionError struct {
	Value any
	Type  reflect.Type
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("di: cannot convert %T(%v) to %v: %v", e.Value, e.Value, e.Type, e.Err)
	}
	return fmt.Sprintf("di: cannot convert %T(%v) to %v", e.Value, e.Value, e.Type)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// BeanTypeMismatchError 按名称找到的 bean 不能赋值给声明类型
type BeanTypeMismatchError struct {
	Name     string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *BeanTypeMismatchError) Error() string {
	return fmt.Sprintf("di: bean %q is %v, not assignable to %v", e.Name, e.Actual, e.Expected)
}

// CircularDependencyError 创建链上出现了无法用提前引用打破的环
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("di: circular dependency: %s", strings.Join(e.Chain, " -> "))
}

// MultipleStrategiesError 同一个成员声明了多个解析策略（严格模式）
type MultipleStrategiesError struct {
	Owner  reflect.Type
	Member string
	First  Strategy
	Second Strategy
}

func (e *MultipleStrategiesError) Error() string {
	return fmt.Sprintf("di: %v.%s declares both %s and %s", e.Owner, e.Member, e.First, e.Second)
}

// BeanCreationError 找到了 bean 定义但创建失败
type BeanCreationError struct {
	Name string
	Err  error
}

func (e *BeanCreationError) Error() string {
	return fmt.Sprintf("di: create bean %q: %v", e.Name, e.Err)
}

func (e *BeanCreationError) Unwrap() error { return e.Err }

// ResolutionError 携带出错的引用
type ResolutionError struct {
	Ref Reference
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// InjectionError 携带出错的注入点
type InjectionError struct {
	Target reflect.Type
	Member string
	Err    error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("di: inject %v.%s: %v", e.Target, e.Member, e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

// IsNotFound 判断 err 链上是否有 NoSuchBeanDefinitionError
func IsNotFound(err error) bool {
	var target *NoSuchBeanDefinitionError
	return errors.As(err, &target)
}

// isAbsent 判断 err 是否表示查找目标本身不存在，而不是目标的依赖缺失
func isAbsent(err error) bool {
	var creation *BeanCreationError
	if errors.As(err, &creation) {
		return false
	}
	return IsNotFound(err)
}

// IsAmbiguous 判断 err 链上是否有 AmbiguousBeanDefinitionError
func IsAmbiguous(err error) bool {
	var target *AmbiguousBeanDefinitionError
	return errors.As(err, &target)
}
