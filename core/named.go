package core

import (
	"fmt"

	"github.com/gocrud/ioc/di"
)

// DefaultName 是未指定名称时客户端的名称
const DefaultName = "default"

// RegisterNamed 把按名称配置的客户端注册为 bean，bean 名称为 prefix.name[suffix]。
// 名为 default 的客户端（只有一个时就是它）标记为 primary，按类型注入时优先选择。
func RegisterNamed[T any](rt *Runtime, prefix string, names []string, get func(name string) T, suffix ...string) error {
	for _, name := range names {
		beanName := BeanName(prefix, name)
		if len(suffix) > 0 {
			beanName += suffix[0]
		}
		opts := []di.Option{di.WithName(beanName), di.WithValue(get(name))}
		if name == DefaultName || len(names) == 1 {
			opts = append(opts, di.WithPrimary())
		}
		def := &di.Definition{Type: di.TypeOf[T]()}
		for _, opt := range opts {
			opt(def)
		}
		if err := rt.Container.Register(def); err != nil {
			return fmt.Errorf("%s: failed to register %q: %w", prefix, name, err)
		}
	}
	return nil
}

// BeanName 返回客户端的 bean 名称
func BeanName(prefix, name string) string {
	return prefix + "." + name
}
