package etcd

import (
	"context"
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// BeanPrefix 是 etcd 客户端 bean 名称的前缀，例如 etcd.master
const BeanPrefix = "etcd"

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*Builder)

// WithClient 添加 Etcd 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// FromConfig 从配置节读取客户端，节下每个键是一个客户端名称
func FromConfig(section string) core.Option {
	return func(rt *core.Runtime) error {
		var clients map[string]ClientOptions
		if err := rt.Config.Bind(section, &clients); err != nil {
			return fmt.Errorf("etcd: %w", err)
		}
		var opts []BuilderOption
		for name, c := range clients {
			c := c
			opts = append(opts, WithClient(name, func(o *ClientOptions) {
				c.Name = o.Name
				if len(c.Endpoints) == 0 {
					c.Endpoints = o.Endpoints
				}
				if c.DialTimeout <= 0 {
					c.DialTimeout = o.DialTimeout
				}
				*o = c
			}))
		}
		return New(opts...)(rt)
	}
}

// New 启用 Etcd 能力：工厂注册为 bean，每个客户端注册为 etcd.<name>
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		logger := rt.Logger.WithCategory("etcd")
		factory, err := builder.Build(logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := rt.Provide(factory, di.WithName("etcdClientFactory")); err != nil {
			return err
		}
		if err := core.RegisterNamed(rt, BeanPrefix, factory.Names(), func(name string) *clientv3.Client {
			client, _ := factory.Get(name)
			return client
		}); err != nil {
			return err
		}

		rt.Lifecycle.OnStart(factory.Ping)
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			logger.Info("closing etcd clients")
			return factory.Close()
		})
		return nil
	}
}
