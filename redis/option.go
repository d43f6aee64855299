package redis

import (
	"context"
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/redis/go-redis/v9"
)

// BeanPrefix 是 Redis 客户端 bean 名称的前缀，例如 redis.cache
const BeanPrefix = "redis"

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// FromConfig 从配置节读取客户端，节下每个键是一个客户端名称：
//
//	redis:
//	  default: { addr: "localhost:6379", db: 0 }
//	  cache:   { addr: "cache:6379" }
func FromConfig(section string) core.Option {
	return func(rt *core.Runtime) error {
		var clients map[string]ClientOptions
		if err := rt.Config.Bind(section, &clients); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		var opts []BuilderOption
		for name, c := range clients {
			c := c
			opts = append(opts, WithClient(name, func(o *ClientOptions) {
				merge(o, c)
			}))
		}
		return New(opts...)(rt)
	}
}

// merge 用配置中的非零值覆盖默认值
func merge(dst *ClientOptions, src ClientOptions) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.DB != 0 {
		dst.DB = src.DB
	}
	if src.DialTimeout > 0 {
		dst.DialTimeout = src.DialTimeout
	}
	if src.ReadTimeout > 0 {
		dst.ReadTimeout = src.ReadTimeout
	}
	if src.WriteTimeout > 0 {
		dst.WriteTimeout = src.WriteTimeout
	}
	if src.PoolSize > 0 {
		dst.PoolSize = src.PoolSize
	}
	if src.MinIdleConns > 0 {
		dst.MinIdleConns = src.MinIdleConns
	}
	if src.MaxRetries > 0 {
		dst.MaxRetries = src.MaxRetries
	}
	dst.PingOnStart = dst.PingOnStart || src.PingOnStart
}

// New 启用 Redis 能力：工厂注册为 bean，每个客户端注册为 redis.<name>
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		logger := rt.Logger.WithCategory("redis")
		factory, err := builder.Build(logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := rt.Provide(factory, di.WithName("redisClientFactory")); err != nil {
			return err
		}
		if err := core.RegisterNamed(rt, BeanPrefix, factory.Names(), func(name string) *redis.Client {
			client, _ := factory.Get(name)
			return client
		}); err != nil {
			return err
		}

		rt.Lifecycle.OnStart(factory.Ping)
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			logger.Info("closing redis clients")
			return factory.Close()
		})
		return nil
	}
}
