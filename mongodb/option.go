package mongodb

import (
	"context"
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// BeanPrefix 是 MongoDB bean 名称的前缀，例如 mongo.default
const BeanPrefix = "mongo"

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name, uri string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *ClientOptions) {
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
			return fmt.Errorf("mongodb: %w", err)
		}
		var opts []BuilderOption
		for name, c := range clients {
			c := c
			opts = append(opts, WithClient(name, c.URI, func(o *ClientOptions) {
				o.Username, o.Password, o.Database = c.Username, c.Password, c.Database
				o.PingOnStart = c.PingOnStart
				if c.MaxPoolSize > 0 {
					o.MaxPoolSize = c.MaxPoolSize
				}
				if c.MinPoolSize > 0 {
					o.MinPoolSize = c.MinPoolSize
				}
				if c.Timeout > 0 {
					o.Timeout = c.Timeout
				}
			}))
		}
		return New(opts...)(rt)
	}
}

// New 启用 MongoDB 能力：工厂注册为 bean，每个 mgo 客户端注册为 mongo.<name>，
// 底层驱动客户端注册为 mongo.<name>.driver，配置了默认数据库的再注册 mongo.<name>.db
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		logger := rt.Logger.WithCategory("mongodb")
		factory, err := builder.Build(logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := rt.Provide(factory, di.WithName("mongoClientFactory")); err != nil {
			return err
		}
		names := factory.Names()
		if err := core.RegisterNamed(rt, BeanPrefix, names, func(name string) *mgo.Client {
			client, _ := factory.Client(name)
			return client
		}); err != nil {
			return err
		}
		if err := core.RegisterNamed(rt, BeanPrefix, names, func(name string) *mongo.Client {
			driver, _ := factory.Driver(name)
			return driver
		}, ".driver"); err != nil {
			return err
		}

		var dbNames []string
		for _, name := range names {
			if factory.Database(name) != nil {
				dbNames = append(dbNames, name)
			}
		}
		if err := core.RegisterNamed(rt, BeanPrefix, dbNames, func(name string) *mongo.Database {
			return factory.Database(name)
		}, ".db"); err != nil {
			return err
		}

		rt.Lifecycle.OnStart(factory.Ping)
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			logger.Info("closing mongo clients")
			return factory.Close(ctx)
		})
		return nil
	}
}
