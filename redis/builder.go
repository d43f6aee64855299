package redis

import (
	"fmt"

	"github.com/gocrud/ioc/logging"
	"go.uber.org/multierr"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	names   []string
	configs map[string]ClientOptions
	errors  error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]ClientOptions)}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = multierr.Append(b.errors, fmt.Errorf("redis client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = multierr.Append(b.errors, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.names = append(b.names, name)
	return b
}

// Build 构建 Redis 客户端工厂，没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*ClientFactory, error) {
	if b.errors != nil {
		return nil, fmt.Errorf("redis configuration errors: %w", b.errors)
	}
	if len(b.names) == 0 {
		return nil, nil
	}

	factory := NewClientFactory()
	for _, name := range b.names {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register redis client '%s': %w", name, err)
		}
		if logger != nil {
			logger.Info("redis client registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "addr", Value: opts.Addr},
				logging.Field{Key: "db", Value: opts.DB})
		}
	}
	return factory, nil
}
