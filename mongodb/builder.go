package mongodb

import (
	"context"
	"fmt"

	"github.com/gocrud/ioc/logging"
	"go.uber.org/multierr"
)

// Builder MongoDB 配置构建器
type Builder struct {
	names   []string
	configs map[string]ClientOptions
	errors  error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]ClientOptions)}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name, uri string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = multierr.Append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = multierr.Append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.names = append(b.names, name)
	return b
}

// Build 构建 MongoDB 工厂，没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*ClientFactory, error) {
	if b.errors != nil {
		return nil, fmt.Errorf("mongo configuration errors: %w", b.errors)
	}
	if len(b.names) == 0 {
		return nil, nil
	}

	factory := NewClientFactory()
	for _, name := range b.names {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			_ = factory.Close(context.Background())
			return nil, fmt.Errorf("failed to register mongo client '%s': %w", name, err)
		}
		if logger != nil {
			logger.Info("mongo client registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "database", Value: opts.Database})
		}
	}
	return factory, nil
}
