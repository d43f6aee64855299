package database

import (
	"fmt"

	"github.com/gocrud/ioc/logging"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	names   []string
	configs map[string]Options
	errors  error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]Options)}
}

// Add 添加数据库配置
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = multierr.Append(b.errors, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = multierr.Append(b.errors, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.names = append(b.names, name)
	return b
}

// Build 按添加顺序打开数据库，没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if b.errors != nil {
		return nil, fmt.Errorf("database configuration errors: %w", b.errors)
	}
	if len(b.names) == 0 {
		return nil, nil
	}

	factory := NewFactory()
	for _, name := range b.names {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to register database '%s': %w", name, err)
		}
		if logger != nil {
			logger.Info("database registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "dialector", Value: opts.Dialector.Name()})
		}
	}
	return factory, nil
}
