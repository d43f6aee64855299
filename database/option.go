package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// BeanPrefix 是数据库 bean 名称的前缀，例如 db.master
const BeanPrefix = "db"

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithSqlite 添加 SQLite 数据库
func WithSqlite(name, dsn string, opts ...func(*Options)) BuilderOption {
	return WithDatabase(name, sqlite.Open(dsn), opts...)
}

// sectionOptions 是配置节中单个数据库的写法
type sectionOptions struct {
	Driver       string
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
}

// FromConfig 从配置节读取数据库，节下每个键是一个数据库名称：
//
//	databases:
//	  master: { driver: sqlite, dsn: "file::memory:?cache=shared", maxOpenConns: 5 }
//
// 目前支持的 driver 只有 sqlite。
func FromConfig(section string, models ...any) core.Option {
	return func(rt *core.Runtime) error {
		var dbs map[string]sectionOptions
		if err := rt.Config.Bind(section, &dbs); err != nil {
			return fmt.Errorf("database: %w", err)
		}

		var opts []BuilderOption
		for name, c := range dbs {
			c := c
			if c.Driver != "" && c.Driver != "sqlite" {
				return fmt.Errorf("database '%s': unsupported driver %q", name, c.Driver)
			}
			opts = append(opts, WithSqlite(name, c.DSN, func(o *Options) {
				if c.MaxIdleConns > 0 {
					o.MaxIdleConns = c.MaxIdleConns
				}
				if c.MaxOpenConns > 0 {
					o.MaxOpenConns = c.MaxOpenConns
				}
				if c.MaxLifetime > 0 {
					o.MaxLifetime = c.MaxLifetime
				}
				o.AutoMigrate = models
			}))
		}
		return New(opts...)(rt)
	}
}

// New 启用数据库能力：工厂注册为 bean，每个数据库注册为 db.<name>
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		logger := rt.Logger.WithCategory("database")
		factory, err := builder.Build(logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := rt.Provide(factory, di.WithName("databaseFactory")); err != nil {
			return err
		}
		if err := core.RegisterNamed(rt, BeanPrefix, factory.Names(), func(name string) *gorm.DB {
			db, _ := factory.Get(name)
			return db
		}); err != nil {
			return err
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			logger.Info("closing database connections")
			return factory.Close()
		})
		return nil
	}
}
