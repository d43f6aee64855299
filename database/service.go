package database

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Options 单个数据库的连接参数，AutoMigrate 中的模型在打开后立即迁移
type Options struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any
}

func NewDefaultOptions(name string, dialector gorm.Dialector) *Options {
	return &Options{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

func (o *Options) Validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("database name is required")
	case o.Dialector == nil:
		return fmt.Errorf("database dialector is required")
	}
	return nil
}

// Factory 按名称持有已打开的 gorm 连接
type Factory struct {
	mu    sync.RWMutex
	names []string
	dbs   map[string]*gorm.DB
}

func NewFactory() *Factory {
	return &Factory{dbs: make(map[string]*gorm.DB)}
}

// Register 打开连接、设置连接池并执行迁移；迁移失败时连接会被关闭
func (f *Factory) Register(opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.dbs[opts.Name]; exists {
		return fmt.Errorf("database '%s' already registered", opts.Name)
	}

	db, err := open(opts)
	if err != nil {
		return fmt.Errorf("database '%s': %w", opts.Name, err)
	}
	f.dbs[opts.Name] = db
	f.names = append(f.names, opts.Name)
	return nil
}

func (f *Factory) Get(name string) (*gorm.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database '%s' not found", name)
	}
	return db, nil
}

// Names 按注册顺序返回数据库名称
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.names...)
}

// Close 关闭全部连接并清空工厂
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for _, name := range f.names {
		sqlDB, err := f.dbs[name].DB()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to get sql.DB for '%s': %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close database '%s': %w", name, err))
		}
	}
	f.dbs = make(map[string]*gorm.DB)
	f.names = nil
	return errs
}

func open(opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}
