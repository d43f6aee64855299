package config

import (
	"fmt"
	"sync"
)

// Monitor 总是返回配置节的最新绑定结果
type Monitor[T any] interface {
	Value() T
	OnChange(fn func(T))
}

// Options 把配置节绑定为 T，配置重新加载后自动重新绑定。
// 重新绑定失败时保留上一次的值。
//
//	type ServerOptions struct {
//		Port    int
//		Timeout time.Duration
//	}
//	opts, err := config.BindOptions[ServerOptions](cfg, "server")
type Options[T any] struct {
	config  Configuration
	section string

	mu        sync.RWMutex
	current   T
	lastErr   error
	listeners []func(T)
}

// BindOptions 绑定配置节；配置支持 OnReload 时随之刷新
func BindOptions[T any](cfg Configuration, section string) (*Options[T], error) {
	o := &Options[T]{config: cfg, section: section}
	current, err := Load[T](cfg, section)
	if err != nil {
		return nil, fmt.Errorf("config: bind section %q: %w", section, err)
	}
	o.current = current

	if rc, ok := cfg.(ReloadableConfiguration); ok {
		rc.OnReload(o.reload)
	}
	return o, nil
}

// Section 返回绑定的配置节
func (o *Options[T]) Section() string {
	return o.section
}

// Value 返回当前值
func (o *Options[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Err 返回最近一次重新绑定的错误
func (o *Options[T]) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

// Snapshot 从配置重新绑定一份独立的副本，不影响当前值
func (o *Options[T]) Snapshot() (T, error) {
	return Load[T](o.config, o.section)
}

// OnChange 注册重新绑定成功后的回调
func (o *Options[T]) OnChange(fn func(T)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

func (o *Options[T]) reload() {
	next, err := Load[T](o.config, o.section)

	o.mu.Lock()
	o.lastErr = err
	if err != nil {
		o.mu.Unlock()
		return
	}
	o.current = next
	listeners := append([]func(T){}, o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
