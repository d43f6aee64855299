package core

import (
	"context"

	"github.com/gocrud/ioc/logging"
	"go.uber.org/multierr"
)

// LifecycleEvents 管理应用程序的生命周期
type LifecycleEvents struct {
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{}
}

// OnStart 注册启动钩子
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.onStop = append(l.onStop, fn)
}

// Start 按注册顺序执行启动钩子，第一个失败即返回
func (l *LifecycleEvents) Start(ctx context.Context) error {
	for _, fn := range l.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 倒序执行停止钩子；失败会记录并继续，最后返回全部错误
func (l *LifecycleEvents) Stop(ctx context.Context, logger logging.Logger) error {
	var errs error
	for i := len(l.onStop) - 1; i >= 0; i-- {
		if err := l.onStop[i](ctx); err != nil {
			if logger != nil {
				logger.Error("stop hook failed", logging.Field{Key: "error", Value: err.Error()})
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func joinErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
