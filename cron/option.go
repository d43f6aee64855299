package cron

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
)

// ServiceBean 是 cron 服务的 bean 名称
const ServiceBean = "cronService"

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加任务
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, handler)
	}
}

// New 启用 Cron 能力：服务注册为托管服务 bean，随应用启动和停止
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		svc, err := builder.Build(rt.Container, rt.Logger.WithCategory("cron"))
		if err != nil {
			return err
		}
		if svc == nil {
			return nil
		}

		if err := core.WithHostedServices()(rt); err != nil {
			return err
		}
		if err := rt.Provide(svc, di.WithName(ServiceBean)); err != nil {
			return err
		}
		rt.Features.Set(svc)
		return nil
	}
}
