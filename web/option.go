package web

import (
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/prometheus/client_golang/prometheus"
)

// HostBean 是 Web 主机的 bean 名称
const HostBean = "webHost"

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithActuator 启用 actuator 端点
func WithActuator(gatherer prometheus.Gatherer) BuilderOption {
	return func(b *Builder) {
		b.UseActuator(gatherer)
	}
}

// WithBuilder 直接定制 Builder
func WithBuilder(fn func(*Builder)) BuilderOption {
	return fn
}

// New 启用 Web 能力：控制器注册为 bean，Host 注册为托管服务并收集全部控制器
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder().UseLogger(rt.Logger.WithCategory("web"))
		for _, opt := range opts {
			opt(builder)
		}
		rt.Features.Set(builder)

		if err := builder.RegisterServices(rt.Container); err != nil {
			return err
		}

		host := builder.Build()
		rt.Features.Set(host)
		if err := core.WithHostedService(host, di.WithName(HostBean))(rt); err != nil {
			return fmt.Errorf("web: %w", err)
		}
		return nil
	}
}
