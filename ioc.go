// Package ioc 是应用入口：组合 core.Runtime、依赖注入容器、配置和基础设施模块。
//
//	err := ioc.Run(
//		ioc.WithConfig(config.WithFiles("app.yaml")),
//		ioc.WithBeans(func(c *di.Container) {
//			di.Register[*OrderService](c)
//		}),
//		redis.FromConfig("redis"),
//		web.New(web.WithControllers(NewOrderController)),
//	)
package ioc

import (
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// 内置 bean 的名称
const (
	ContainerBean   = "container"
	LoggerBean      = "logger"
	ConfigBean      = "configuration"
	EnvironmentBean = "environment"
)

// New 创建运行时并应用全部选项，容器尚未构建
func New(opts ...core.Option) (*core.Runtime, error) {
	rt := core.NewRuntime()
	if err := rt.Apply(opts...); err != nil {
		return nil, err
	}
	if err := registerBuiltins(rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Run 创建运行时，构建容器，启动并阻塞直到收到退出信号
func Run(opts ...core.Option) error {
	rt, err := New(opts...)
	if err != nil {
		return err
	}
	return rt.Run()
}

// registerBuiltins 把运行时自身的组件注册为 bean，供应用注入
func registerBuiltins(rt *core.Runtime) error {
	builtins := []*di.Definition{
		{Name: ContainerBean, Type: di.TypeOf[*di.Container](), Value: rt.Container},
		{Name: LoggerBean, Type: di.TypeOf[logging.Logger](), Value: rt.Logger},
		{Name: ConfigBean, Type: di.TypeOf[config.Configuration](), Value: rt.Config},
		{Name: EnvironmentBean, Type: di.TypeOf[*config.Environment](), Value: rt.Environment},
	}
	for _, def := range builtins {
		if rt.Container.Contains(def.Name) {
			continue
		}
		if err := rt.Container.Register(def); err != nil {
			return err
		}
	}
	return nil
}
