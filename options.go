package ioc

import (
	"fmt"
	"strings"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/expr"
	"github.com/gocrud/ioc/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// 运行时读取的配置键
const (
	// KeyPrecedence 取值 silent（默认）或 strict
	KeyPrecedence = "ioc.precedence"
	// KeyMetrics 为 true 时向默认注册表导出解析指标
	KeyMetrics = "ioc.metrics"
	// KeyLogLevel 是最低日志级别
	KeyLogLevel = "ioc.log.level"
)

// WithConfig 加载配置文件，并把占位符解析和 #{...} 表达式接入容器
func WithConfig(opts ...config.LoadOption) core.Option {
	return func(rt *core.Runtime) error {
		cfg, err := config.LoadFiles(opts...)
		if err != nil {
			return fmt.Errorf("ioc: load configuration: %w", err)
		}
		return UseConfiguration(cfg)(rt)
	}
}

// UseConfiguration 使用已构建好的配置
func UseConfiguration(cfg config.ReloadableConfiguration) core.Option {
	return func(rt *core.Runtime) error {
		rt.SetConfiguration(cfg)

		engine, err := expr.New(cfg, expr.WithBeans(rt.Container))
		if err != nil {
			return err
		}
		containerOpts := []di.ContainerOption{
			di.WithExpressionEngine(engine),
			di.WithPlaceholderResolver(rt.Environment),
		}

		switch p := strings.ToLower(cfg.Get(KeyPrecedence)); p {
		case "", "silent":
		case "strict":
			containerOpts = append(containerOpts, di.WithPrecedence(di.PrecedenceStrict))
		default:
			return fmt.Errorf("ioc: invalid %s %q", KeyPrecedence, p)
		}
		if err := rt.Container.Configure(containerOpts...); err != nil {
			return err
		}

		if level := cfg.Get(KeyLogLevel); level != "" {
			lvl, err := logging.ParseLevel(level)
			if err != nil {
				return err
			}
			rt.LoggerFactory.SetMinimumLevel(lvl)
			if err := rt.SetLoggerFactory(rt.LoggerFactory); err != nil {
				return err
			}
		}

		if enabled, err := cfg.GetBool(KeyMetrics); err == nil && enabled {
			return WithMetrics(prometheus.DefaultRegisterer)(rt)
		}
		return nil
	}
}

// WithConfigWatch 监听配置文件变化并自动重新加载
func WithConfigWatch() core.Option {
	return func(rt *core.Runtime) error {
		watcher := config.NewWatcher(rt.Config, rt.Logger.WithCategory("config"))
		if len(watcher.Paths()) == 0 {
			return nil
		}
		return core.WithHostedService(watcher, di.WithName("configWatcher"))(rt)
	}
}

// WithLogging 替换日志工厂
func WithLogging(configure func(*logging.LoggingBuilder)) core.Option {
	return func(rt *core.Runtime) error {
		builder := logging.NewLoggingBuilder()
		configure(builder)
		return rt.SetLoggerFactory(builder.Build())
	}
}

// WithBeans 注册应用 bean
func WithBeans(register func(c *di.Container)) core.Option {
	return func(rt *core.Runtime) (err error) {
		// di.Register 以 panic 报告注册错误
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("ioc: %v", r)
			}
		}()
		register(rt.Container)
		return nil
	}
}

// WithStrictPrecedence 成员声明多个策略时直接报错
func WithStrictPrecedence() core.Option {
	return func(rt *core.Runtime) error {
		return rt.Container.Configure(di.WithPrecedence(di.PrecedenceStrict))
	}
}

// WithMetrics 向 reg 注册解析指标
func WithMetrics(reg prometheus.Registerer) core.Option {
	return func(rt *core.Runtime) error {
		m, err := di.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("ioc: register metrics: %w", err)
		}
		return rt.Container.Configure(di.WithMetrics(m))
	}
}

// WithOptions 把配置节 section 绑定为 *config.Options[T] bean，配置重新加载后自动刷新。
// bean 名称默认为 section + "Options"。
//
//	ioc.WithOptions[ServerOptions]("server")
//
//	type Server struct {
//		Opts *config.Options[ServerOptions] `autowired:""`
//	}
func WithOptions[T any](section string, name ...string) core.Option {
	return func(rt *core.Runtime) error {
		beanName := section + "Options"
		if len(name) > 0 {
			beanName = name[0]
		}
		// 在构建时读取 rt.Config，后续 WithConfig 替换的配置同样生效
		bind := func() (*config.Options[T], error) {
			return config.BindOptions[T](rt.Config, section)
		}
		return rt.Provide(bind, di.WithName(beanName))
	}
}
