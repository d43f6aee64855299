package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Runtime 是框架的上帝对象，作为状态容器
type Runtime struct {
	// Features 存放构建期特性，如 web.Host、cron.Service
	Features FeatureCollection

	// Container 核心依赖注入容器
	Container *di.Container

	// Config 配置，Environment 在其上解析占位符
	Config      config.ReloadableConfiguration
	Environment *config.Environment

	// LoggerFactory 与默认 Logger
	LoggerFactory logging.LoggerFactory
	Logger        logging.Logger

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// Hosted 托管服务管理器，Build 后从容器中解析
	Hosted *hosting.HostedServiceManager

	// ShutdownTimeout 优雅关闭的超时时间
	ShutdownTimeout time.Duration

	// shutdownCh 用于通知应用退出
	shutdownCh chan struct{}

	// ErrorHandler 用于记录运行时产生的严重错误
	ErrorHandler func(err error)
}

// NewRuntime 创建一个新的运行时实例，默认使用空配置和控制台日志
func NewRuntime() *Runtime {
	factory := logging.NewLoggingBuilder().AddConsole().Build()
	cfg, _ := config.NewConfigurationBuilder().BuildReloadable()

	rt := &Runtime{
		Features:        NewFeatureCollection(),
		Config:          cfg,
		Environment:     config.NewEnvironment(cfg),
		LoggerFactory:   factory,
		Logger:          factory.CreateLogger("app"),
		Lifecycle:       NewLifecycle(),
		ShutdownTimeout: 5 * time.Second,
		shutdownCh:      make(chan struct{}),
	}
	rt.Container = di.NewContainer(di.WithLogger(rt.Logger))
	rt.ErrorHandler = func(err error) {
		rt.Logger.Error("runtime error", logging.Field{Key: "error", Value: err.Error()})
	}
	return rt
}

// SetConfiguration 替换配置，必须在容器 Build 之前调用
func (rt *Runtime) SetConfiguration(cfg config.ReloadableConfiguration) {
	rt.Config = cfg
	rt.Environment = config.NewEnvironment(cfg)
}

// SetLoggerFactory 替换日志工厂，并同步到容器
func (rt *Runtime) SetLoggerFactory(factory logging.LoggerFactory) error {
	rt.LoggerFactory = factory
	rt.Logger = factory.CreateLogger("app")
	return rt.Container.Configure(di.WithLogger(rt.Logger))
}

// Shutdown 请求应用退出
// 调用此方法会触发应用关闭流程
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
		// 已经关闭，无需操作
	default:
		close(rt.shutdownCh)
	}
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Provide 注册服务提供者 (语法糖)
// 支持构造函数、结构体指针或类型
func (rt *Runtime) Provide(target any, opts ...di.Option) error {
	_, err := di.Provide(rt.Container, target, opts...)
	return err
}

// Invoke 调用函数并注入依赖 (语法糖)
func (rt *Runtime) Invoke(function any) error {
	_, err := di.Invoke(rt.Container, function)
	return err
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Build 构建容器并解析托管服务管理器
func (rt *Runtime) Build() error {
	if err := rt.Container.Build(); err != nil {
		return err
	}
	if rt.Container.Contains(HostedManagerBean) {
		m, err := di.ResolveNamed[*hosting.HostedServiceManager](rt.Container, HostedManagerBean)
		if err != nil {
			return err
		}
		rt.Hosted = m
	}
	return nil
}

// Start 启动生命周期钩子和托管服务
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.Lifecycle.Start(ctx); err != nil {
		return err
	}
	if rt.Hosted != nil {
		errCh := rt.Hosted.StartAll(ctx)
		go func() {
			select {
			case err := <-errCh:
				// 托管服务失败时整个应用退出
				rt.ErrorHandler(err)
				rt.Shutdown()
			case <-rt.Done():
			}
		}()
	}
	return nil
}

// Stop 停止托管服务、生命周期钩子，最后关闭容器和日志
func (rt *Runtime) Stop(ctx context.Context) error {
	var errs []error
	if rt.Hosted != nil {
		errs = append(errs, rt.Hosted.StopAll(ctx))
	}
	errs = append(errs, rt.Lifecycle.Stop(ctx, rt.Logger))
	errs = append(errs, rt.Container.Close())
	errs = append(errs, rt.LoggerFactory.Close())
	return joinErrors(errs...)
}

// Run 构建、启动并阻塞直到收到退出信号或 Shutdown
func (rt *Runtime) Run() error {
	if err := rt.Build(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Start(ctx); err != nil {
		return err
	}

	// 支持 OS 信号 (Ctrl+C, kill) 和 Runtime 内部触发的退出 (rt.Shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		rt.Logger.Info("shutdown signal received", logging.Field{Key: "signal", Value: sig.String()})
	case <-rt.Done():
	}
	rt.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), rt.ShutdownTimeout)
	defer shutdownCancel()
	if err := rt.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// As 是一个辅助函数，用于生成 di.Option，将实现绑定到接口
// 这是一个转发，为了让 core 包的使用者不需要直接引入 di 包
func As[T any]() di.Option {
	return di.As[T]()
}
