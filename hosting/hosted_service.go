package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/ioc/logging"
	"golang.org/x/sync/errgroup"
)

// HostedService 托管服务接口（类似于 .NET Core IHostedService）
// 框架会自动在 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑，当 Start 的 context 被取消时服务应自动停止。
	Stop(ctx context.Context) error
}

// HostedServiceManager 托管服务管理器。
// 作为 bean 注册时，容器会把所有实现 HostedService 的 bean 按顺序注入 Services。
type HostedServiceManager struct {
	Services []HostedService `beans:",optional"`
	Logger   logging.Logger  `autowired:"optional"`

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger, services ...HostedService) *HostedServiceManager {
	return &HostedServiceManager{Services: services, Logger: logger}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Services = append(m.Services, service)
}

func (m *HostedServiceManager) logger() logging.Logger {
	if m.Logger == nil {
		return logging.Nop()
	}
	return m.Logger.WithCategory("hosting")
}

// StartAll 在独立的 goroutine 中启动所有托管服务。
// 服务非正常退出的错误发送到返回的通道。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)
	errCh := make(chan error, len(m.Services))
	log := m.logger()
	log.Info("starting hosted services", logging.Field{Key: "count", Value: len(m.Services)})

	for _, service := range m.Services {
		m.wg.Add(1)
		go func(svc HostedService) {
			defer m.wg.Done()
			name := fmt.Sprintf("%T", svc)

			err := svc.Start(ctx)
			switch {
			case err == nil:
				log.Debug("hosted service completed", logging.Field{Key: "service", Value: name})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				log.Debug("hosted service stopped (context done)", logging.Field{Key: "service", Value: name})
			default:
				log.Error("hosted service failed",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- fmt.Errorf("hosted service %s: %w", name, err)
			}
		}(service)
	}
	return errCh
}

// StopAll 取消所有服务的 context，并发调用 Stop，然后等待 Start 返回
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.Services...)
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	log := m.logger()
	log.Info("stopping hosted services", logging.Field{Key: "count", Value: len(services)})

	g, gctx := errgroup.WithContext(ctx)
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		g.Go(func() error {
			if err := svc.Stop(gctx); err != nil {
				return fmt.Errorf("stop %T: %w", svc, err)
			}
			return nil
		})
	}
	err := g.Wait()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("hosted services did not exit before shutdown timeout")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Wait 等待所有服务的 Start 返回
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

// Worker 把阻塞函数适配为 HostedService
type Worker func(ctx context.Context) error

// Start 运行函数直到 ctx 取消
func (w Worker) Start(ctx context.Context) error {
	return w(ctx)
}

// Stop 无需额外清理
func (w Worker) Stop(context.Context) error {
	return nil
}
