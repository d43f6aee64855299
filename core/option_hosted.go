package core

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/hosting"
)

var workerSeq atomic.Int64

// WithHostedServices 注册托管服务管理器，它会收集容器中所有 HostedService bean
func WithHostedServices() Option {
	return func(rt *Runtime) error {
		if rt.Container.Contains(HostedManagerBean) {
			return nil
		}
		_, err := di.Provide(rt.Container, reflect.TypeOf(&hosting.HostedServiceManager{}), di.WithName(HostedManagerBean))
		return err
	}
}

// WithHostedService 注册一个托管服务
// 服务必须实现 HostedService 接口，框架会在启动后异步调用 Start，关闭时调用 Stop。
func WithHostedService(constructor any, opts ...di.Option) Option {
	return func(rt *Runtime) error {
		if err := WithHostedServices()(rt); err != nil {
			return err
		}
		name, err := di.Provide(rt.Container, constructor, opts...)
		if err != nil {
			return fmt.Errorf("WithHostedService: failed to provide service: %w", err)
		}
		def, _ := rt.Container.Definition(name)
		if !def.Type.Implements(di.TypeOf[HostedService]()) {
			return fmt.Errorf("WithHostedService: service %v does not implement core.HostedService", def.Type)
		}
		return nil
	}
}

// WorkerFunc 定义简单的后台任务函数
// 这是一个阻塞函数，通过 ctx.Done() 判断退出。
type WorkerFunc func(ctx context.Context) error

// WithWorker 将一个阻塞的函数注册为后台服务
func WithWorker(fn WorkerFunc) Option {
	return func(rt *Runtime) error {
		if err := WithHostedServices()(rt); err != nil {
			return err
		}
		return rt.Container.Register(&di.Definition{
			Name:  fmt.Sprintf("worker.%d", workerSeq.Add(1)),
			Value: hosting.Worker(fn),
		})
	}
}
