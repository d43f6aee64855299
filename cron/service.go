package cron

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/robfig/cron/v3"
)

var stringType = reflect.TypeOf("")

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string // 可以包含 ${...} 占位符
	name    string
	handler any
}

// Service Cron 定时任务托管服务。
// 任务表达式在 Start 时求值，处理函数的参数在每次执行时从容器解析。
type Service struct {
	cron      *cron.Cron
	container *di.Container
	logger    logging.Logger
	mu        sync.RWMutex
	jobs      map[string]cron.EntryID // 任务名称到任务ID的映射
	jobDefs   []jobDefinition
}

// options Cron 服务配置选项
type options struct {
	// Location 时区设置，默认 UTC
	Location string
	// EnableSeconds 是否启用秒级精度（默认分钟级）
	EnableSeconds bool
	// EnableCronLogger 是否启用 cron 库的内部调度日志（默认 false）
	EnableCronLogger bool
}

// newService 创建 Cron 托管服务
func newService(container *di.Container, logger logging.Logger, opt options) (*Service, error) {
	loc, err := loadLocation(opt.Location)
	if err != nil {
		return nil, err
	}

	cronOpts := []cron.Option{cron.WithLocation(loc)}
	if opt.EnableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	cronOpts = append(cronOpts, cron.WithChain(cron.Recover(newCronLogger(logger))))
	if opt.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Service{
		cron:      cron.New(cronOpts...),
		container: container,
		logger:    logger,
		jobs:      make(map[string]cron.EntryID),
	}, nil
}

// schedule 求值任务表达式、包装处理函数并登记到 cron
func (s *Service) schedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobDefs {
		spec, err := s.container.Evaluate(job.spec, stringType)
		if err != nil {
			return fmt.Errorf("cron: job '%s' spec: %w", job.name, err)
		}
		run, err := s.wrap(job)
		if err != nil {
			return err
		}
		entryID, err := s.cron.AddFunc(spec.(string), run)
		if err != nil {
			return fmt.Errorf("failed to add cron job '%s': %w", job.name, err)
		}
		s.jobs[job.name] = entryID
		s.logger.Info("cron job registered",
			logging.Field{Key: "job", Value: job.name},
			logging.Field{Key: "spec", Value: spec})
	}
	s.jobDefs = nil
	return nil
}

// wrap 把处理函数包装为 cron 任务：func() 直接调用，其他函数通过容器注入参数
func (s *Service) wrap(job jobDefinition) (func(), error) {
	log := s.logger.WithFields(logging.Field{Key: "job", Value: job.name})

	if fn, ok := job.handler.(func()); ok {
		return func() {
			log.Debug("cron job started")
			fn()
		}, nil
	}
	if reflect.TypeOf(job.handler).Kind() != reflect.Func {
		return nil, fmt.Errorf("cron: job '%s' handler must be a function, got %T", job.name, job.handler)
	}

	return func() {
		log.Debug("cron job started")
		if _, err := di.Invoke(s.container, job.handler); err != nil {
			log.Error("cron job failed", logging.Field{Key: "error", Value: err.Error()})
		}
	}, nil
}

// Jobs 返回已登记的任务名称
func (s *Service) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Remove 移除定时任务
func (s *Service) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("cron job removed", logging.Field{Key: "job", Value: name})
	}
}

// Start 实现 HostedService.Start，阻塞直到 ctx 取消
func (s *Service) Start(ctx context.Context) error {
	if err := s.schedule(); err != nil {
		return err
	}
	s.logger.Info("cron service starting", logging.Field{Key: "jobs", Value: len(s.jobs)})
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 实现 HostedService.Stop，等待正在执行的任务完成
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("cron service stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn("cron service stop timeout")
		return ctx.Err()
	}
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
