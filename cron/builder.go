package cron

import (
	"fmt"
	"time"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Builder Cron 配置构建器
type Builder struct {
	opts options
	jobs []jobDefinition
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{opts: options{Location: "UTC"}}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.opts.EnableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.opts.Location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.opts.EnableCronLogger = true
	return b
}

// AddJob 添加任务。
// spec 可以是 cron 表达式或占位符，例如 "${jobs.sync:@every 5m}"；
// handler 可以是 func()，也可以是参数从容器注入的任意函数：
//
//	builder.AddJob("0 */5 * * * *", "sync-data", func(svc *DataService, logger logging.Logger) error {
//	    return svc.Sync()
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// Build 构建 CronService，没有任何任务时返回 nil
func (b *Builder) Build(container *di.Container, logger logging.Logger) (*Service, error) {
	if len(b.jobs) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(b.jobs))
	for _, job := range b.jobs {
		if job.name == "" {
			return nil, fmt.Errorf("cron: job name is required")
		}
		if seen[job.name] {
			return nil, fmt.Errorf("cron: job '%s' already configured", job.name)
		}
		seen[job.name] = true
	}

	svc, err := newService(container, logger, b.opts)
	if err != nil {
		return nil, err
	}
	svc.jobDefs = append([]jobDefinition(nil), b.jobs...)
	return svc, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid location %q: %w", name, err)
	}
	return loc, nil
}
