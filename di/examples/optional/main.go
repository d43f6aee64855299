package main

import (
	"errors"

	"github.com/gocrud/ioc/di"
)

// 定义接口
type Logger interface {
	Log(msg string)
}

type Cache interface {
	Get(key string) string
	Set(key, value string)
}

type Metrics interface {
	Inc(name string)
}

// 实现
type ConsoleLogger struct {
	Prefix string
}

func (l *ConsoleLogger) Log(msg string) {
	println(l.Prefix + ": " + msg)
}

type MemoryCache struct{}

func (c *MemoryCache) Get(key string) string { return "" }
func (c *MemoryCache) Set(key, value string) {}

type PrometheusMetrics struct{}

func (m *PrometheusMetrics) Inc(name string) {}

// 服务 - 演示可选依赖
type UserService struct {
	Logger  Logger  `autowired:""`         // 必需：日志是必须的
	Cache   Cache   `qualifier:"cache,?"`  // 可选：按名称
	Metrics Metrics `autowired:"optional"` // 可选：按类型
}

func (s *UserService) GetUser(id string) {
	s.Logger.Log("Getting user: " + id)

	// 安全使用可选依赖
	if s.Cache != nil {
		s.Cache.Get(id)
		s.Logger.Log("Cache hit")
	} else {
		s.Logger.Log("Cache not available")
	}

	if s.Metrics != nil {
		s.Metrics.Inc("user.get")
	}
}

func build(register func(c *di.Container)) *di.Container {
	c := di.NewContainer()
	di.Register[Logger](c, di.WithValue(&ConsoleLogger{Prefix: "APP"}))
	di.Register[*UserService](c)
	register(c)
	if err := c.Build(); err != nil {
		panic(err)
	}
	return c
}

func main() {
	// 场景 1: 只注册必需的依赖
	println("=== 场景 1: 最小依赖 ===")
	c := build(func(*di.Container) {})
	di.MustResolve[*UserService](c).GetUser("user123")

	// 场景 2: 完整配置（所有依赖都注册）
	println("\n=== 场景 2: 完整依赖 ===")
	c = build(func(c *di.Container) {
		di.Register[Cache](c, di.WithName("cache"), di.WithValue(&MemoryCache{}))
		di.Register[Metrics](c, di.WithValue(&PrometheusMetrics{}))
	})
	di.MustResolve[*UserService](c).GetUser("user456")

	// 场景 3: 检查依赖是否存在
	println("\n=== 场景 3: Resolve 错误 ===")
	c = build(func(*di.Container) {})
	if _, err := di.Resolve[Metrics](c); di.IsNotFound(err) {
		println("Metrics not available:", err.Error())
	}

	// 场景 4: 必需依赖缺失时 Build 失败
	println("\n=== 场景 4: 缺失必需依赖 ===")
	broken := di.NewContainer()
	di.Register[*UserService](broken)
	err := broken.Build()
	var creation *di.BeanCreationError
	println("Build failed:", errors.As(err, &creation), err.Error())
}
