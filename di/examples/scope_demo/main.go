package main

import (
	"fmt"

	"github.com/gocrud/ioc/di"
)

// ===== 接口定义 =====

type Logger interface {
	Log(msg string)
}

type RequestContext interface {
	GetRequestID() string
	SetValue(key string, value any)
	GetValue(key string) any
}

type UserRepository interface {
	GetUserByID(id int) string
}

type Handler interface {
	Handle(ctx RequestContext)
}

// ===== 实现 =====

type ConsoleLogger struct {
	instanceID int
}

var loggerInstanceCounter int

func NewConsoleLogger() Logger {
	loggerInstanceCounter++
	return &ConsoleLogger{instanceID: loggerInstanceCounter}
}

func (l *ConsoleLogger) Log(msg string) {
	fmt.Printf("[Logger #%d] %s\n", l.instanceID, msg)
}

type HttpRequestContext struct {
	requestID string
	data      map[string]any
	logger    Logger
}

var requestContextCounter int

func NewRequestContext(logger Logger) RequestContext {
	requestContextCounter++
	return &HttpRequestContext{
		requestID: fmt.Sprintf("REQ-%d", requestContextCounter),
		data:      make(map[string]any),
		logger:    logger,
	}
}

func (ctx *HttpRequestContext) GetRequestID() string {
	return ctx.requestID
}

func (ctx *HttpRequestContext) SetValue(key string, value any) {
	ctx.data[key] = value
	ctx.logger.Log(fmt.Sprintf("[%s] Set %s", ctx.requestID, key))
}

func (ctx *HttpRequestContext) GetValue(key string) any {
	return ctx.data[key]
}

type UserRepo struct {
	Logger Logger `autowired:""`
}

func (r *UserRepo) GetUserByID(id int) string {
	r.Logger.Log(fmt.Sprintf("Querying user %d from database", id))
	return fmt.Sprintf("User-%d", id)
}

// ProfileHandler 排在 AuditHandler 之前
type ProfileHandler struct {
	Repo UserRepository `autowired:""`
}

func (h *ProfileHandler) Handle(ctx RequestContext) {
	ctx.SetValue("lastUser", h.Repo.GetUserByID(100))
}

func (h *ProfileHandler) Order() int { return 1 }

type AuditHandler struct {
	Logger Logger `autowired:""`
}

func (h *AuditHandler) Handle(ctx RequestContext) {
	h.Logger.Log(fmt.Sprintf("[%s] audit lastUser=%v", ctx.GetRequestID(), ctx.GetValue("lastUser")))
}

// Dispatcher 按顺序调用全部 Handler，每个请求新建一个 RequestContext
type Dispatcher struct {
	Handlers []Handler               `beans:""`
	Names    di.BeanNames[Handler]   `beannames:""`
	Contexts di.Lazy[RequestContext] `autowired:""`
}

func (d *Dispatcher) Dispatch() {
	ctx := d.Contexts.MustGet()
	for _, h := range d.Handlers {
		h.Handle(ctx)
	}
}

// ===== 主程序 =====

func main() {
	fmt.Println("=== DI Container Scope Demo ===")
	fmt.Println()

	// 创建容器
	container := di.NewContainer()

	// 1. Logger 为 Singleton（全局共享）
	di.Register[Logger](container, di.WithFactory(NewConsoleLogger))

	// 2. RequestContext 为 Prototype（每次查找新建）
	di.Register[RequestContext](container, di.WithFactory(NewRequestContext), di.WithPrototype())

	// 3. UserRepository 为 Singleton
	di.Register[UserRepository](container, di.Use[*UserRepo]())

	// 4. Handler 通过实例收集器注入，AuditHandler 先注册但排在后面
	di.Register[Handler](container, di.Use[*AuditHandler](), di.WithName("audit"))
	di.Register[Handler](container, di.Use[*ProfileHandler](), di.WithName("profile"))
	di.Register[*Dispatcher](container)

	// 构建容器
	if err := container.Build(); err != nil {
		panic(err)
	}

	fmt.Println("Container built successfully!")

	dispatcher := di.MustResolve[*Dispatcher](container)
	fmt.Printf("Handlers: %v\n", dispatcher.Names)

	for i := 1; i <= 3; i++ {
		fmt.Printf("\n--- Handling Request #%d ---\n", i)
		dispatcher.Dispatch()
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Logger instances created: %d (Expected: 1, because it's Singleton)\n", loggerInstanceCounter)
	fmt.Printf("RequestContext instances created: %d (Expected: 3, one per dispatch)\n", requestContextCounter)
}
