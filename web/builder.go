package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Controller 由控制器 bean 实现，Host 启动时收集全部 Controller 并注册路由
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger      logging.Logger
	port        int
	engine      *gin.Engine
	controllers []any // 控制器构造函数或实例
	actuator    bool
	gatherer    prometheus.Gatherer
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID())

	return &Builder{
		port:   8080,
		engine: engine,
	}
}

// UseLogger 设置日志记录器，同时启用访问日志
func (b *Builder) UseLogger(logger logging.Logger) *Builder {
	b.logger = logger
	b.engine.Use(AccessLog(logger))
	return b
}

// UsePort 设置端口，0 表示随机端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器，可以是：
//  1. 构造函数 (例如 NewUserController)，参数由容器注入
//  2. 控制器实例指针 (例如 &UserController{})，执行字段注入
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// UseActuator 启用 /actuator 端点；gatherer 为 nil 时使用默认注册表
func (b *Builder) UseActuator(gatherer prometheus.Gatherer) *Builder {
	b.actuator = true
	b.gatherer = gatherer
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RegisterServices 把控制器（以及 actuator）注册到容器，必须在容器 Build 之前调用
func (b *Builder) RegisterServices(container *di.Container) error {
	for _, item := range b.controllers {
		name, err := di.Provide(container, item)
		if err != nil {
			return fmt.Errorf("web: failed to register controller %T: %w", item, err)
		}
		def, _ := container.Definition(name)
		if !def.Type.Implements(di.TypeOf[Controller]()) {
			return fmt.Errorf("web: %v does not implement web.Controller", def.Type)
		}
	}
	if b.actuator {
		gatherer := b.gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		if _, err := di.Provide(container, newActuator(container, gatherer), di.WithName(ActuatorBean)); err != nil {
			return err
		}
	}
	return nil
}

// Build 构建 Web 主机，控制器在主机注入时由容器收集
func (b *Builder) Build() *Host {
	return &Host{
		port:   b.port,
		engine: b.engine,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine,
		},
		logger: b.logger,
	}
}
