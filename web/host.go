package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/logging"
)

// Host Web 主机，作为托管服务运行
type Host struct {
	// Controllers 由容器按顺序注入
	Controllers []Controller `beans:",optional"`

	port   int
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	mountOnce sync.Once
	addrMu    sync.RWMutex
}

// Address 获取监听地址 (e.g., "[::]:50234")，仅在 Start 后有效
func (h *Host) Address() string {
	h.addrMu.RLock()
	defer h.addrMu.RUnlock()
	return h.server.Addr
}

// Handler 注册控制器路由并返回 HTTP 处理器
func (h *Host) Handler() http.Handler {
	h.mountOnce.Do(func() {
		for _, ctrl := range h.Controllers {
			ctrl.MountRoutes(h.engine)
			if h.logger != nil {
				h.logger.Debug("mapped controller routes", logging.Field{Key: "controller", Value: fmt.Sprintf("%T", ctrl)})
			}
		}
	})
	return h.engine
}

// Start 启动 Web 主机，阻塞直到服务退出
func (h *Host) Start(ctx context.Context) error {
	h.server.Handler = h.Handler()

	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	h.addrMu.Lock()
	h.server.Addr = ln.Addr().String()
	h.addrMu.Unlock()

	if h.logger != nil {
		h.logger.Info("web host started", logging.Field{Key: "address", Value: ln.Addr().String()})
	}

	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		if h.logger != nil {
			h.logger.Error("failed to shutdown web host gracefully", logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	}
	if h.logger != nil {
		h.logger.Info("web host stopped")
	}
	return nil
}
