package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/logging"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的 HTTP 头
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// RequestID 为每个请求分配 ID，已有的请求头原样沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 返回当前请求的 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog 记录每个请求
func AccessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			logging.Field{Key: "method", Value: c.Request.Method},
			logging.Field{Key: "path", Value: c.FullPath()},
			logging.Field{Key: "status", Value: c.Writer.Status()},
			logging.Field{Key: "duration", Value: time.Since(start).String()},
			logging.Field{Key: "request_id", Value: GetRequestID(c)})
	}
}
