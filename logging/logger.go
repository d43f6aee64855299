// Package logging 提供分级、分类别的日志接口，以及控制台、文件和 zap 三种输出。
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// LogLevel 日志级别，数值越大越严重
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < LogLevelTrace || l > LogLevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel 解析配置中的日志级别，大小写不敏感，空串为 INFO
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return LogLevelInfo, nil
	case "WARNING":
		return LogLevelWarn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), nil
		}
	}
	return LogLevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// Field 结构化字段
type Field struct {
	Key   string
	Value any
}

// Logger 是框架各处使用的日志接口。Fatal 记录后退出进程。
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 按类别创建 Logger，日志分发给全部提供者
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
	// Close 关闭实现了 io.Closer 的提供者
	Close() error
}

// LoggerProvider 是一种日志输出
type LoggerProvider interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
}

type loggerFactory struct {
	mu        sync.RWMutex
	providers []LoggerProvider
	level     LogLevel
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	loggers := make([]Logger, len(f.providers))
	for i, p := range f.providers {
		loggers[i] = p.CreateLogger(category)
	}
	return &fanoutLogger{loggers: loggers, level: f.level}
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(f.level)
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
	for _, p := range f.providers {
		p.SetMinimumLevel(level)
	}
}

func (f *loggerFactory) Close() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var errs error
	for _, p := range f.providers {
		if c, ok := p.(io.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	return errs
}

// fanoutLogger 把一条日志分发给每个提供者的 Logger。
// 级别在创建时确定，之后 SetMinimumLevel 只影响提供者。
type fanoutLogger struct {
	loggers []Logger
	level   LogLevel
}

func (l *fanoutLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *fanoutLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *fanoutLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *fanoutLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *fanoutLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *fanoutLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *fanoutLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	for _, logger := range l.loggers {
		logger.Log(level, msg, fields...)
	}
}

func (l *fanoutLogger) WithFields(fields ...Field) Logger {
	return l.derive(func(logger Logger) Logger { return logger.WithFields(fields...) })
}

func (l *fanoutLogger) WithCategory(category string) Logger {
	return l.derive(func(logger Logger) Logger { return logger.WithCategory(category) })
}

func (l *fanoutLogger) derive(fn func(Logger) Logger) Logger {
	loggers := make([]Logger, len(l.loggers))
	for i, logger := range l.loggers {
		loggers[i] = fn(logger)
	}
	return &fanoutLogger{loggers: loggers, level: l.level}
}

// mergeFields 总是返回新切片，派生出的 Logger 互不影响
func mergeFields(base, extra []Field) []Field {
	if len(extra) == 0 {
		return base
	}
	out := make([]Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
