package logging

import (
	"os"

	"go.uber.org/zap"
)

// LoggingBuilder 组装日志提供者，未调用 SetMinimumLevel 时级别为 INFO
//
//	factory := logging.NewLoggingBuilder().
//		SetMinimumLevel(logging.LogLevelDebug).
//		AddConsole().
//		AddFile("logs/app.log").
//		Build()
type LoggingBuilder struct {
	providers []LoggerProvider
	level     LogLevel
}

func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{level: LogLevelInfo}
}

func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.level = level
	return b
}

func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 输出到 stdout，带时间戳和颜色
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 写入 path，默认 100MB 轮转并保留 10 个备份
func (b *LoggingBuilder) AddFile(path string, options ...FileLoggerOptions) *LoggingBuilder {
	opts := FileLoggerOptions{MaxSize: 100, MaxBackups: 10}
	if len(options) > 0 {
		opts = options[0]
	}
	opts.Path = path
	return b.AddProvider(NewFileLoggerProvider(opts))
}

// AddZap 转发给 zap；base 为 nil 时使用生产配置
func (b *LoggingBuilder) AddZap(base *zap.Logger) (*LoggingBuilder, error) {
	provider, err := NewZapLoggerProvider(base)
	if err != nil {
		return b, err
	}
	return b.AddProvider(provider), nil
}

// Build 创建工厂，提供者的级别统一设为构建器的级别
func (b *LoggingBuilder) Build() LoggerFactory {
	factory := &loggerFactory{level: b.level}
	for _, p := range b.providers {
		factory.AddProvider(p)
	}
	return factory
}
