package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerProvider 把日志转发给 zap
type ZapLoggerProvider struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// NewZapLoggerProvider 包装已有的 zap.Logger；base 为 nil 时使用 zap 的生产配置
func NewZapLoggerProvider(base *zap.Logger) (*ZapLoggerProvider, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if base == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		base = l
	}
	return &ZapLoggerProvider{base: base, level: level}, nil
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	return &zapLogger{provider: p, l: p.base.Named(category), category: category}
}

func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.level.SetLevel(zapLevel(level))
}

// Sync 刷新 zap 缓冲
func (p *ZapLoggerProvider) Sync() error {
	return p.base.Sync()
}

type zapLogger struct {
	provider *ZapLoggerProvider
	l        *zap.Logger
	category string
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }

func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }

func (l *zapLogger) Info(msg string, fields ...Field) { l.Log(LogLevelInfo, msg, fields...) }

func (l *zapLogger) Warn(msg string, fields ...Field) { l.Log(LogLevelWarn, msg, fields...) }

func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *zapLogger) Fatal(msg string, fields ...Field) { l.Log(LogLevelFatal, msg, fields...) }

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	zl := zapLevel(level)
	if !l.provider.level.Enabled(zl) {
		return
	}
	// zap 的 Fatal 会调用 os.Exit
	l.l.Log(zl, msg, zapFields(fields)...)
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{provider: l.provider, l: l.l.With(zapFields(fields)...), category: l.category}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{provider: l.provider, l: l.provider.base.Named(category), category: category}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

// zapLevel 映射日志级别；zap 没有 Trace，按 Debug 处理
func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}
