package logging

import (
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string
	// MaxSize 单个文件最大尺寸，单位 MB
	MaxSize    int
	MaxAge     int
	MaxBackups int
	Compress   bool
	LocalTime  bool
	// JSON 为 true 时每行一个 JSON 对象
	JSON bool
	// BufferSize 异步写入队列长度
	BufferSize int
}

// FileLoggerProvider 文件日志提供者，按大小轮转并异步写入
type FileLoggerProvider struct {
	options FileLoggerOptions
	level   *levelVar

	once   sync.Once
	rotate *lumberjack.Logger
	writer *AsyncWriter
}

func NewFileLoggerProvider(options FileLoggerOptions) *FileLoggerProvider {
	if options.BufferSize <= 0 {
		options.BufferSize = 1024
	}
	return &FileLoggerProvider{
		options: options,
		level:   newLevelVar(LogLevelInfo),
	}
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	p.once.Do(p.open)
	return &entryLogger{category: category, level: p.level, sink: p.writer.WriteLog}
}

func (p *FileLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.level.Set(level)
}

func (p *FileLoggerProvider) open() {
	p.rotate = &lumberjack.Logger{
		Filename:   p.options.Path,
		MaxSize:    p.options.MaxSize,
		MaxAge:     p.options.MaxAge,
		MaxBackups: p.options.MaxBackups,
		Compress:   p.options.Compress,
		LocalTime:  p.options.LocalTime,
	}
	var formatter Formatter = NewTextFormatter()
	if p.options.JSON {
		formatter = NewJsonFormatter()
	}
	p.writer = NewAsyncWriter(p.rotate, formatter, p.options.BufferSize)
}

// Close 刷新队列并关闭文件
func (p *FileLoggerProvider) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return err
	}
	return p.rotate.Close()
}
