package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleLoggerOptions 控制台输出选项，Output 为空时写 stdout
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者，同步写入
type ConsoleLoggerProvider struct {
	formatter *TextFormatter
	output    io.Writer
	level     *levelVar
	mu        sync.Mutex
}

func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	return &ConsoleLoggerProvider{
		formatter: &TextFormatter{
			IncludeTimestamp: options.IncludeTimestamp,
			TimestampFormat:  options.TimestampFormat,
			ColorOutput:      options.ColorOutput,
		},
		output: options.Output,
		level:  newLevelVar(LogLevelInfo),
	}
}

func (p *ConsoleLoggerProvider) CreateLogger(category string) Logger {
	return &entryLogger{category: category, level: p.level, sink: p.write}
}

func (p *ConsoleLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.level.Set(level)
}

// write 同步写出，多个 Logger 共用 output 时由 mu 保证整行写入
func (p *ConsoleLoggerProvider) write(entry *LogEntry) {
	data, err := p.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: console: %v\n", err)
		return
	}
	p.mu.Lock()
	_, _ = p.output.Write(data)
	p.mu.Unlock()
}

var levelColors = [...]string{
	LogLevelTrace: "\033[90m",
	LogLevelDebug: "\033[36m",
	LogLevelInfo:  "\033[32m",
	LogLevelWarn:  "\033[33m",
	LogLevelError: "\033[31m",
	LogLevelFatal: "\033[35m",
}

// colorize 用 ANSI 颜色包裹文本，未知级别原样返回
func colorize(level LogLevel, text string) string {
	if level < LogLevelTrace || level > LogLevelFatal {
		return text
	}
	return levelColors[level] + text + "\033[0m"
}
