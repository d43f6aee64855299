package logging

import (
	"os"
	"sync/atomic"
	"time"
)

// levelVar 是提供者与其创建的 Logger 共享的最小级别
type levelVar struct {
	v atomic.Int32
}

func newLevelVar(level LogLevel) *levelVar {
	lv := &levelVar{}
	lv.Set(level)
	return lv
}

func (l *levelVar) Set(level LogLevel) { l.v.Store(int32(level)) }

func (l *levelVar) Level() LogLevel { return LogLevel(l.v.Load()) }

// entryLogger 把日志组装为 LogEntry 交给 sink，控制台和文件提供者共用
type entryLogger struct {
	category string
	fields   []Field
	level    *levelVar
	sink     func(*LogEntry)
}

func (l *entryLogger) Trace(msg string, fields ...Field) {
	l.Log(LogLevelTrace, msg, fields...)
}

func (l *entryLogger) Debug(msg string, fields ...Field) {
	l.Log(LogLevelDebug, msg, fields...)
}

func (l *entryLogger) Info(msg string, fields ...Field) {
	l.Log(LogLevelInfo, msg, fields...)
}

func (l *entryLogger) Warn(msg string, fields ...Field) {
	l.Log(LogLevelWarn, msg, fields...)
}

func (l *entryLogger) Error(msg string, fields ...Field) {
	l.Log(LogLevelError, msg, fields...)
}

func (l *entryLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *entryLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.level.Level() {
		return
	}
	l.sink(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *entryLogger) WithFields(fields ...Field) Logger {
	return &entryLogger{
		category: l.category,
		fields:   mergeFields(l.fields, fields),
		level:    l.level,
		sink:     l.sink,
	}
}

func (l *entryLogger) WithCategory(category string) Logger {
	return &entryLogger{
		category: category,
		fields:   l.fields,
		level:    l.level,
		sink:     l.sink,
	}
}
