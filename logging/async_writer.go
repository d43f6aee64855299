package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// AsyncWriter 在后台协程里格式化并写出日志。队列满时 WriteLog 阻塞，不丢弃日志。
type AsyncWriter struct {
	out       io.Writer
	formatter Formatter
	queue     chan *LogEntry
	done      chan struct{}
	closing   sync.Once
	closed    atomic.Bool
	onError   atomic.Pointer[func(error)]
}

// NewAsyncWriter 创建并启动写入协程，bufferSize 是队列长度
func NewAsyncWriter(out io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		out:       out,
		formatter: formatter,
		queue:     make(chan *LogEntry, bufferSize),
		done:      make(chan struct{}),
	}
	go w.drain()
	return w
}

// WriteLog 入队；Close 之后的日志被忽略
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	if w.closed.Load() {
		return
	}
	w.queue <- entry
}

// SetErrorHandler 设置格式化或写入失败时的回调，默认打印到 stderr
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.onError.Store(&handler)
}

// Close 写完队列中剩余的日志后返回
func (w *AsyncWriter) Close() error {
	w.closing.Do(func() {
		w.closed.Store(true)
		close(w.queue)
	})
	<-w.done
	return nil
}

func (w *AsyncWriter) drain() {
	defer close(w.done)
	for entry := range w.queue {
		if err := w.write(entry); err != nil {
			w.report(err)
		}
	}
}

func (w *AsyncWriter) write(entry *LogEntry) error {
	data, err := w.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if n := len(data); n == 0 || data[n-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (w *AsyncWriter) report(err error) {
	if h := w.onError.Load(); h != nil && *h != nil {
		(*h)(err)
		return
	}
	fmt.Fprintf(os.Stderr, "logging: async writer: %v\n", err)
}
