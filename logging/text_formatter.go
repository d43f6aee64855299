package logging

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var textBuffers = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// TextFormatter 输出单行文本：时间 级别 [类别] 消息 {k=v, ...}
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buf := textBuffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer textBuffers.Put(buf)

	if f.IncludeTimestamp {
		buf.WriteString(entry.Time.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}
	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, entry.Level.String()))
	} else {
		buf.WriteString(entry.Level.String())
	}
	if entry.Category != "" {
		buf.WriteString(" [" + entry.Category + "]")
	}
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	for i, field := range entry.Fields {
		if i == 0 {
			buf.WriteString(" {")
		} else {
			buf.WriteString(", ")
		}
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(field.Value))
	}
	if len(entry.Fields) > 0 {
		buf.WriteByte('}')
	}
	buf.WriteByte('\n')

	// buf 归还后会被复用
	return bytes.Clone(buf.Bytes()), nil
}

// formatValue 对含空白的字符串加引号，保持一行一条
func formatValue(v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case error:
		s = val.Error()
	case fmt.Stringer:
		s = val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
	if strings.ContainsAny(s, " \t\n\"") {
		return strconv.Quote(s)
	}
	return s
}
