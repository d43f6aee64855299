package logging

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JsonFormatter 每条日志输出一个 JSON 对象，字段放在 fields 下
type JsonFormatter struct {
	TimestampFormat string
}

func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			// error 没有可导出字段，按文本输出
			if err, ok := field.Value.(error); ok {
				fields[field.Key] = err.Error()
				continue
			}
			fields[field.Key] = field.Value
		}
		data["fields"] = fields
	}
	return jsonAPI.Marshal(data)
}
