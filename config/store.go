package config

import (
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// snapshot 保存合并后的配置树。Reload 整体替换，读取不加锁。
type snapshot struct {
	data atomic.Pointer[map[string]any]
}

func newSnapshot(data map[string]any) *snapshot {
	s := &snapshot{}
	s.replace(data)
	return s
}

func (s *snapshot) load() map[string]any {
	if p := s.data.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *snapshot) replace(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	s.data.Store(&data)
}

// lookup 按路径查找；路径分隔符为 : 或 .
func (s *snapshot) lookup(path string) any {
	var current any = s.load()
	if path == "" {
		return current
	}
	for _, part := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// 占位符和表达式反复使用相同的键
var segmentCache, _ = lru.New[string, []string](4096)

func splitPath(path string) []string {
	if parts, ok := segmentCache.Get(path); ok {
		return parts
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == ':' || r == '.' })
	segmentCache.Add(path, parts)
	return parts
}
