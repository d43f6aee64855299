package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// ConfigurationSource 是一个配置来源，Load 返回嵌套的 map
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// FileSource 是来自本地文件的配置源，Watcher 监听这些文件
type FileSource interface {
	ConfigurationSource
	FilePath() string
}

// readOptional 读取文件；optional 为 true 且文件不存在时返回 nil, nil
func readOptional(path string, optional bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if optional && errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// JsonFileSource 读取 JSON 文件
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string     { return "json:" + s.Path }
func (s *JsonFileSource) FilePath() string { return s.Path }

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := readOptional(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}
	result := map[string]any{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return result, nil
}

// YamlFileSource 读取 YAML 文件
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string     { return "yaml:" + s.Path }
func (s *YamlFileSource) FilePath() string { return s.Path }

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := readOptional(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}
	result := map[string]any{}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return result, nil
}

// DotEnvSource 读取 .env 文件，键按环境变量的规则转换
type DotEnvSource struct {
	Path     string
	Optional bool
}

func (s *DotEnvSource) Name() string     { return "dotenv:" + s.Path }
func (s *DotEnvSource) FilePath() string { return s.Path }

func (s *DotEnvSource) Load() (map[string]any, error) {
	env, err := godotenv.Read(s.Path)
	if s.Optional && errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	for key, value := range env {
		setNestedValue(result, envKey(key), parseScalar(value))
	}
	return result, nil
}

// EnvironmentVariableSource 读取进程环境变量。设置了 Prefix 时只取带前缀的变量并去掉前缀。
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string { return "env:" + s.Prefix }

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := map[string]any{}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key, ok = strings.CutPrefix(key, s.Prefix)
		if !ok || key == "" {
			continue
		}
		setNestedValue(result, envKey(key), parseScalar(value))
	}
	return result, nil
}

// envKey 把 APP_SERVER_PORT 转换为 app:server:port
func envKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", ":")
}

// InMemorySource 内存中的配置，Load 返回 Data 的副本
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string { return "memory" }

func (s *InMemorySource) Load() (map[string]any, error) {
	result := map[string]any{}
	mergeMaps(result, s.Data)
	return result, nil
}

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints []string
	Username  string
	Password  string
	// Prefix 是键前缀，/app/server/port 在前缀 /app 下对应 server:port
	Prefix string
	// Timeout 读取超时，默认 5 秒
	Timeout time.Duration
	// DialTimeout 连接超时，默认 5 秒
	DialTimeout time.Duration
}

// EtcdSource 每次 Load 读取前缀下的全部键。
// 值依次尝试按 JSON、YAML 解析，都失败时作为字符串。
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("etcd:%s%s", strings.Join(s.Options.Endpoints, ","), s.Options.Prefix)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("read etcd prefix %s: %w", prefix, err)
	}

	result := map[string]any{}
	for _, kv := range resp.Kvs {
		key := strings.Trim(strings.TrimPrefix(string(kv.Key), s.Options.Prefix), "/")
		if key == "" {
			continue
		}
		setNestedValue(result, strings.ReplaceAll(key, "/", ":"), decodeEtcdValue(kv.Value))
	}
	return result, nil
}

func decodeEtcdValue(raw []byte) any {
	var v any
	if json.Unmarshal(raw, &v) == nil {
		return v
	}
	if yaml.Unmarshal(raw, &v) == nil && v != nil {
		return v
	}
	return string(raw)
}

// parseScalar 把环境变量的字符串值转换为数字或布尔值
func parseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// setNestedValue 按 a:b:c 路径写入，路径上已有非 map 值时放弃
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, exists := current[part]
		if !exists {
			next = map[string]any{}
			current[part] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			return
		}
		current = m
	}
	current[parts[len(parts)-1]] = value
}

// mergeMaps 把 src 深度合并进 dst，src 的嵌套 map 会被复制
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, dstIsMap := dst[k].(map[string]any)
		if !dstIsMap {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}
