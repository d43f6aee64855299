// Package config 合并多个配置源为一棵配置树，提供按路径读取、结构体绑定、
// ${...} 占位符解析和文件变化后的重新加载。
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Configuration 是只读的配置视图，键用 : 或 . 分隔层级
type Configuration interface {
	// Get 返回字符串形式的值，不存在时为空串
	Get(key string) string
	GetWithDefault(key, defaultValue string) string
	GetInt(key string) (int, error)
	GetBool(key string) (bool, error)
	// GetDuration 支持 "5s" 和纳秒整数
	GetDuration(key string) (time.Duration, error)
	// Lookup 返回原始值，可能是 map、切片或数字
	Lookup(key string) (any, bool)
	// GetSection 返回子树的视图，子树不存在时为空配置
	GetSection(key string) Configuration
	// Bind 把 key 下的子树解码到 target，字段名大小写不敏感
	Bind(key string, target any) error
	// GetAll 返回整棵配置树的副本
	GetAll() map[string]any
}

// ReloadableConfiguration 可以从配置源重新加载
type ReloadableConfiguration interface {
	Configuration
	// Reload 按顺序重新加载全部配置源，成功后通知 OnReload 的回调
	Reload() error
	OnReload(fn func())
	Sources() []ConfigurationSource
}

// ConfigurationBuilder 按添加顺序组合配置源，后添加的覆盖先添加的
type ConfigurationBuilder struct {
	sources []ConfigurationSource
}

func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.sources = append(b.sources, source)
	return b
}

func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: isOptional(optional)})
}

func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional(optional)})
}

func (b *ConfigurationBuilder) AddDotEnv(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&DotEnvSource{Path: path, Optional: isOptional(optional)})
}

func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 从 etcd 读取配置，未设置的超时默认 5 秒
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

func isOptional(optional []bool) bool {
	return len(optional) > 0 && optional[0]
}

func (b *ConfigurationBuilder) Build() (Configuration, error) {
	return b.BuildReloadable()
}

// BuildReloadable 立即加载一次全部配置源
func (b *ConfigurationBuilder) BuildReloadable() (ReloadableConfiguration, error) {
	c := &configuration{
		data:    newSnapshot(nil),
		sources: append([]ConfigurationSource(nil), b.sources...),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

type configuration struct {
	data    *snapshot
	sources []ConfigurationSource

	mu        sync.Mutex
	listeners []func()
}

func (c *configuration) Reload() error {
	merged := map[string]any{}
	for _, source := range c.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: load %s: %w", source.Name(), err)
		}
		mergeMaps(merged, loaded)
	}
	c.data.replace(merged)

	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (c *configuration) Sources() []ConfigurationSource {
	return c.sources
}

func (c *configuration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *configuration) Get(key string) string {
	value := c.data.lookup(key)
	if value == nil {
		return ""
	}
	if s, err := cast.ToStringE(value); err == nil {
		return s
	}
	return fmt.Sprint(value)
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	return getAs(c, key, cast.ToIntE)
}

func (c *configuration) GetBool(key string) (bool, error) {
	return getAs(c, key, cast.ToBoolE)
}

func (c *configuration) GetDuration(key string) (time.Duration, error) {
	return getAs(c, key, cast.ToDurationE)
}

func getAs[T any](c *configuration, key string, conv func(any) (T, error)) (T, error) {
	value := c.data.lookup(key)
	if value == nil {
		var zero T
		return zero, fmt.Errorf("key %s not found", key)
	}
	v, err := conv(value)
	if err != nil {
		return v, fmt.Errorf("key %s: %w", key, err)
	}
	return v, nil
}

func (c *configuration) Lookup(key string) (any, bool) {
	value := c.data.lookup(key)
	return value, value != nil
}

func (c *configuration) GetSection(key string) Configuration {
	m, _ := c.data.lookup(key).(map[string]any)
	return &configuration{data: newSnapshot(m)}
}

func (c *configuration) Bind(key string, target any) error {
	data := c.data.lookup(key)
	if data == nil {
		return fmt.Errorf("key %s not found", key)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("bind %q: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := map[string]any{}
	mergeMaps(result, c.data.load())
	return result
}
