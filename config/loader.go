package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LoadOptions 配置加载选项
type LoadOptions struct {
	Paths     []string
	DotEnv    []string
	EnvPrefix string
	Optional  bool
	Values    map[string]any
}

// LoadOption 配置加载选项函数
type LoadOption func(*LoadOptions)

// WithFiles 按扩展名（.json/.yaml/.yml/.env）添加配置文件
func WithFiles(paths ...string) LoadOption {
	return func(o *LoadOptions) {
		o.Paths = append(o.Paths, paths...)
	}
}

// WithEnvPrefix 只读取带前缀的环境变量
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *LoadOptions) {
		o.EnvPrefix = prefix
	}
}

// WithOptionalFiles 文件不存在时忽略
func WithOptionalFiles() LoadOption {
	return func(o *LoadOptions) {
		o.Optional = true
	}
}

// WithValues 添加内存配置，优先级最低
func WithValues(values map[string]any) LoadOption {
	return func(o *LoadOptions) {
		o.Values = values
	}
}

// LoadFiles 依次加载内存配置、文件和环境变量，后者覆盖前者
func LoadFiles(opts ...LoadOption) (ReloadableConfiguration, error) {
	options := &LoadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	builder := NewConfigurationBuilder()
	if options.Values != nil {
		builder.AddInMemory(options.Values)
	}
	for _, p := range options.Paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".json":
			builder.AddJsonFile(p, options.Optional)
		case ".yaml", ".yml":
			builder.AddYamlFile(p, options.Optional)
		case ".env":
			builder.AddDotEnv(p, options.Optional)
		default:
			return nil, fmt.Errorf("config: unsupported config file %s", p)
		}
	}
	builder.AddEnvironmentVariables(options.EnvPrefix)
	return builder.BuildReloadable()
}
