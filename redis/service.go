package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// ClientOptions 单个 Redis 客户端的连接参数；PingOnStart 时在启动钩子中检查连通性
type ClientOptions struct {
	Name         string
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	PingOnStart  bool
}

func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

func (o *ClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("redis client name is required")
	case o.Addr == "":
		return fmt.Errorf("redis address is required")
	case o.DB < 0:
		return fmt.Errorf("redis database number must be non-negative")
	case o.DialTimeout <= 0:
		return fmt.Errorf("redis dial timeout must be positive")
	}
	return nil
}

func (o *ClientOptions) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		MaxRetries:   o.MaxRetries,
	}
}

type clientEntry struct {
	opts   ClientOptions
	client *redis.Client
}

// ClientFactory 按名称持有 Redis 客户端，连接惰性建立
type ClientFactory struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]clientEntry
}

func NewClientFactory() *ClientFactory {
	return &ClientFactory{entries: make(map[string]clientEntry)}
}

func (f *ClientFactory) Register(opts ClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.entries[opts.Name]; exists {
		return fmt.Errorf("redis client '%s' already registered", opts.Name)
	}
	f.entries[opts.Name] = clientEntry{opts: opts, client: redis.NewClient(opts.redisOptions())}
	f.names = append(f.names, opts.Name)
	return nil
}

func (f *ClientFactory) Get(name string) (*redis.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	e, ok := f.entries[name]
	if !ok {
		return nil, fmt.Errorf("redis client '%s' not found", name)
	}
	return e.client, nil
}

// Names 按注册顺序返回客户端名称
func (f *ClientFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.names...)
}

// Ping 只检查 PingOnStart 的客户端，超时取 DialTimeout
func (f *ClientFactory) Ping(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, name := range f.names {
		e := f.entries[name]
		if !e.opts.PingOnStart {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, e.opts.DialTimeout)
		err := e.client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis '%s': %w", name, err)
		}
	}
	return nil
}

func (f *ClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for _, name := range f.names {
		if err := f.entries[name].client.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close client '%s': %w", name, err))
		}
	}
	f.entries = make(map[string]clientEntry)
	f.names = nil
	return errs
}
