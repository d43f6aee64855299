package etcd

import (
	"context"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/multierr"
)

// ClientOptions 单个 etcd 客户端的连接参数，全部字段都可由配置节绑定。
// PingOnStart 时在启动钩子中查询第一个节点的状态。
type ClientOptions struct {
	Name               string
	Endpoints          []string
	DialTimeout        time.Duration
	Username           string
	Password           string
	AutoSyncInterval   time.Duration
	MaxCallSendMsgSize int
	MaxCallRecvMsgSize int
	PingOnStart        bool
}

func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

func (o *ClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("etcd client name is required")
	case len(o.Endpoints) == 0:
		return fmt.Errorf("etcd endpoints are required")
	case o.DialTimeout <= 0:
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	return nil
}

func (o *ClientOptions) clientConfig() clientv3.Config {
	cfg := clientv3.Config{
		Endpoints:          o.Endpoints,
		DialTimeout:        o.DialTimeout,
		AutoSyncInterval:   o.AutoSyncInterval,
		MaxCallSendMsgSize: o.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: o.MaxCallRecvMsgSize,
	}
	if o.Username != "" {
		cfg.Username, cfg.Password = o.Username, o.Password
	}
	return cfg
}

type clientEntry struct {
	opts   ClientOptions
	client *clientv3.Client
}

// ClientFactory 按名称持有 etcd 客户端，连接在后台建立
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
		return fmt.Errorf("etcd client '%s' already registered", opts.Name)
	}
	client, err := clientv3.New(opts.clientConfig())
	if err != nil {
		return fmt.Errorf("failed to create etcd client: %w", err)
	}
	f.entries[opts.Name] = clientEntry{opts: opts, client: client}
	f.names = append(f.names, opts.Name)
	return nil
}

func (f *ClientFactory) Get(name string) (*clientv3.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	e, ok := f.entries[name]
	if !ok {
		return nil, fmt.Errorf("etcd client '%s' not found", name)
	}
	return e.client, nil
}

// Names 按注册顺序返回客户端名称
func (f *ClientFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.names...)
}

func (f *ClientFactory) Ping(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, name := range f.names {
		e := f.entries[name]
		if !e.opts.PingOnStart {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, e.opts.DialTimeout)
		_, err := e.client.Status(pingCtx, e.opts.Endpoints[0])
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to etcd '%s': %w", name, err)
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
