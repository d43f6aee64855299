package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/multierr"
)

// ClientOptions 单个客户端的连接参数，Database 非空时额外注册 mongo.<name>.db
type ClientOptions struct {
	Name        string
	URI         string
	Username    string
	Password    string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
	PingOnStart bool
}

func NewDefaultOptions(name, uri string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		URI:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

func (o *ClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("mongo client name is required")
	case o.URI == "":
		return fmt.Errorf("mongo uri is required")
	}
	return nil
}

func (o *ClientOptions) driverOptions() *options.ClientOptions {
	co := options.Client().ApplyURI(o.URI)
	if o.Username != "" || o.Password != "" {
		co.SetAuth(options.Credential{Username: o.Username, Password: o.Password})
	}
	if o.MaxPoolSize > 0 {
		co.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		co.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		co.SetConnectTimeout(o.Timeout)
	}
	return co
}

type clientEntry struct {
	opts   ClientOptions
	client *mgo.Client
	driver *mongo.Client
}

// ClientFactory 按名称持有 mgo 客户端及其底层驱动客户端，连接在首次操作时建立
type ClientFactory struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]*clientEntry
}

func NewClientFactory() *ClientFactory {
	return &ClientFactory{entries: make(map[string]*clientEntry)}
}

func (f *ClientFactory) Register(opts ClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.entries[opts.Name]; exists {
		return fmt.Errorf("mongo client '%s' already registered", opts.Name)
	}

	driver, err := mongo.Connect(opts.driverOptions())
	if err != nil {
		return fmt.Errorf("failed to create mongo client '%s': %w", opts.Name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	client, err := mgo.NewClient(ctx, opts.URI, opts.driverOptions())
	if err != nil {
		_ = driver.Disconnect(ctx)
		return fmt.Errorf("failed to create mgo client '%s': %w", opts.Name, err)
	}

	f.entries[opts.Name] = &clientEntry{opts: opts, client: client, driver: driver}
	f.names = append(f.names, opts.Name)
	return nil
}

func (f *ClientFactory) entry(name string) (*clientEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.entries[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return e, nil
}

// Client 返回 mgo 客户端
func (f *ClientFactory) Client(name string) (*mgo.Client, error) {
	e, err := f.entry(name)
	if err != nil {
		return nil, err
	}
	return e.client, nil
}

// Driver 返回底层驱动客户端
func (f *ClientFactory) Driver(name string) (*mongo.Client, error) {
	e, err := f.entry(name)
	if err != nil {
		return nil, err
	}
	return e.driver, nil
}

// Database 返回配置的默认数据库，未配置时返回 nil
func (f *ClientFactory) Database(name string) *mongo.Database {
	e, err := f.entry(name)
	if err != nil || e.opts.Database == "" {
		return nil
	}
	return e.driver.Database(e.opts.Database)
}

// Names 按注册顺序返回客户端名称
func (f *ClientFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.names...)
}

// Ping 只检查 PingOnStart 的客户端
func (f *ClientFactory) Ping(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, name := range f.names {
		e := f.entries[name]
		if !e.opts.PingOnStart {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		err := e.driver.Ping(pingCtx, readpref.Primary())
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to mongo '%s': %w", name, err)
		}
	}
	return nil
}

func (f *ClientFactory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for _, name := range f.names {
		e := f.entries[name]
		errs = multierr.Append(errs, wrapClose(name, e.client.Disconnect(ctx)))
		errs = multierr.Append(errs, wrapClose(name, e.driver.Disconnect(ctx)))
	}
	f.entries = make(map[string]*clientEntry)
	f.names = nil
	return errs
}

func wrapClose(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to close client '%s': %w", name, err)
}
