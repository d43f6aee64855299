package redis_test

import "github.com/gocrud/ioc/config"

func newConfig(data map[string]any) (config.ReloadableConfiguration, error) {
	return config.NewConfigurationBuilder().AddInMemory(data).BuildReloadable()
}
