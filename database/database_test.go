package database_test

import (
	"context"
	"testing"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/database"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

type userRepository struct {
	Master *gorm.DB `resource:"db.master"`
	Slave  *gorm.DB `qualifier:"db.slave,optional"`
	DB     *gorm.DB `autowired:""`
}

func (r *userRepository) Create(name string) error {
	return r.Master.Create(&User{Name: name}).Error
}

func TestDatabaseFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"databases": map[string]any{
			"master": map[string]any{
				"driver":       "sqlite",
				"dsn":          "file::memory:?cache=shared",
				"maxOpenConns": 5,
			},
		},
	}).BuildReloadable()
	require.NoError(t, err)

	rt := core.NewRuntime()
	rt.SetConfiguration(cfg)
	require.NoError(t, rt.Apply(database.FromConfig("databases", &User{})))
	di.Register[*userRepository](rt.Container)
	require.NoError(t, rt.Build())

	repo, err := di.Resolve[*userRepository](rt.Container)
	require.NoError(t, err)
	require.NotNil(t, repo.Master)
	assert.Nil(t, repo.Slave)
	assert.Same(t, repo.Master, repo.DB)

	sqlDB, err := repo.Master.DB()
	require.NoError(t, err)
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, repo.Create("test"))
	var count int64
	require.NoError(t, repo.Master.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, rt.Stop(context.Background()))
}

func TestDatabaseBuilder_Errors(t *testing.T) {
	builder := database.NewBuilder()

	builder.Add("invalid", nil, nil)
	builder.Add("dup", nil, func(o *database.Options) {})
	database.WithSqlite("twice", ":memory:")(builder)
	database.WithSqlite("twice", ":memory:")(builder)

	_, err := builder.Build(logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialector is required")
	assert.Contains(t, err.Error(), "already configured")
}

func TestDatabaseFromConfig_UnsupportedDriver(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"databases": map[string]any{"x": map[string]any{"driver": "oracle", "dsn": "x"}},
	}).BuildReloadable()
	require.NoError(t, err)

	rt := core.NewRuntime()
	rt.SetConfiguration(cfg)
	err = rt.Apply(database.FromConfig("databases"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
