package main

import (
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
)

// 定义接口
type Logger interface {
	Log(msg string)
}

type Database interface {
	Connect() error
}

// 实现
type ConsoleLogger struct {
	Prefix string `value:"${app.name:APP}"`
}

func (c *ConsoleLogger) Log(msg string) {
	println(c.Prefix + ": " + msg)
}

type MySQLDatabase struct {
	Host string
	Port int
}

func (m *MySQLDatabase) Connect() error {
	println("Connecting to MySQL at", m.Host, ":", m.Port)
	return nil
}

// 服务
type UserService struct {
	Logger Logger   `autowired:""`         // 按类型
	DB     Database `resource:"mainDB"`    // 按名称
	Pool   int      `value:"${db.pool:10}"` // 表达式
}

func main() {
	// 占位符从内存配置中解析，db.pool 未配置时取默认值
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"app": map[string]any{"name": "DEMO"},
	}).Build()
	if err != nil {
		panic(err)
	}
	c := di.NewContainer(di.WithPlaceholderResolver(config.NewEnvironment(cfg)))

	// 接口需要指定实现
	di.Register[Logger](c, di.Use[*ConsoleLogger]())
	di.Register[Database](c, di.WithName("mainDB"), di.WithValue(&MySQLDatabase{Host: "localhost", Port: 3306}))
	di.Register[*UserService](c)

	// 构建容器
	if err := c.Build(); err != nil {
		panic(err)
	}

	println("\n=== 泛型 Resolve ===")
	svc := di.MustResolve[*UserService](c)
	svc.Logger.Log("UserService initialized")
	_ = svc.DB.Connect()
	println("Pool size:", svc.Pool)

	println("\n=== 注入已有实例 ===")
	var other UserService
	if err := c.Inject(&other); err != nil {
		panic(err)
	}
	other.Logger.Log("UserService injected via Inject")

	println("\n=== 注入计划 ===")
	def, _ := c.Definition("userService")
	for _, pv := range def.Plan().Properties {
		println(pv.Member.Display, "=>", pv.Ref.String())
	}
}
