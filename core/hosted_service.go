package core

import "github.com/gocrud/ioc/hosting"

// HostedService 定义了一个具有启动和停止生命周期的托管服务
type HostedService = hosting.HostedService

// HostedManagerBean 是托管服务管理器的 bean 名称
const HostedManagerBean = "hostedServiceManager"
