package core

import (
	"reflect"

	"github.com/gocrud/ioc/di"
	"github.com/puzpuzpuz/xsync/v3"
)

// FeatureCollection 按具体类型存放构建期特性，如 web.Host、cron.Service
type FeatureCollection struct {
	features *xsync.MapOf[reflect.Type, any]
}

// NewFeatureCollection 创建空集合
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{features: xsync.NewMapOf[reflect.Type, any]()}
}

// Set 以 feature 的动态类型为键保存，同类型覆盖
func (fc *FeatureCollection) Set(feature any) {
	fc.features.Store(reflect.TypeOf(feature), feature)
}

// Get 按类型查找
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 取出类型为 T 的特性，不存在时返回零值
func GetFeature[T any](rt *Runtime) T {
	val, ok := rt.Features.Get(di.TypeOf[T]())
	if !ok {
		var zero T
		return zero
	}
	return val.(T)
}
