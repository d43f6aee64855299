package di

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录解析次数和耗时；nil 表示不采集
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics 创建并向 reg 注册解析指标
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ioc",
			Name:      "resolutions_total",
			Help:      "Number of bean reference resolutions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ioc",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving bean references.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"mode"}),
	}
	for _, c := range []prometheus.Collector{m.resolutions, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(mode Mode, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = "not_found"
	case IsAmbiguous(err):
		outcome = "ambiguous"
	default:
		outcome = "error"
	}
	m.resolutions.WithLabelValues(mode.String(), outcome).Inc()
	m.duration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
}

// Resolutions 返回计数器，便于测试和自定义导出
func (m *Metrics) Resolutions() *prometheus.CounterVec {
	return m.resolutions
}
