package ioc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"stactask/internal/metrics"
)

// InitPrometheus 构建独立的指标注册表，包含 Go 运行时指标。
func InitPrometheus() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// InitCollectors 注册任务指标。
func InitCollectors(reg *prometheus.Registry) *metrics.Collectors {
	return metrics.NewCollectors(reg)
}
