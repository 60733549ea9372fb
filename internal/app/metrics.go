package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/radio-hub/internal/metrics"
)

// NewMetrics 初始化注册表与集线器指标
func NewMetrics() (*prometheus.Registry, *metrics.HubMetrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewHubMetrics(reg)
}

// NewSpokeMetrics 模拟器使用的注册表与终端指标
func NewSpokeMetrics() (*prometheus.Registry, *metrics.SpokeMetrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewSpokeMetrics(reg)
}
