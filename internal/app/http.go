package app

import (
	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg *cfgpkg.Config, deps httpserver.Deps) *httpserver.Server {
	if cfg.Metrics.Enable {
		deps.MetricsPath = cfg.Metrics.Path
	} else {
		deps.MetricsHandler = nil
	}
	return httpserver.New(cfg.HTTP, deps)
}
