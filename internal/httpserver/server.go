package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/health"
	"github.com/taoyao-code/radio-hub/internal/hub"
	"github.com/taoyao-code/radio-hub/internal/journal"
	"github.com/taoyao-code/radio-hub/internal/sensors"
)

// HubView 只读的集线器视图
type HubView interface {
	Stats() hub.Stats
	Registry() *hub.Registry
}

// RecentFunc 最近归档行查询
type RecentFunc func(ctx context.Context, limit int) ([]journal.Row, error)

// SensorView 传感器最新读数
type SensorView interface {
	Snapshot() []sensors.Reading
	Latest(id string) (sensors.Reading, bool)
}

// Deps 路由依赖，nil 字段对应的路由不注册
type Deps struct {
	MetricsPath    string
	MetricsHandler http.Handler
	Ready          func() bool
	Health         *health.Aggregator
	Hub            HubView
	Status         func() gin.H // 附加到 /api/status 的字段
	Recent         RecentFunc
	Sensors        SensorView
}

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建 Gin + HTTP Server，注册探针、指标与只读 API
func New(cfg cfgpkg.HTTPConfig, d Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready == nil || d.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if d.MetricsHandler != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(d.MetricsHandler))
	}
	if d.Health != nil {
		health.RegisterHTTPRoutes(r, d.Health)
	}

	api := r.Group("/api")
	if d.Hub != nil {
		api.GET("/registry", func(c *gin.Context) {
			entries := d.Hub.Registry().Snapshot()
			c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
		})
		api.GET("/status", func(c *gin.Context) {
			out := gin.H{"hub": d.Hub.Stats()}
			if d.Status != nil {
				for k, v := range d.Status() {
					out[k] = v
				}
			}
			c.JSON(http.StatusOK, out)
		})
	}
	if d.Recent != nil {
		api.GET("/journal", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
			if err != nil || limit <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			rows, err := d.Recent(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
		})
	}

	if d.Sensors != nil {
		api.GET("/sensors", func(c *gin.Context) {
			rows := d.Sensors.Snapshot()
			c.JSON(http.StatusOK, gin.H{"count": len(rows), "sensors": rows})
		})
		api.GET("/sensors/:id", func(c *gin.Context) {
			r, ok := d.Sensors.Latest(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown sensor"})
				return
			}
			c.JSON(http.StatusOK, r)
		})
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Handler 供测试直接调用
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
