package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/app"
	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/health"
	"github.com/taoyao-code/radio-hub/internal/hostlink"
	"github.com/taoyao-code/radio-hub/internal/httpserver"
	"github.com/taoyao-code/radio-hub/internal/hub"
	"github.com/taoyao-code/radio-hub/internal/journal"
	"github.com/taoyao-code/radio-hub/internal/legacy"
	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/radio"
	"github.com/taoyao-code/radio-hub/internal/sensors"
	"github.com/taoyao-code/radio-hub/internal/spoke"
)

// Version 构建时通过 -ldflags 覆盖
var Version = "dev"

// Run 统一启动流程：依赖就绪后才打开无线与主机链路，收到信号后按相反顺序关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	hubID := app.GenerateHubID()
	log = log.With(zap.String("hub_id", hubID))
	log.Info("starting radio hub", zap.String("version", Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========== 阶段1: 基础组件 ==========
	reg, hm := app.NewMetrics()
	ready := health.New()

	// ========== 阶段2: 外部存储（按需）==========
	redisClient, err := app.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool, jrnl, err := app.OpenJournal(ctx, cfg.Journal, hubID, log, hm)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	// ========== 阶段3: 无线传输与集线器 ==========
	opener := app.NewRadioOpener(cfg.Radio, log)
	mac, err := app.LocalAddr(cfg.Radio)
	if err != nil {
		return err
	}
	tr, err := opener.Open(mac)
	if err != nil {
		log.Error("radio open failed", zap.String("driver", cfg.Radio.Driver), zap.Error(err))
		return err
	}
	defer tr.Close()

	h := hub.New(tr, hubOptions(cfg), log.Named("hub"), hm)
	h.Attach()
	ready.SetRadioReady(true)
	log.Info("radio ready", zap.String("driver", cfg.Radio.Driver), zap.Stringer("mac", tr.LocalAddr()))

	// ========== 阶段4: 主机链路 ==========
	hl, err := app.OpenHostLink(cfg, redisClient, log)
	if err != nil {
		log.Error("host link open failed", zap.String("link", cfg.Host.Link), zap.Error(err))
		return err
	}
	defer hl.Close()
	var rec hostlink.Recorder
	if jrnl != nil {
		rec = jrnl
	}
	board := sensors.NewBoard(0)
	link := hostlink.NewTee(hl.Link, rec, board)
	ready.SetHostReady(true)
	log.Info("host link ready", zap.String("link", link.Name()))

	// ========== 阶段5: 运维 HTTP（非阻塞）==========
	agg := app.NewHealthAggregator(h, hl)
	app.AddRedisChecker(agg, redisClient)
	app.AddDatabaseChecker(agg, pool, jrnl)

	var httpSrv *httpserver.Server
	if cfg.HTTP.Enable {
		deps := httpserver.Deps{
			MetricsHandler: metrics.Handler(reg),
			Ready:          ready.Ready,
			Health:         agg,
			Hub:            h,
			Status:         statusFn(hubID, cfg, link, jrnl),
			Sensors:        board,
		}
		if pool != nil {
			store := journal.NewPGStore(pool)
			deps.Recent = func(ctx context.Context, limit int) ([]journal.Row, error) {
				return store.Recent(ctx, hubID, limit)
			}
		}
		httpSrv = app.NewHTTPServer(cfg, deps)
		go func() {
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
	}

	// ========== 阶段6: 后台任务 ==========
	var wg sync.WaitGroup
	if jrnl != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jrnl.Run(ctx)
		}()
	}

	if cfg.Legacy.Enable {
		ll, err := legacy.Listen(cfg.Legacy.Addr, h, log.Named("legacy"), hm)
		if err != nil {
			log.Error("legacy listener failed", zap.String("addr", cfg.Legacy.Addr), zap.Error(err))
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ll.Run(ctx); err != nil {
				log.Warn("legacy listener stopped", zap.Error(err))
			}
		}()
		log.Info("legacy listener started", zap.Stringer("addr", ll.Addr()))
	}

	if opener.InProcess() && cfg.Spoke.Fleet != "" {
		startFleet(ctx, &wg, cfg, opener, tr.LocalAddr(), log)
	}

	// ========== 阶段7: 转发，直到信号或主机链路结束 ==========
	log.Info("all services ready, forwarding")
	runErr := h.Run(ctx, link)
	if runErr != nil {
		log.Error("hub stopped", zap.Error(runErr))
	} else if ctx.Err() == nil {
		log.Info("host link closed")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
		log.Info("http server stopped")
	}
	wg.Wait()
	log.Info("shutdown complete")
	return runErr
}

func hubOptions(cfg *cfgpkg.Config) hub.Options {
	opts := hub.Options{
		Prefix:           cfg.Hub.NodePrefix,
		MaxIndex:         uint8(cfg.Hub.MaxIndex),
		RegistryCapacity: cfg.Hub.RegistryCapacity,
		DedupCapacity:    cfg.Hub.DedupCapacity,
		DedupWindow:      cfg.Hub.DedupWindow,
		DedupHeaderText:  cfg.Hub.DedupHeaderText,
		QueueCapacity:    cfg.Hub.QueueCapacity,
		IdleHeartbeat:    cfg.Hub.IdleHeartbeat,
		PaceWait:         cfg.Radio.SendWait,
	}
	if p := app.NewPacer(cfg.Radio); p != nil {
		opts.Pacer = p
	}
	return opts
}

func statusFn(hubID string, cfg *cfgpkg.Config, link hostlink.Link, j *journal.Journal) func() gin.H {
	return func() gin.H {
		out := gin.H{
			"hub_id":  hubID,
			"version": Version,
			"link":    link.Name(),
			"driver":  cfg.Radio.Driver,
		}
		if j != nil {
			out["journal"] = j.Stats()
		}
		return out
	}
}

// startFleet memory 驱动下在进程内运行模拟节点，便于单机演示
func startFleet(ctx context.Context, wg *sync.WaitGroup, cfg *cfgpkg.Config, opener *app.RadioOpener, hubMAC radio.Addr, log *zap.Logger) {
	fleet, err := spoke.LoadFleet(cfg.Spoke.Fleet)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		log.Warn("fleet not loaded", zap.String("path", cfg.Spoke.Fleet), zap.Error(err))
		return
	}
	fleet.Hub = hubMAC
	d := app.SpokeDiscipline(cfg.Spoke)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := spoke.RunFleet(ctx, fleet, opener.Open, d, log.Named("spoke"), nil); err != nil {
			log.Warn("in-process fleet stopped", zap.Error(err))
		}
	}()
	log.Info("in-process fleet started", zap.Int("nodes", len(fleet.Nodes)))
}
