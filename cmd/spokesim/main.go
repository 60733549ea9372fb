package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/app"
	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/httpserver"
	"github.com/taoyao-code/radio-hub/internal/logging"
	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/spoke"
)

// spokesim 在 UDP 组播空口上运行一组模拟终端节点
func main() {
	configPath := flag.String("config", "", "config file (default $HUB_CONFIG or configs/example.yaml)")
	fleetPath := flag.String("fleet", "", "fleet definition (default spoke.fleet from config)")
	httpAddr := flag.String("http", "", "metrics listen address, empty disables")
	flag.Parse()

	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	path := *fleetPath
	if path == "" {
		path = cfg.Spoke.Fleet
	}
	fleet, err := spoke.LoadFleet(path)
	if err != nil {
		logger.Fatal("load fleet", zap.String("path", path), zap.Error(err))
	}
	if cfg.Radio.Driver == "memory" {
		logger.Fatal("spokesim needs a shared radio; set radio.driver=udp")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, sm := app.NewSpokeMetrics()
	if *httpAddr != "" {
		srv := httpserver.New(cfgpkg.HTTPConfig{Addr: *httpAddr, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second},
			httpserver.Deps{MetricsHandler: metrics.Handler(reg)})
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	opener := app.NewRadioOpener(cfg.Radio, logger)
	logger.Info("spoke simulator starting", zap.Int("nodes", len(fleet.Nodes)), zap.Stringer("hub", fleet.Hub))
	if err := spoke.RunFleet(ctx, fleet, opener.Open, app.SpokeDiscipline(cfg.Spoke), logger, sm); err != nil {
		logger.Error("fleet stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("spoke simulator stopped")
}
