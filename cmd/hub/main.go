package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default $HUB_CONFIG or configs/example.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(bootstrap.Version)
		return
	}

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	// 2) 初始化日志；stdio 主机链路独占 stdout
	if cfg.Host.Link == "stdio" {
		cfg.Logging.Output = "stderr"
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动
	if err := bootstrap.Run(cfg, logger); err != nil {
		logger.Error("radio hub exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
