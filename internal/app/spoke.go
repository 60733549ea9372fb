package app

import (
	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/spoke"
)

// SpokeDiscipline 由配置生成模拟节点的发送参数
func SpokeDiscipline(cfg cfgpkg.SpokeConfig) spoke.Discipline {
	return spoke.Discipline{
		Requester: spoke.RequesterConfig{
			Timeout:     cfg.AckTimeout,
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
		},
		Copies:        cfg.BroadcastCopies,
		Jitter:        cfg.BroadcastJitter,
		CommandWindow: cfg.CommandWindow,
	}
}
