package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/health"
	"github.com/taoyao-code/radio-hub/internal/hostlink"
	redisstorage "github.com/taoyao-code/radio-hub/internal/storage/redis"
)

// HostLink 打开的主机链路及其清理
type HostLink struct {
	Link hostlink.Link
	// Conn 非 nil 表示链路有连接状态（TCP）
	Conn    health.Connector
	cleanup []func() error
}

// Close 关闭链路及其私有连接
func (h *HostLink) Close() error {
	errs := []error{h.Link.Close()}
	for _, fn := range h.cleanup {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// OpenHostLink 按 host.link 打开主机链路；redis 链路要求 redis.enabled
func OpenHostLink(cfg *cfgpkg.Config, rdb *redisstorage.Client, log *zap.Logger) (*HostLink, error) {
	switch cfg.Host.Link {
	case "stdio":
		return &HostLink{Link: hostlink.NewStdio()}, nil

	case "serial":
		l, err := hostlink.OpenSerial(cfg.Host.Serial.Port, cfg.Host.Serial.Baud)
		if err != nil {
			if ports, perr := hostlink.SerialPorts(); perr == nil {
				log.Warn("available serial ports", zap.Strings("ports", ports))
			}
			return nil, err
		}
		return &HostLink{Link: l}, nil

	case "tcp":
		l, err := hostlink.ListenTCP(cfg.Host.TCP.Addr, cfg.Host.TCP.WriteTimeout, log.Named("hostlink"))
		if err != nil {
			return nil, fmt.Errorf("host tcp listen: %w", err)
		}
		log.Info("host tcp link listening", zap.Stringer("addr", l.Addr()))
		return &HostLink{Link: l, Conn: l}, nil

	case "redis":
		if rdb == nil {
			return nil, errors.New("host.link=redis requires redis.enabled")
		}
		rc := cfg.Host.Redis
		return &HostLink{Link: hostlink.NewRedis(rdb, hostlink.RedisKeys{
			EventsChannel: rc.EventsChannel,
			EventsList:    rc.EventsList,
			EventsMaxLen:  rc.EventsMaxLen,
			CommandsKey:   rc.CommandsKey,
		})}, nil

	case "nats":
		nc, err := hostlink.ConnectNATS(cfg.NATS, cfg.App.Name, log.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		l, err := hostlink.NewNATS(nc, cfg.Host.NATS.EventsSubject, cfg.Host.NATS.CommandsSubject)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("nats subscribe: %w", err)
		}
		return &HostLink{Link: l, cleanup: []func() error{func() error { return nc.Drain() }}}, nil
	}
	return nil, fmt.Errorf("unknown host.link %q", cfg.Host.Link)
}
