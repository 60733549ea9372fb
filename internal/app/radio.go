package app

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// RandomAddr 随机的本地管理单播地址
func RandomAddr() radio.Addr {
	u := uuid.New()
	var a radio.Addr
	copy(a[:], u[10:])
	a[0] = (a[0] | 0x02) &^ 0x01
	return a
}

// LocalAddr 配置的地址，空则随机生成
func LocalAddr(cfg cfgpkg.RadioConfig) (radio.Addr, error) {
	if cfg.MAC == "" {
		return RandomAddr(), nil
	}
	a, err := radio.ParseAddr(cfg.MAC)
	if err != nil {
		return radio.Addr{}, fmt.Errorf("radio.mac: %w", err)
	}
	return a, nil
}

// RadioOpener 按驱动创建传输；memory 驱动下所有传输共享同一空口
type RadioOpener struct {
	cfg    cfgpkg.RadioConfig
	log    *zap.Logger
	medium *radio.Medium
}

func NewRadioOpener(cfg cfgpkg.RadioConfig, log *zap.Logger) *RadioOpener {
	o := &RadioOpener{cfg: cfg, log: log}
	if cfg.Driver == "memory" {
		o.medium = radio.NewMedium()
	}
	return o
}

// InProcess memory 驱动只能与同进程节点通信
func (o *RadioOpener) InProcess() bool { return o.medium != nil }

// Open 在地址 a 上打开一个传输
func (o *RadioOpener) Open(a radio.Addr) (radio.Transport, error) {
	if o.medium != nil {
		tr, err := o.medium.Attach(a, o.cfg.RxBacklog)
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
	tr, err := radio.ListenUDP(radio.UDPConfig{
		Addr:      a,
		Group:     o.cfg.Group,
		Interface: o.cfg.Interface,
		MaxPeers:  o.cfg.MaxPeers,
	}, o.log.Named("radio").With(zap.Stringer("mac", a)))
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// NewPacer 主机下发限速，sendRate<=0 不限速
func NewPacer(cfg cfgpkg.RadioConfig) *radio.RateLimiter {
	if cfg.SendRate <= 0 {
		return nil
	}
	return radio.NewRateLimiter(cfg.SendRate, cfg.SendBurst)
}
