package health

import "sync/atomic"

// Readiness 启动阶段就绪标记：无线传输已打开、主机链路已建立
type Readiness struct {
	radioReady atomic.Bool
	hostReady  atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetRadioReady(v bool) { r.radioReady.Store(v) }
func (r *Readiness) SetHostReady(v bool)  { r.hostReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.radioReady.Load() && r.hostReady.Load()
}
