package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/radio-hub/internal/hub"
)

// StatsSource 集线器运行状态
type StatsSource interface {
	Stats() hub.Stats
}

// HubChecker 入站队列水位检查；队列接近满说明主机链路消费跟不上
type HubChecker struct {
	src StatsSource
}

func NewHubChecker(src StatsSource) *HubChecker { return &HubChecker{src: src} }

func (c *HubChecker) Name() string { return "radio" }

func (c *HubChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	st := c.src.Stats()
	fill := 0.0
	if st.QueueCap > 0 {
		fill = float64(st.QueueLen) / float64(st.QueueCap)
	}
	status, message := StatusHealthy, "ok"
	if fill >= 0.9 {
		status, message = StatusDegraded, "inbound queue near capacity"
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"mac":           st.Mac.String(),
			"registry_len":  st.RegistryLen,
			"queue_len":     st.QueueLen,
			"queue_cap":     st.QueueCap,
			"queue_dropped": st.QueueDropped,
			"queue_fill":    fmt.Sprintf("%.1f%%", fill*100),
		},
		Latency: time.Since(start),
	}
}

// Connector 有连接状态的主机链路（TCP）
type Connector interface {
	Connected() bool
}

// HostLinkChecker 主机链路检查；无客户端时为 Degraded，出站行被丢弃
type HostLinkChecker struct {
	name string
	conn Connector
}

// NewHostLinkChecker conn 为 nil 表示链路无连接概念，始终健康
func NewHostLinkChecker(name string, conn Connector) *HostLinkChecker {
	return &HostLinkChecker{name: name, conn: conn}
}

func (c *HostLinkChecker) Name() string { return "hostlink" }

func (c *HostLinkChecker) Check(_ context.Context) CheckResult {
	details := map[string]interface{}{"link": c.name}
	if c.conn != nil && !c.conn.Connected() {
		return CheckResult{Status: StatusDegraded, Message: "no host client connected", Details: details}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
}
