package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// 丢弃原因
const (
	DropMalformed = "malformed"
	DropDuplicate = "duplicate"
	DropQueueFull = "queue_full"
)

// 主机命令处理结果
const (
	CmdSent       = "sent"
	CmdUnknownID  = "unknown_id"
	CmdBadMAC     = "bad_mac"
	CmdBadCommand = "bad_command"
	CmdPeerFailed = "peer_failed"
	CmdSendFailed = "send_failed"
	CmdQuery      = "query"
)

// 主机行类型
const (
	LineEvent     = "event"
	LineHeartbeat = "heartbeat"
	LineDiag      = "diag"
	LineReply     = "reply"
)

// HubMetrics 集线器指标
// 接收路径上的计数器预先解析 label，Inc 不分配内存；所有方法对 nil 接收者安全
type HubMetrics struct {
	FramesTotal      *prometheus.CounterVec // labels: kind
	DropsTotal       *prometheus.CounterVec // labels: reason
	AcksSent         prometheus.Counter
	AckFailures      *prometheus.CounterVec // labels: reason=peer|send
	QueueDepth       prometheus.Gauge
	RegistryEntries  prometheus.Gauge
	RegistryEvicted  prometheus.Counter
	CommandsTotal    *prometheus.CounterVec // labels: result
	HostLinesTotal   *prometheus.CounterVec // labels: type
	HostWriteErrors  prometheus.Counter
	LegacyDatagrams  *prometheus.CounterVec // labels: result=ok|invalid
	JournalDropped   prometheus.Counter
	JournalPersisted prometheus.Counter

	frameKinds [wire.KindAck + 1]prometheus.Counter
	dropMal    prometheus.Counter
	dropDup    prometheus.Counter
	dropFull   prometheus.Counter
	ackPeer    prometheus.Counter
	ackSend    prometheus.Counter
}

// NewHubMetrics 注册并返回集线器指标
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_frames_total",
			Help: "Classified radio frames by kind.",
		}, []string{"kind"}),
		DropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_drops_total",
			Help: "Frames or items dropped on the receive path by reason.",
		}, []string{"reason"}),
		AcksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_acks_sent_total",
			Help: "Acknowledgments transmitted to header-prefixed senders.",
		}),
		AckFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_ack_failures_total",
			Help: "Acknowledgments suppressed by reason.",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_queue_depth",
			Help: "Items waiting in the inbound queue.",
		}),
		RegistryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_registry_entries",
			Help: "Logical ids currently held in the identity registry.",
		}),
		RegistryEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_registry_evicted_total",
			Help: "Registry entries overwritten by ring eviction.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_host_commands_total",
			Help: "Host command lines by result.",
		}, []string{"result"}),
		HostLinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_host_lines_total",
			Help: "Lines written to the host link by type.",
		}, []string{"type"}),
		HostWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_host_write_errors_total",
			Help: "Failed writes to the host link.",
		}),
		LegacyDatagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_legacy_datagrams_total",
			Help: "Legacy UDP CSV datagrams by result.",
		}, []string{"result"}),
		JournalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_journal_dropped_total",
			Help: "Host lines not archived because the journal buffer was full or the database unavailable.",
		}),
		JournalPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_journal_persisted_total",
			Help: "Host lines archived to the journal database.",
		}),
	}
	reg.MustRegister(m.FramesTotal, m.DropsTotal, m.AcksSent, m.AckFailures, m.QueueDepth,
		m.RegistryEntries, m.RegistryEvicted, m.CommandsTotal, m.HostLinesTotal, m.HostWriteErrors,
		m.LegacyDatagrams, m.JournalDropped, m.JournalPersisted)

	for k := wire.KindNone; k <= wire.KindAck; k++ {
		m.frameKinds[k] = m.FramesTotal.WithLabelValues(k.String())
	}
	m.dropMal = m.DropsTotal.WithLabelValues(DropMalformed)
	m.dropDup = m.DropsTotal.WithLabelValues(DropDuplicate)
	m.dropFull = m.DropsTotal.WithLabelValues(DropQueueFull)
	m.ackPeer = m.AckFailures.WithLabelValues("peer")
	m.ackSend = m.AckFailures.WithLabelValues("send")
	return m
}

// Frame 记录一帧分类结果，KindNone 表示丢弃
func (m *HubMetrics) Frame(k wire.Kind) {
	if m == nil || int(k) >= len(m.frameKinds) {
		return
	}
	m.frameKinds[k].Inc()
	if k == wire.KindNone {
		m.dropMal.Inc()
	}
}

func (m *HubMetrics) Duplicate() {
	if m != nil {
		m.dropDup.Inc()
	}
}

func (m *HubMetrics) QueueFull() {
	if m != nil {
		m.dropFull.Inc()
	}
}

func (m *HubMetrics) AckSent() {
	if m != nil {
		m.AcksSent.Inc()
	}
}

// AckFailed peer=true 表示对端注册失败，否则为发送失败
func (m *HubMetrics) AckFailed(peer bool) {
	if m == nil {
		return
	}
	if peer {
		m.ackPeer.Inc()
	} else {
		m.ackSend.Inc()
	}
}

func (m *HubMetrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *HubMetrics) SetRegistry(n int, evicted bool) {
	if m == nil {
		return
	}
	m.RegistryEntries.Set(float64(n))
	if evicted {
		m.RegistryEvicted.Inc()
	}
}

func (m *HubMetrics) Command(result string) {
	if m != nil {
		m.CommandsTotal.WithLabelValues(result).Inc()
	}
}

func (m *HubMetrics) HostLine(typ string) {
	if m != nil {
		m.HostLinesTotal.WithLabelValues(typ).Inc()
	}
}

func (m *HubMetrics) HostWriteError() {
	if m != nil {
		m.HostWriteErrors.Inc()
	}
}

func (m *HubMetrics) Legacy(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.LegacyDatagrams.WithLabelValues("ok").Inc()
	} else {
		m.LegacyDatagrams.WithLabelValues("invalid").Inc()
	}
}

func (m *HubMetrics) Journal(persisted, dropped int) {
	if m == nil {
		return
	}
	m.JournalPersisted.Add(float64(persisted))
	m.JournalDropped.Add(float64(dropped))
}

// SpokeMetrics 终端节点（模拟器）指标
type SpokeMetrics struct {
	ReportsTotal    *prometheus.CounterVec // labels: state=acked|exhausted
	ReportAttempts  prometheus.Histogram
	BroadcastCopies prometheus.Counter
	ActuatorTotal   *prometheus.CounterVec // labels: result
}

// NewSpokeMetrics 注册并返回终端指标
func NewSpokeMetrics(reg prometheus.Registerer) *SpokeMetrics {
	m := &SpokeMetrics{
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spoke_reports_total",
			Help: "Acknowledged reports by terminal state.",
		}, []string{"state"}),
		ReportAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spoke_report_attempts",
			Help:    "Transmissions used per acknowledged report.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		BroadcastCopies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spoke_broadcast_copies_total",
			Help: "Redundant broadcast copies transmitted.",
		}),
		ActuatorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spoke_actuator_commands_total",
			Help: "Addressed actuator commands by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.ReportsTotal, m.ReportAttempts, m.BroadcastCopies, m.ActuatorTotal)
	return m
}

func (m *SpokeMetrics) Report(state string, attempts int) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(state).Inc()
	m.ReportAttempts.Observe(float64(attempts))
}

func (m *SpokeMetrics) Copies(n int) {
	if m != nil {
		m.BroadcastCopies.Add(float64(n))
	}
}

func (m *SpokeMetrics) Actuator(result string) {
	if m != nil {
		m.ActuatorTotal.WithLabelValues(result).Inc()
	}
}
