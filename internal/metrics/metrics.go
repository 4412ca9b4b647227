package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the role-grant flow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FlowsStarted     prometheus.Counter
	FlowFailures     *prometheus.CounterVec
	RolesGranted     prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FlowsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "role_gate_flows_started_total",
			Help: "Flows started at the entry endpoint",
		}),
		FlowFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "role_gate_flow_failures_total",
			Help: "Failed flow steps by stage and error kind",
		}, []string{"stage", "kind"}),
		RolesGranted: f.NewCounter(prometheus.CounterOpts{
			Name: "role_gate_roles_granted_total",
			Help: "Completed flows that granted the guild role",
		}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "role_gate_upstream_request_duration_seconds",
			Help:    "Latency of outbound provider calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"upstream", "status"}),
	}
}

func (m *Metrics) FlowStarted() {
	if m == nil {
		return
	}
	m.FlowsStarted.Inc()
}

func (m *Metrics) FlowFailed(stage, kind string) {
	if m == nil {
		return
	}
	m.FlowFailures.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) RoleGranted() {
	if m == nil {
		return
	}
	m.RolesGranted.Inc()
}

// ObserveUpstream records one outbound call. status 0 means the call
// failed before a response arrived.
func (m *Metrics) ObserveUpstream(upstream string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamDuration.WithLabelValues(upstream, label).Observe(elapsed.Seconds())
}
