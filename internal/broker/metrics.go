package broker

import (
	"sync"
	"time"

	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/metrics"
)

// WorkerStatus is the last reported health state of a worker, built from
// its eisenbahn.worker.health pings.
type WorkerStatus struct {
	Name     string
	LastSeen time.Time
	Healthy  bool
}

// healthPing is the payload a worker publishes to TopicWorkerHealth.
type healthPing struct {
	Name    string `msgpack:"name"`
	Healthy bool   `msgpack:"healthy"`
}

// MetricsCollector tracks broker-wide forwarding counts and the most
// recent health ping from every worker, mirroring the "total forwarded"
// and "per-worker health" responsibilities the broker owns per the
// original design.
type MetricsCollector struct {
	reg *metrics.Registry

	forwardedTotal *metrics.Counter
	perTopic       func(topic string) *metrics.Counter

	mu      sync.RWMutex
	workers map[string]WorkerStatus
}

// NewMetricsCollector builds a collector backed by reg.
func NewMetricsCollector(reg *metrics.Registry) *MetricsCollector {
	return &MetricsCollector{
		reg:            reg,
		forwardedTotal: reg.Counter("eisenbahn_broker_forwarded_total", "Total messages forwarded by the broker"),
		perTopic: func(topic string) *metrics.Counter {
			return reg.Counter(metrics.WithLabels("eisenbahn_broker_forwarded_by_topic_total", "topic", topic), "Messages forwarded per topic")
		},
		workers: make(map[string]WorkerStatus),
	}
}

// attach subscribes the collector to every subject (">") for the
// forwarded-count tally and to the worker health subject specifically.
func (m *MetricsCollector) attach(conn *eisenbus.Conn) error {
	sub := eisenbus.NewSubscriber(conn)
	return sub.Subscribe(">", func(env envelope.Envelope) {
		m.forwardedTotal.Inc()
		m.perTopic(env.Topic).Inc()
		if env.Topic == eisenbus.TopicWorkerHealth {
			var p healthPing
			if err := env.Decode(&p); err == nil {
				m.recordHealth(p)
			}
		}
	})
}

// Registry exposes the underlying registry for /metrics exposition.
func (m *MetricsCollector) Registry() *metrics.Registry { return m.reg }

// Workers returns a snapshot of known worker statuses.
func (m *MetricsCollector) Workers() []WorkerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WorkerStatus, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	return out
}

func (m *MetricsCollector) recordHealth(p healthPing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[p.Name] = WorkerStatus{Name: p.Name, LastSeen: time.Now().UTC(), Healthy: p.Healthy}
}
