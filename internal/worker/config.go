package worker

import "time"

// Config is the runtime configuration a WorkerRunner uses to drive a
// Worker: how often to publish a health ping, how long to wait for Stop
// before giving up, and which topics this worker advertises as its
// subscriptions (for logging/diagnostics, not enforcement).
type Config struct {
	Name            string
	HealthInterval  time.Duration
	ShutdownTimeout time.Duration
	Subscriptions   []string
}

// Builder constructs a Config with the same fluent shape the original
// WorkerBuilder used: name first, then interval/timeout/subscriptions in
// any order, finished with Build.
type Builder struct {
	cfg Config
}

// NewBuilder starts a builder for a worker named name, with defaults of
// a 30s health interval and a 10s shutdown timeout.
func NewBuilder(name string) *Builder {
	return &Builder{cfg: Config{
		Name:            name,
		HealthInterval:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}}
}

func (b *Builder) HealthInterval(d time.Duration) *Builder {
	b.cfg.HealthInterval = d
	return b
}

func (b *Builder) ShutdownTimeout(d time.Duration) *Builder {
	b.cfg.ShutdownTimeout = d
	return b
}

func (b *Builder) Subscribe(topic string) *Builder {
	b.cfg.Subscriptions = append(b.cfg.Subscriptions, topic)
	return b
}

// Build finalizes the configuration.
func (b *Builder) Build() Config { return b.cfg }
