package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trakrail/eisenbahn/pkg/eisenbus"
)

// healthPing mirrors the unexported type in internal/broker; kept
// duplicated rather than shared to avoid a dependency cycle between
// worker and broker (both would need the other's package for a type
// that is three fields wide).
type healthPing struct {
	Name    string `msgpack:"name"`
	Healthy bool   `msgpack:"healthy"`
}

// Run starts w, publishes a health ping on cfg.HealthInterval until ctx
// is cancelled, then stops w with cfg.ShutdownTimeout to finish. This is
// the body every cmd/*-worker main() delegates to after wiring its own
// Worker implementation and bus connection.
func Run(ctx context.Context, w Worker, pub *eisenbus.Publisher, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("worker", w.Name())

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("worker %s: start: %w", w.Name(), err)
	}
	log.Info("worker started", "subscriptions", cfg.Subscriptions)

	ticker := time.NewTicker(cfg.HealthInterval)
	defer ticker.Stop()

	publishHealth := func(healthy bool) {
		if pub == nil {
			return
		}
		if err := pub.Publish(ctx, eisenbus.TopicWorkerHealth, healthPing{Name: cfg.Name, Healthy: healthy}); err != nil {
			log.Warn("health ping failed", "error", err)
		}
	}
	publishHealth(true)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			publishHealth(true)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	publishHealth(false)
	if err := w.Stop(stopCtx); err != nil {
		return fmt.Errorf("worker %s: stop: %w", w.Name(), err)
	}
	log.Info("worker stopped cleanly")
	return nil
}
