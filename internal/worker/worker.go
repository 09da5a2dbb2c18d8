// Package worker provides the lifecycle every eisenbahn worker binary
// shares: a small Worker interface, a builder for its runtime
// configuration, and a runner loop that starts the worker, pings health
// on an interval, and stops it cleanly on shutdown. This mirrors the
// start/stop/name worker trait the original Rust workers implemented,
// generalized from per-binary copy-paste into one shared runner.
package worker

import "context"

// Worker is the lifecycle contract every eisenbahn worker binary
// implements: a name for logging and health pings, a Start that wires up
// its subscriptions, and a Stop that tears them down.
type Worker interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
