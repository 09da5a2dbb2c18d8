// Package notify routes matched-rule notifications to the channels a
// rule configures, delivering to every channel concurrently and never
// letting one channel's failure block another's.
package notify

import (
	"context"
	"time"

	"github.com/trakrail/eisenbahn/pkg/fn"
)

// Notification is one message to deliver, carrying whatever metadata a
// channel's template needs (entity key, rule name, matched reason, ...).
type Notification struct {
	Subject  string
	Body     string
	Metadata map[string]string
}

// Notifier delivers a Notification over one channel (webhook, email,
// chat bot, ...). Concrete implementations are external collaborators —
// this package only defines the contract and the fan-out around it.
type Notifier interface {
	ChannelName() string
	Send(ctx context.Context, n Notification) error
	Test(ctx context.Context) error
}

// DispatchResult records one channel's delivery outcome.
type DispatchResult struct {
	Channel    string
	EntityKey  string
	Success    bool
	Error      string
	DurationMS int64
}

// Dispatcher routes notifications to per-rule channel sets, falling
// back to a shared default set when a rule has none configured.
type Dispatcher struct {
	ruleChannels    map[string][]Notifier
	defaultChannels []Notifier
}

// Empty builds a dispatcher with no channels configured.
func Empty() *Dispatcher {
	return &Dispatcher{ruleChannels: make(map[string][]Notifier)}
}

// New builds a dispatcher with an explicit per-rule channel mapping.
func New(ruleChannels map[string][]Notifier) *Dispatcher {
	if ruleChannels == nil {
		ruleChannels = make(map[string][]Notifier)
	}
	return &Dispatcher{ruleChannels: ruleChannels}
}

// WithDefaults builds a dispatcher whose channels are shared across
// every rule (no per-rule overrides).
func WithDefaults(channels []Notifier) *Dispatcher {
	return &Dispatcher{ruleChannels: make(map[string][]Notifier), defaultChannels: channels}
}

// SetRuleChannels replaces the channel set for one rule.
func (d *Dispatcher) SetRuleChannels(ruleID string, channels []Notifier) {
	d.ruleChannels[ruleID] = channels
}

// RemoveRule drops a rule's channel set (e.g. on rule deletion).
func (d *Dispatcher) RemoveRule(ruleID string) {
	delete(d.ruleChannels, ruleID)
}

// Rebuild replaces every rule's channel set at once (e.g. after a
// hot-reload of rule configuration).
func (d *Dispatcher) Rebuild(ruleChannels map[string][]Notifier) {
	if ruleChannels == nil {
		ruleChannels = make(map[string][]Notifier)
	}
	d.ruleChannels = ruleChannels
}

// Dispatch delivers n to every channel configured for ruleID (or the
// default set, if the rule has none), concurrently, returning one
// DispatchResult per channel. A channel that errors doesn't prevent
// the others from being attempted or reported.
func (d *Dispatcher) Dispatch(ctx context.Context, ruleID string, n Notification) []DispatchResult {
	channels, ok := d.ruleChannels[ruleID]
	if !ok {
		channels = d.defaultChannels
	}
	if len(channels) == 0 {
		return nil
	}

	fns := make([]func() DispatchResult, len(channels))
	for i, ch := range channels {
		ch := ch
		fns[i] = func() DispatchResult {
			start := time.Now()
			err := ch.Send(ctx, n)
			duration := time.Since(start).Milliseconds()

			result := DispatchResult{
				Channel:    ch.ChannelName(),
				EntityKey:  n.Metadata["anomaly_key"],
				DurationMS: duration,
			}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Success = true
			}
			return result
		}
	}
	return fn.FanOut(fns...)
}

// TestNotify sends a test message to one of a rule's channels by
// index, for operator-triggered channel verification.
func (d *Dispatcher) TestNotify(ctx context.Context, ruleID string, channelIndex int) error {
	channels, ok := d.ruleChannels[ruleID]
	if !ok {
		return &ConfigError{Message: "no channels for rule '" + ruleID + "'"}
	}
	if channelIndex < 0 || channelIndex >= len(channels) {
		return &ConfigError{Message: "channel index out of range"}
	}
	return channels[channelIndex].Test(ctx)
}

// ConfigError reports a dispatcher misconfiguration (unknown rule,
// out-of-range channel index).
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }
