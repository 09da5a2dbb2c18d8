// Package eisenbus is the transport layer eisenbahn workers use to reach
// the broker: typed publish/subscribe, a fairly load-balanced PUSH/PULL
// pipeline, and a request/reply helper. It wraps github.com/nats-io/nats.go,
// translating pkg/envelope's wire frame on the way in and out.
//
// The original implementation this was distilled from ran the same three
// patterns — PUB/SUB, PUSH/PULL, REQ/REP — over ZeroMQ sockets bound
// per-transport. NATS gives all three natively over one connection:
// subjects implement PUB/SUB, queue groups give PUSH/PULL fan-out with
// built-in fairness, and Conn.Request implements REQ/REP with the
// reply-to inbox as the opaque correlation token.
package eisenbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// Conn wraps a nats.Conn with reconnection parameters grounded on the
// error-handling contract for TransportError: recoverable, retried with
// capped exponential backoff starting at 100ms.
type Conn struct {
	nc *nats.Conn
}

// Dial connects to the broker at endpoint, retrying internally with
// the same capped backoff NATS already implements
// (ReconnectWait/MaxReconnects) rather than hand-rolling a retry loop.
func Dial(endpoint string, opts ...nats.Option) (*Conn, error) {
	base := []nats.Option{
		nats.ReconnectWait(100 * time.Millisecond),
		nats.MaxReconnects(-1), // keep trying indefinitely; TransportError is recoverable
		nats.ReconnectBufSize(8 * 1024 * 1024),
	}
	base = append(base, opts...)
	nc, err := nats.Connect(endpoint, base...)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, endpoint, err)
	}
	return &Conn{nc: nc}, nil
}

// Raw exposes the underlying nats.Conn for callers that embed a broker
// (internal/broker dials into its own in-process server this way).
func (c *Conn) Raw() *nats.Conn { return c.nc }

// Close drains and closes the connection.
func (c *Conn) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// publishEnvelope is the shared send path for Publisher and
// PipelineSender: build an envelope, wrap it in the [topic][body] frame,
// and hand it to NATS.
func publishEnvelope(nc *nats.Conn, topic string, v any) error {
	env, err := envelope.New(topic, v)
	if err != nil {
		return err
	}
	frame, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	if err := nc.Publish(topic, frame); err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrTransport, topic, err)
	}
	return nil
}

// decodeMsg turns a raw NATS message back into an Envelope.
func decodeMsg(msg *nats.Msg) (envelope.Envelope, error) {
	env, err := envelope.DecodeFrame(msg.Data)
	if err != nil {
		return envelope.Envelope{}, err
	}
	if env.Topic == "" {
		env.Topic = msg.Subject
	}
	return env, nil
}

// waitCtx blocks on ctx.Done or ch, whichever fires first.
func waitCtx[T any](ctx context.Context, ch <-chan T) (T, error) {
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			return zero, fmt.Errorf("%w: channel closed", ErrTransport)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
