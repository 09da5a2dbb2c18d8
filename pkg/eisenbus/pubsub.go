package eisenbus

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// Publisher fans a message out to every matching subscriber (PUB side).
type Publisher struct {
	conn *Conn
}

// NewPublisher wraps an established connection for publishing.
func NewPublisher(conn *Conn) *Publisher { return &Publisher{conn: conn} }

// Publish encodes v into an envelope on topic and broadcasts it. Every
// live Subscriber on topic (or a matching wildcard) receives a copy —
// this is fan-out, not load-balanced delivery.
func (p *Publisher) Publish(_ context.Context, topic string, v any) error {
	return publishEnvelope(p.conn.nc, topic, v)
}

// Subscriber receives every message published on topics it is
// subscribed to (SUB side). Unlike PipelineReceiver, multiple
// Subscribers on the same topic each get their own copy.
type Subscriber struct {
	conn *Conn
	subs []*nats.Subscription
}

// NewSubscriber wraps an established connection for subscribing.
func NewSubscriber(conn *Conn) *Subscriber { return &Subscriber{conn: conn} }

// Subscribe registers handler to run (on its own goroutine, per NATS's
// default async dispatch) for every message on topic. Malformed frames
// are dropped silently — a SerializationError is logged by the caller
// if they choose to check, but it never aborts the subscription.
func (s *Subscriber) Subscribe(topic string, handler func(envelope.Envelope)) error {
	sub, err := s.conn.nc.Subscribe(topic, func(msg *nats.Msg) {
		env, err := decodeMsg(msg)
		if err != nil {
			return
		}
		handler(env)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Unsubscribe tears down every subscription this Subscriber registered.
func (s *Subscriber) Unsubscribe() error {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			return err
		}
	}
	s.subs = nil
	return nil
}
