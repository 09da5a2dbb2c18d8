package eisenbus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// PipelineSender is the PUSH side of a pipeline stage: every message
// goes to exactly one receiver, chosen by the broker for fairness, not
// to all of them.
type PipelineSender struct {
	conn  *Conn
	stage string
}

// NewPipelineSender builds a sender for the named stage subject.
func NewPipelineSender(conn *Conn, stage string) *PipelineSender {
	return &PipelineSender{conn: conn, stage: stage}
}

// Send pushes v to one receiver of this stage.
func (p *PipelineSender) Send(_ context.Context, v any) error {
	return publishEnvelope(p.conn.nc, PipelineSubject(p.stage), v)
}

// PipelineReceiver is the PULL side of a pipeline stage. Every
// PipelineReceiver constructed with the same group name for the same
// stage competes for messages in a NATS queue group, which gives the
// round-robin fairness the original ZeroMQ PULL sockets provided: each
// message is delivered to exactly one member of the group.
type PipelineReceiver struct {
	conn *Conn
	sub  *nats.Subscription
	ch   chan envelope.Envelope
}

// NewPipelineReceiver joins the queue group "stage-workers" for stage so
// concurrent receivers load-balance fairly instead of all receiving
// every message.
func NewPipelineReceiver(conn *Conn, stage string) (*PipelineReceiver, error) {
	ch := make(chan envelope.Envelope, 256)
	sub, err := conn.nc.QueueSubscribe(PipelineSubject(stage), stage+"-workers", func(msg *nats.Msg) {
		env, err := decodeMsg(msg)
		if err != nil {
			return
		}
		ch <- env
	})
	if err != nil {
		return nil, fmt.Errorf("%w: queue subscribe %s: %v", ErrTransport, stage, err)
	}
	return &PipelineReceiver{conn: conn, sub: sub, ch: ch}, nil
}

// Recv blocks for the next message or until ctx is done.
func (r *PipelineReceiver) Recv(ctx context.Context) (envelope.Envelope, error) {
	return waitCtx(ctx, r.ch)
}

// Close tears down the subscription.
func (r *PipelineReceiver) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}
