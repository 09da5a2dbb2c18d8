package eisenbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// DefaultRequestTimeout bounds a REQ/REP round trip when the caller's
// context carries no deadline of its own.
const DefaultRequestTimeout = 5 * time.Second

// Requester is the REQ side of a service call. NATS's reply-subject
// inbox is the opaque correlation token the ZeroMQ REQ/REP pattern used
// an explicit envelope field for; eisenbahn keeps CorrelationID on the
// envelope anyway so a logged request/response pair can still be joined
// without the transport layer.
type Requester struct {
	conn *Conn
}

// NewRequester wraps an established connection for request/reply calls.
func NewRequester(conn *Conn) *Requester { return &Requester{conn: conn} }

// Request sends v on subject and decodes the reply into resp. If ctx
// carries no deadline, DefaultRequestTimeout applies.
func (r *Requester) Request(ctx context.Context, subject string, v any, resp any) error {
	env, err := envelope.New(subject, v)
	if err != nil {
		return err
	}
	frame, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	timeout := DefaultRequestTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	msg, err := r.conn.nc.Request(subject, frame, timeout)
	if err != nil {
		return fmt.Errorf("%w: request %s: %v", ErrTransport, subject, err)
	}
	respEnv, err := decodeMsg(msg)
	if err != nil {
		return err
	}
	return respEnv.Decode(resp)
}

// Responder is the REP side of a service call: it binds a handler to a
// subject and replies on whatever inbox the request carried.
type Responder struct {
	conn *Conn
	sub  *nats.Subscription
}

// NewResponder wraps an established connection for serving requests.
func NewResponder(conn *Conn) *Responder { return &Responder{conn: conn} }

// Serve registers handler for subject. handler receives the decoded
// request envelope and returns the value to encode as the reply, or an
// error to convert into an error-shaped reply envelope on the
// "<subject>.error" topic name (recorded in the envelope, not a
// separate NATS subject — replies always go to the caller's inbox).
func (r *Responder) Serve(subject string, handler func(envelope.Envelope) (any, error)) error {
	sub, err := r.conn.nc.Subscribe(subject, func(msg *nats.Msg) {
		env, err := decodeMsg(msg)
		if err != nil {
			return
		}
		result, herr := handler(env)
		if herr != nil {
			result = map[string]string{"error": herr.Error()}
		}
		reply, err := env.Reply(subject, result)
		if err != nil {
			return
		}
		frame, err := envelope.Encode(reply)
		if err != nil {
			return
		}
		_ = msg.Respond(frame)
	})
	if err != nil {
		return fmt.Errorf("%w: serve %s: %v", ErrTransport, subject, err)
	}
	r.sub = sub
	return nil
}

// Stop unbinds the responder.
func (r *Responder) Stop() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}
