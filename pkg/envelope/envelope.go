// Package envelope defines the wire format shared by every eisenbahn
// worker: the Envelope that rides on pub/sub and pipeline transports, the
// Document/Value union persisted to segments, and the Transport
// descriptor workers use to find the broker. Everything here is encoded
// with msgpack so the same bytes can be read back by a non-Go consumer.
package envelope

import (
	"fmt"
	"time"

	"github.com/trakrail/eisenbahn/pkg/idgen"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope wraps every message that crosses the bus. Topic lives outside
// the msgpack payload on the wire (see Encode/Decode below) so a
// subscriber can filter on it without touching the codec, but it is also
// carried inside the envelope for REQ/REP replies and log lines that only
// have the decoded struct in hand.
type Envelope struct {
	Topic         string    `msgpack:"topic"`
	Payload       []byte    `msgpack:"payload"`
	CorrelationID idgen.ID  `msgpack:"correlation_id"`
	Timestamp     time.Time `msgpack:"timestamp"`
}

// New builds an envelope carrying v, msgpack-encoded into Payload, with a
// fresh correlation id and the current UTC time.
func New(topic string, v any) (Envelope, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: encode payload for topic %q: %v", ErrSerialization, topic, err)
	}
	return Envelope{
		Topic:         topic,
		Payload:       payload,
		CorrelationID: idgen.New(),
		Timestamp:     time.Now().UTC(),
	}, nil
}

// Reply builds a response envelope that threads the request's
// CorrelationID through, which is how REQ/REP callers match replies to
// requests when the transport itself doesn't do it for them.
func (e Envelope) Reply(topic string, v any) (Envelope, error) {
	resp, err := New(topic, v)
	if err != nil {
		return Envelope{}, err
	}
	resp.CorrelationID = e.CorrelationID
	return resp, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if err := msgpack.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: decode payload for topic %q: %v", ErrSerialization, e.Topic, err)
	}
	return nil
}

// Encode serializes the envelope itself (header + payload) as
// [topic: UTF-8 length-prefixed][envelope: msgpack], the frame format
// every transport in pkg/eisenbus writes and reads.
func Encode(e Envelope) ([]byte, error) {
	body, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: encode envelope: %v", ErrSerialization, err)
	}
	topic := []byte(e.Topic)
	if len(topic) > 0xFFFF {
		return nil, fmt.Errorf("%w: topic %q exceeds 65535 bytes", ErrValidation, e.Topic)
	}
	out := make([]byte, 2+len(topic)+len(body))
	out[0] = byte(len(topic) >> 8)
	out[1] = byte(len(topic))
	copy(out[2:], topic)
	copy(out[2+len(topic):], body)
	return out, nil
}

// Decode parses the [topic][envelope] frame written by Encode.
func DecodeFrame(frame []byte) (Envelope, error) {
	if len(frame) < 2 {
		return Envelope{}, fmt.Errorf("%w: frame too short", ErrSerialization)
	}
	tlen := int(frame[0])<<8 | int(frame[1])
	if len(frame) < 2+tlen {
		return Envelope{}, fmt.Errorf("%w: frame truncated before topic end", ErrSerialization)
	}
	topic := string(frame[2 : 2+tlen])
	var e Envelope
	if err := msgpack.Unmarshal(frame[2+tlen:], &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: decode envelope body: %v", ErrSerialization, err)
	}
	if e.Topic == "" {
		e.Topic = topic
	}
	return e, nil
}
