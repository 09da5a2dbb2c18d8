package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// clientEventsPerSecond bounds how fast one SSE client is written to,
// smoothing a burst of bus events (e.g. a big ingest batch finishing)
// into a steady stream rather than flushing all of it at once.
const clientEventsPerSecond = 20

// streamEvent is one bus event forwarded to SSE clients, re-decoded as
// plain JSON rather than msgpack since browsers are the consumer here.
type streamEvent struct {
	Topic    string            `json:"topic"`
	Envelope envelope.Envelope `json:"-"`
}

func (e streamEvent) MarshalJSON() ([]byte, error) {
	var payload map[string]any
	_ = e.Envelope.Decode(&payload)
	return json.Marshal(struct {
		Topic         string         `json:"topic"`
		CorrelationID string         `json:"correlation_id"`
		Payload       map[string]any `json:"payload"`
	}{
		Topic:         e.Topic,
		CorrelationID: e.Envelope.CorrelationID.String(),
		Payload:       payload,
	})
}

// broadcaster fans every received bus event out to every connected SSE
// client. A slow or stalled client is dropped from future sends rather
// than blocking the fan-out for everyone else.
type broadcaster struct {
	mu      sync.RWMutex
	clients map[chan streamEvent]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{clients: make(map[chan streamEvent]struct{})}
}

func (b *broadcaster) broadcast(ev streamEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) register() chan streamEvent {
	ch := make(chan streamEvent, 32)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unregister(ch chan streamEvent) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

func (b *broadcaster) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := b.register()
	defer b.unregister(ch)

	limiter := rate.NewLimiter(rate.Limit(clientEventsPerSecond), clientEventsPerSecond)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := limiter.Wait(r.Context()); err != nil {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			w.Write([]byte("event: " + ev.Topic + "\n"))
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
