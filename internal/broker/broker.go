// Package broker runs the in-process message broker every eisenbahn
// worker connects to. It embeds a github.com/nats-io/nats-server/v2
// server rather than shelling out to a separate process, the same way
// the original system ran its ZeroMQ XPUB/XSUB and XPULL/XPUSH proxy
// devices in-process on the frontend/backend transport pair.
package broker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/metrics"
)

// Config controls where the embedded server listens. Frontend is where
// publishers and requesters connect; eisenbahn runs a single NATS server
// for both legs (NATS doesn't need a separate XPUB/XSUB proxy the way
// ZeroMQ did), so Backend is retained only for topology files that still
// name it — it must resolve to the same transport as Frontend.
type Config struct {
	Frontend envelope.Transport
	Backend  envelope.Transport
}

// Broker owns the embedded NATS server and the internal connection it
// uses to track forwarded-message metrics and worker health.
type Broker struct {
	srv     *server.Server
	conn    *eisenbus.Conn
	metrics *MetricsCollector
	log     *slog.Logger
}

// Start boots the embedded server, waits for it to accept connections,
// and subscribes the internal metrics/health collector.
func Start(cfg Config, log *slog.Logger) (*Broker, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Frontend.Validate(); err != nil {
		return nil, fmt.Errorf("broker: invalid frontend transport: %w", err)
	}

	opts := &server.Options{
		Host:      cfg.Frontend.Host,
		Port:      cfg.Frontend.Port,
		NoLog:     true,
		NoSigs:    true,
		JetStream: false,
	}
	if cfg.Frontend.Kind == envelope.TransportIPC {
		opts.Host = "127.0.0.1"
		opts.Port = server.RANDOM_PORT
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("broker: create server: %w", err)
	}
	srv.SetLoggerV2(&slogBridge{log: log}, false, false, false)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("broker: server not ready for connections")
	}

	conn, err := eisenbus.Dial(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("broker: dial self: %w", err)
	}

	b := &Broker{
		srv:     srv,
		conn:    conn,
		metrics: NewMetricsCollector(metrics.New()),
		log:     log,
	}
	if err := b.metrics.attach(conn); err != nil {
		b.Shutdown()
		return nil, err
	}
	log.Info("broker started", "url", srv.ClientURL())
	return b, nil
}

// ClientURL returns the URL workers should Dial to reach this broker.
func (b *Broker) ClientURL() string { return b.srv.ClientURL() }

// Metrics exposes the collector so cmd/broker can serve it over HTTP.
func (b *Broker) Metrics() *MetricsCollector { return b.metrics }

// Shutdown drains the internal connection and stops the server.
func (b *Broker) Shutdown() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.srv != nil {
		b.srv.Shutdown()
		b.srv.WaitForShutdown()
	}
}

// slogBridge adapts *slog.Logger to the server.Logger interface
// nats-server expects, so broker startup noise flows through the same
// structured logging every other component uses instead of nats-server's
// own stdout writer.
type slogBridge struct{ log *slog.Logger }

func (s *slogBridge) Noticef(format string, v ...any) { s.log.Info(fmt.Sprintf(format, v...)) }
func (s *slogBridge) Warnf(format string, v ...any)   { s.log.Warn(fmt.Sprintf(format, v...)) }
func (s *slogBridge) Fatalf(format string, v ...any)  { s.log.Error(fmt.Sprintf(format, v...)) }
func (s *slogBridge) Errorf(format string, v ...any)  { s.log.Error(fmt.Sprintf(format, v...)) }
func (s *slogBridge) Debugf(format string, v ...any)  { s.log.Debug(fmt.Sprintf(format, v...)) }
func (s *slogBridge) Tracef(format string, v ...any)  { s.log.Debug(fmt.Sprintf(format, v...)) }
