// Command gateway-worker is the bus worker that also exposes an HTTP
// surface: a health check and a server-sent-events stream forwarding
// ingest.complete, compute.complete, and anomaly.detected events to
// connected clients. It carries no dashboard assets or broader API —
// just enough surface for an operator console to watch the bus live.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/trakrail/eisenbahn/internal/worker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/mid"
	"github.com/trakrail/eisenbahn/pkg/metrics"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

var met = metrics.New()

var mStreamedEvents = met.Counter("eisenbahn_gateway_streamed_events_total", "Events forwarded to SSE clients")

func main() {
	var (
		configPath      = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		httpAddr        = flag.String("http-addr", envOr("EISENBAHN_GATEWAY_ADDR", ":8090"), "HTTP listen address")
		corsOrigin      = flag.String("cors-origin", envOr("EISENBAHN_CORS_ORIGIN", "*"), "CORS allowed origin")
		healthInterval  = flag.Duration("health-interval", 30*time.Second, "health ping interval")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		metricsPort     = flag.Int("metrics-port", 9095, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)
	met.ServeAsync(*metricsPort)

	topo, err := topology.Load(*configPath)
	if err != nil {
		log.Warn("failed to load topology config, using local defaults", "error", err)
		topo = topology.Local()
	}

	conn, err := eisenbus.Dial(topo.BrokerFrontendTransport().Endpoint())
	if err != nil {
		log.Error("dial broker failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	broadcaster := newBroadcaster()
	pub := eisenbus.NewPublisher(conn)
	w := &gatewayWorker{
		conn:        conn,
		broadcaster: broadcaster,
		httpAddr:    *httpAddr,
		corsOrigin:  *corsOrigin,
		pub:         pub,
		log:         log,
	}

	cfg := worker.NewBuilder("gateway-worker").
		HealthInterval(*healthInterval).
		ShutdownTimeout(*shutdownTimeout).
		Build()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := worker.Run(ctx, w, pub, cfg, log); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

type gatewayWorker struct {
	conn        *eisenbus.Conn
	broadcaster *broadcaster
	httpAddr    string
	corsOrigin  string
	pub         *eisenbus.Publisher
	log         *slog.Logger

	srv  *http.Server
	subs []*eisenbus.Subscriber
}

func (w *gatewayWorker) Name() string { return "gateway-worker" }

var forwardedTopics = []string{
	eisenbus.TopicIngestComplete,
	eisenbus.TopicComputeComplete,
	eisenbus.TopicAnomalyDetected,
	eisenbus.TopicRuleChanged,
	eisenbus.TopicWorkerHealth,
}

func (w *gatewayWorker) Start(ctx context.Context) error {
	for _, topic := range forwardedTopics {
		topic := topic
		sub := eisenbus.NewSubscriber(w.conn)
		if err := sub.Subscribe(topic, func(env envelope.Envelope) {
			w.broadcaster.broadcast(streamEvent{Topic: topic, Envelope: env})
			mStreamedEvents.Inc()
		}); err != nil {
			for _, s := range w.subs {
				s.Unsubscribe()
			}
			return err
		}
		w.subs = append(w.subs, sub)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", w.handleHealthz)
	mux.HandleFunc("/events", w.broadcaster.handleSSE)

	handler := mid.Chain(mux, mid.Recover(w.log), mid.Logger(w.log), mid.CORS(w.corsOrigin))
	w.srv = &http.Server{Addr: w.httpAddr, Handler: handler}

	go func() {
		if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.log.Error("gateway HTTP server error", "error", err)
		}
	}()
	w.log.Info("gateway listening", "addr", w.httpAddr)
	return nil
}

func (w *gatewayWorker) handleHealthz(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
}

func (w *gatewayWorker) Stop(ctx context.Context) error {
	for _, s := range w.subs {
		s.Unsubscribe()
	}
	w.broadcaster.closeAll()
	if w.srv != nil {
		return w.srv.Shutdown(ctx)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
