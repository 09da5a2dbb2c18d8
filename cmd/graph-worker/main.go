// Command graph-worker applies graph updates to the knowledge state's
// graph. It receives GraphUpdate batches directly from compute over a
// PULL pipeline (the data-bearing path), and separately subscribes to
// compute.complete purely to observe completion — that event carries no
// payload, so it is never decoded as an update.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/trakrail/eisenbahn/engine/knowledge"
	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/internal/worker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/metrics"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

var met = metrics.New()

var (
	mUpdatesApplied  = met.Counter("eisenbahn_graph_updates_applied_total", "GraphUpdate batches applied")
	mComputeObserved = met.Counter("eisenbahn_graph_compute_complete_observed_total", "compute.complete events observed")
)

func main() {
	var (
		configPath      = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		healthInterval  = flag.Duration("health-interval", 30*time.Second, "health ping interval")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		metricsPort     = flag.Int("metrics-port", 9092, "metrics HTTP port")
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

	state := knowledge.New()
	pub := eisenbus.NewPublisher(conn)
	w := &graphWorker{conn: conn, state: state, log: log}

	cfg := worker.NewBuilder("graph-worker").
		HealthInterval(*healthInterval).
		ShutdownTimeout(*shutdownTimeout).
		Subscribe("eisenbahn.pipeline.graph").
		Subscribe(eisenbus.TopicComputeComplete).
		Build()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := worker.Run(ctx, w, pub, cfg, log); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

type graphWorker struct {
	conn  *eisenbus.Conn
	state *knowledge.State
	log   *slog.Logger

	recv *eisenbus.PipelineReceiver
	sub  *eisenbus.Subscriber

	cancel context.CancelFunc
	done   chan struct{}
}

func (w *graphWorker) Name() string { return "graph-worker" }

func (w *graphWorker) Start(ctx context.Context) error {
	recv, err := eisenbus.NewPipelineReceiver(w.conn, "graph")
	if err != nil {
		return err
	}
	w.recv = recv

	sub := eisenbus.NewSubscriber(w.conn)
	if err := sub.Subscribe(eisenbus.TopicComputeComplete, func(envelope.Envelope) {
		mComputeObserved.Inc()
	}); err != nil {
		recv.Close()
		return err
	}
	w.sub = sub

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(runCtx)
	return nil
}

func (w *graphWorker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		env, err := w.recv.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("pipeline receive failed", "error", err)
			continue
		}

		var update graphstore.GraphUpdate
		if err := env.Decode(&update); err != nil {
			w.log.Warn("dropping malformed graph update", "error", err)
			continue
		}

		graphstore.ApplyUpdate(w.state.Graph(), w.log, update)
		mUpdatesApplied.Inc()
	}
}

func (w *graphWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.recv != nil {
		w.recv.Close()
	}
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
