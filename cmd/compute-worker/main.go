// Command compute-worker runs the registered graph-analytics tasks on
// their priority schedule, re-running the P1 task immediately on every
// ingest.complete event and letting P2/P3 tasks tick on their own
// interval via the scheduler's background loop. It publishes
// compute.complete (no payload) after every tick that actually executed
// something, so the graph worker can observe completion without
// decoding a GraphUpdate from the event.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/trakrail/eisenbahn/engine/knowledge"
	"github.com/trakrail/eisenbahn/engine/scheduler"
	"github.com/trakrail/eisenbahn/internal/worker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/metrics"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

var met = metrics.New()

var mIngestTriggeredRuns = met.Counter("eisenbahn_compute_ingest_triggered_runs_total", "P1 tasks executed in response to ingest.complete")

func main() {
	var (
		configPath      = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		healthInterval  = flag.Duration("health-interval", 30*time.Second, "health ping interval")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		metricsPort     = flag.Int("metrics-port", 9093, "metrics HTTP port")
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
	cfg := scheduler.DefaultConfig()
	sched := scheduler.New(cfg, state, log)

	statsT := &statsTask{state: state, interval: cfg.IntervalFor(scheduler.P1)}
	sched.RegisterTask(statsT)
	sched.RegisterTask(&pageRankTask{state: state, interval: cfg.IntervalFor(scheduler.P2)})
	sched.RegisterTask(&communityTask{state: state, interval: cfg.IntervalFor(scheduler.P2)})

	pub := eisenbus.NewPublisher(conn)
	w := &computeWorker{conn: conn, sched: sched, statsTask: statsT, pub: pub, log: log}

	wcfg := worker.NewBuilder("compute-worker").
		HealthInterval(*healthInterval).
		ShutdownTimeout(*shutdownTimeout).
		Subscribe(eisenbus.TopicIngestComplete).
		Build()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := worker.Run(ctx, w, pub, wcfg, log); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

type computeWorker struct {
	conn      *eisenbus.Conn
	sched     *scheduler.Scheduler
	statsTask *statsTask
	pub       *eisenbus.Publisher
	log       *slog.Logger

	sub    *eisenbus.Subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *computeWorker) Name() string { return "compute-worker" }

func (w *computeWorker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.sched.Run(runCtx)
	}()

	sub := eisenbus.NewSubscriber(w.conn)
	if err := sub.Subscribe(eisenbus.TopicIngestComplete, func(envelope.Envelope) {
		if _, err := w.sched.ExecuteImmediate(w.statsTask); err != nil {
			w.log.Warn("ingest-triggered stats task failed", "error", err)
			return
		}
		mIngestTriggeredRuns.Inc()
		if err := w.pub.Publish(context.Background(), eisenbus.TopicComputeComplete, struct{}{}); err != nil {
			w.log.Warn("publish compute.complete failed", "error", err)
		}
	}); err != nil {
		cancel()
		return err
	}
	w.sub = sub
	return nil
}

func (w *computeWorker) Stop(ctx context.Context) error {
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	w.sched.Shutdown()
	if w.cancel != nil {
		w.cancel()
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
