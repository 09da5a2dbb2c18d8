// Command ingest-worker pulls raw documents off the "ingest" pipeline
// stage, persists them to segments, extracts graph operations, and
// publishes an ingest.complete event once a batch has been durably
// written and applied.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/trakrail/eisenbahn/engine/ingest"
	"github.com/trakrail/eisenbahn/engine/segment"
	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/internal/worker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/metrics"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

var met = metrics.New()

var (
	mDocsIngested = met.Counter("eisenbahn_ingest_documents_total", "Documents ingested")
	mBatchesDone  = met.Counter("eisenbahn_ingest_batches_total", "Batches completed")
	mBatchLatency = met.Histogram("eisenbahn_ingest_batch_seconds", "Time to persist+extract one batch", nil)
)

func main() {
	var (
		configPath      = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		segmentDir      = flag.String("segment-dir", envOr("EISENBAHN_SEGMENT_DIR", "data/segments"), "segment storage directory")
		healthInterval  = flag.Duration("health-interval", 30*time.Second, "health ping interval")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		metricsPort     = flag.Int("metrics-port", 9091, "metrics HTTP port")
		replayWorkers   = flag.Int("replay-workers", 0, "extraction concurrency (0 = one goroutine per document)")
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

	store, err := segment.NewStore(*segmentDir, segment.Daily)
	if err != nil {
		log.Error("open segment store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	graph := graphstore.New()
	pipeline := ingest.NewPipeline(graph, log, *replayWorkers, ingest.Metrics{
		DocumentsIngested: mDocsIngested,
		BatchLatency:      mBatchLatency,
	})

	pub := eisenbus.NewPublisher(conn)
	w := &ingestWorker{conn: conn, store: store, pipeline: pipeline, pub: pub, log: log}

	cfg := worker.NewBuilder("ingest-worker").
		HealthInterval(*healthInterval).
		ShutdownTimeout(*shutdownTimeout).
		Subscribe("eisenbahn.pipeline.ingest").
		Build()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := worker.Run(ctx, w, pub, cfg, log); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

type ingestWorker struct {
	conn     *eisenbus.Conn
	store    *segment.Store
	pipeline *ingest.Pipeline
	pub      *eisenbus.Publisher
	log      *slog.Logger

	recv   *eisenbus.PipelineReceiver
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *ingestWorker) Name() string { return "ingest-worker" }

func (w *ingestWorker) Start(ctx context.Context) error {
	recv, err := eisenbus.NewPipelineReceiver(w.conn, "ingest")
	if err != nil {
		return err
	}
	w.recv = recv

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(runCtx)
	return nil
}

func (w *ingestWorker) loop(ctx context.Context) {
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

		var doc envelope.Document
		if err := env.Decode(&doc); err != nil {
			w.log.Warn("dropping malformed document envelope", "error", err)
			continue
		}

		start := time.Now()
		if _, err := w.store.Insert(doc); err != nil {
			w.log.Warn("segment insert failed", "error", err, "doc_id", doc.ID)
			continue
		}
		w.pipeline.Run(ctx, []envelope.Document{doc})
		mBatchLatency.Since(start)
		mBatchesDone.Inc()

		if err := w.pub.Publish(ctx, eisenbus.TopicIngestComplete, ingestCompleteEvent{DocumentID: doc.ID.String()}); err != nil {
			w.log.Warn("publish ingest.complete failed", "error", err)
		}
	}
}

func (w *ingestWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.recv != nil {
		w.recv.Close()
	}
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	return w.store.Flush()
}

type ingestCompleteEvent struct {
	DocumentID string `msgpack:"document_id"`
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
