// Package orchestration sequences the steps every eisenbahn process
// goes through before it can start serving traffic: recover segment
// state from disk, rebuild the in-memory graph and catalog from it,
// bring the scheduler up with that state, and finally connect to the
// bus. This mirrors the boot sequence the original system ran on every
// restart so a process crash never loses anything durable: segments on
// disk are the source of truth, everything in memory gets rebuilt from
// them.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trakrail/eisenbahn/engine/ingest"
	"github.com/trakrail/eisenbahn/engine/knowledge"
	"github.com/trakrail/eisenbahn/engine/scheduler"
	"github.com/trakrail/eisenbahn/engine/segment"
	"github.com/trakrail/eisenbahn/internal/broker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

// Options gathers the inputs Boot needs that a topology file alone
// doesn't capture: where segments live on disk and how many workers to
// use while replaying them into the graph.
type Options struct {
	SegmentDir         string
	SegmentGranularity segment.Granularity
	ReplayWorkers      int
	StartBroker        bool
}

// System is everything Boot assembled: the durable segment store, the
// rebuilt knowledge state, a scheduler wired to it, and (if
// Options.StartBroker was set) the embedded broker and a bus connection
// dialed into it. Shutdown tears all of it down in reverse order.
type System struct {
	Segment *segment.Store
	State   *knowledge.State
	Sched   *scheduler.Scheduler
	Broker  *broker.Broker
	Conn    *eisenbus.Conn

	log *slog.Logger
}

// Boot runs the full startup sequence: open the segment store, replay
// every segment through the ingestion pipeline into a fresh graph,
// build the catalog off that graph, construct a scheduler bound to the
// result, and (optionally) start the broker and dial into it. Each step
// only begins once the previous one has fully completed — unlike
// per-batch ingestion, startup replay is not allowed to race the graph
// it's building.
func Boot(ctx context.Context, topo topology.Config, opts Options, log *slog.Logger) (*System, error) {
	if log == nil {
		log = slog.Default()
	}

	store, err := segment.NewStore(opts.SegmentDir, opts.SegmentGranularity)
	if err != nil {
		return nil, fmt.Errorf("orchestration: open segment store: %w", err)
	}

	state := knowledge.New()
	replayed, err := replaySegments(store, state, opts.ReplayWorkers, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("orchestration: replay segments: %w", err)
	}
	log.Info("replayed segments into graph", "documents", replayed, "nodes", state.Graph().NodeCount())

	cat := state.RebuildCatalog()
	log.Info("catalog rebuilt", "entity_types", len(cat.EntityTypes), "edge_types", len(cat.EdgeTypes))

	sched := scheduler.New(scheduler.DefaultConfig(), state, log)

	sys := &System{Segment: store, State: state, Sched: sched, log: log}

	if opts.StartBroker {
		b, err := broker.Start(broker.Config{Frontend: topo.Broker.Frontend, Backend: topo.Broker.Backend}, log)
		if err != nil {
			sys.Shutdown(ctx)
			return nil, fmt.Errorf("orchestration: start broker: %w", err)
		}
		sys.Broker = b

		conn, err := eisenbus.Dial(b.ClientURL())
		if err != nil {
			sys.Shutdown(ctx)
			return nil, fmt.Errorf("orchestration: dial broker: %w", err)
		}
		sys.Conn = conn
	}

	return sys, nil
}

// replaySegments scans every document ever written and feeds it back
// through the same extraction pipeline live ingestion uses, in whole
// batches per call so the parallel extraction step has something to
// work with; batchSize is fixed rather than configurable since startup
// replay isn't latency sensitive the way live ingestion is.
const replayBatchSize = 500

func replaySegments(store *segment.Store, state *knowledge.State, workers int, log *slog.Logger) (int, error) {
	pipeline := ingest.NewPipeline(state.Graph(), log, workers, ingest.Metrics{})

	var batch []envelope.Document
	var total int
	flush := func() {
		if len(batch) == 0 {
			return
		}
		total += pipeline.Run(context.Background(), batch)
		batch = batch[:0]
	}

	start := time.Time{}
	end := time.Now().Add(24 * time.Hour)
	err := store.Scan(start, end, nil, func(doc envelope.Document) error {
		batch = append(batch, doc)
		if len(batch) >= replayBatchSize {
			flush()
		}
		return nil
	})
	flush()
	return total, err
}

// Shutdown tears the system down in reverse dependency order: bus
// connection, broker, scheduler, then the segment store last so any
// in-flight flush has already quiesced.
func (s *System) Shutdown(ctx context.Context) {
	if s.Conn != nil {
		s.Conn.Close()
	}
	if s.Broker != nil {
		s.Broker.Shutdown()
	}
	if s.Sched != nil {
		s.Sched.Shutdown()
	}
	if s.Segment != nil {
		if err := s.Segment.Close(); err != nil {
			s.log.Warn("segment store close failed", "error", err)
		}
	}
}
