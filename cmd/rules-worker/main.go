// Command rules-worker evaluates anomaly-detection rules against the
// knowledge graph and dispatches matches to their configured
// notification channels. Every enabled rule is re-evaluated whenever
// ingest.complete fires, and optionally on compute.complete too (behind
// -re-evaluate-on-compute, off by default since most rules only need a
// post-ingest view). Independently, each rule's own schedule.cron
// expression is registered with a cron scheduler so a rule can also fire
// on a fixed cadence regardless of event traffic — a rule with both a
// tight cooldown and a loose cron still only fires once per cooldown
// window, since every firing path runs through the same Tracker.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/robfig/cron/v3"

	"github.com/trakrail/eisenbahn/engine/notify"
	"github.com/trakrail/eisenbahn/engine/rules"
	"github.com/trakrail/eisenbahn/engine/segment"
	"github.com/trakrail/eisenbahn/internal/orchestration"
	"github.com/trakrail/eisenbahn/internal/worker"
	"github.com/trakrail/eisenbahn/pkg/eisenbus"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/metrics"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

var met = metrics.New()

var (
	mRulesEvaluated = met.Counter("eisenbahn_rules_evaluated_total", "Rule evaluation passes run")
	mMatchesFound   = met.Counter("eisenbahn_rules_matches_total", "Entities matched across all rules")
	mDispatchFailed = met.Counter("eisenbahn_rules_dispatch_failures_total", "Notification channel send failures")
)

func main() {
	var (
		configPath          = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		segmentDir          = flag.String("segment-dir", envOr("EISENBAHN_SEGMENT_DIR", "data/segments"), "segment storage directory")
		healthInterval      = flag.Duration("health-interval", 30*time.Second, "health ping interval")
		shutdownTimeout     = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		metricsPort         = flag.Int("metrics-port", 9094, "metrics HTTP port")
		refreshInterval     = flag.Duration("graph-refresh-interval", 30*time.Second, "how often to rebuild the graph snapshot from segments")
		reEvaluateOnCompute = flag.Bool("re-evaluate-on-compute", false, "also re-evaluate rules on compute.complete, not just ingest.complete")
		opensearchAddr      = flag.String("opensearch-addr", envOr("EISENBAHN_OPENSEARCH_ADDR", ""), "OpenSearch address for rule enrichment queries (empty disables enrichment)")
		opensearchIndex     = flag.String("opensearch-index", envOr("EISENBAHN_OPENSEARCH_INDEX", "eisenbahn-events"), "OpenSearch index enrichment queries run against")
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

	boot := func(ctx context.Context) (*orchestration.System, error) {
		return orchestration.Boot(ctx, topo, orchestration.Options{
			SegmentDir:         *segmentDir,
			SegmentGranularity: segment.Daily,
			StartBroker:        false,
		}, log)
	}

	sys, err := boot(context.Background())
	if err != nil {
		log.Error("initial graph replay failed", "error", err)
		os.Exit(1)
	}

	evaluator := rules.NewEvaluator(func(string) (int, bool) { return 0, false })
	dispatcher := notify.WithDefaults([]notify.Notifier{notify.NewLogNotifier(log)})
	enrichment := rules.Disabled()
	if *opensearchAddr != "" {
		osClient, err := opensearch.NewClient(opensearch.Config{Addresses: []string{*opensearchAddr}})
		if err != nil {
			log.Warn("opensearch client init failed, enrichment disabled", "error", err)
		} else {
			enrichment = rules.New(rules.NewOpenSearchClient(osClient, *opensearchIndex))
		}
	}

	pub := eisenbus.NewPublisher(conn)
	w := &rulesWorker{
		conn:                conn,
		sys:                 sys,
		bootFn:              boot,
		refreshInterval:     *refreshInterval,
		ruleSet:             rules.DefaultRules(),
		evaluator:           evaluator,
		tracker:             rules.NewTracker(),
		dispatcher:          dispatcher,
		enrichment:          enrichment,
		reEvaluateOnCompute: *reEvaluateOnCompute,
		pub:                 pub,
		log:                 log,
	}

	wcfg := worker.NewBuilder("rules-worker").
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

type rulesWorker struct {
	conn            *eisenbus.Conn
	bootFn          func(context.Context) (*orchestration.System, error)
	refreshInterval time.Duration

	ruleSet             []rules.AnomalyRule
	evaluator           *rules.Evaluator
	tracker             *rules.Tracker
	dispatcher          *notify.Dispatcher
	enrichment          *rules.Engine
	reEvaluateOnCompute bool

	pub *eisenbus.Publisher
	log *slog.Logger

	mu  sync.RWMutex
	sys *orchestration.System

	ingestSub  *eisenbus.Subscriber
	computeSub *eisenbus.Subscriber
	cronSched  *cron.Cron

	cancel context.CancelFunc
	done   chan struct{}
}

func (w *rulesWorker) Name() string { return "rules-worker" }

func (w *rulesWorker) Start(ctx context.Context) error {
	ingestSub := eisenbus.NewSubscriber(w.conn)
	if err := ingestSub.Subscribe(eisenbus.TopicIngestComplete, func(envelope.Envelope) {
		w.evaluateAll("ingest.complete")
	}); err != nil {
		return err
	}
	w.ingestSub = ingestSub

	if w.reEvaluateOnCompute {
		computeSub := eisenbus.NewSubscriber(w.conn)
		if err := computeSub.Subscribe(eisenbus.TopicComputeComplete, func(envelope.Envelope) {
			w.evaluateAll("compute.complete")
		}); err != nil {
			ingestSub.Unsubscribe()
			return err
		}
		w.computeSub = computeSub
	}

	w.cronSched = cron.New()
	for _, rule := range w.ruleSet {
		if !rule.Metadata.Enabled {
			continue
		}
		r := rule
		if _, err := w.cronSched.AddFunc(r.Schedule.Cron, func() {
			w.evaluateRule(r, "cron")
		}); err != nil {
			w.log.Warn("rule has unschedulable cron expression, skipping cron trigger", "rule_id", r.Metadata.ID, "cron", r.Schedule.Cron, "error", err)
		}
	}
	w.cronSched.Start()

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.refreshLoop(runCtx)
	return nil
}

// refreshLoop periodically rebuilds the graph snapshot from segment
// storage. Rules evaluate against whatever snapshot is current rather
// than triggering a rebuild per event, since a rebuild replays every
// segment and doing that per ingested document would make ingestion
// throughput bound the rule worker's cost.
func (w *rulesWorker) refreshLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sys, err := w.bootFn(ctx)
			if err != nil {
				w.log.Warn("graph snapshot refresh failed, keeping previous snapshot", "error", err)
				continue
			}
			w.mu.Lock()
			old := w.sys
			w.sys = sys
			w.mu.Unlock()
			if old != nil {
				old.Shutdown(ctx)
			}
		}
	}
}

func (w *rulesWorker) currentState() *orchestration.System {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sys
}

func (w *rulesWorker) evaluateAll(trigger string) {
	for _, rule := range w.ruleSet {
		w.evaluateRule(rule, trigger)
	}
}

func (w *rulesWorker) evaluateRule(rule rules.AnomalyRule, trigger string) {
	sys := w.currentState()
	if sys == nil {
		return
	}
	entities, scores := snapshot(sys.State)

	matches, err := w.evaluator.Evaluate(rule, entities, nil, scores)
	if err != nil {
		w.log.Warn("rule evaluation failed", "rule_id", rule.Metadata.ID, "trigger", trigger, "error", err)
		return
	}
	mRulesEvaluated.Inc()

	cooldown, _ := ruleCooldown(rule)
	now := time.Now()
	for _, m := range matches {
		if !w.tracker.Allow(rule.Metadata.ID, m.EntityKey, cooldown, now) {
			continue
		}

		if rule.Detection.Enrich != nil && rule.Detection.Enrich.OpenSearch != nil {
			result := w.enrichment.Enrich(context.Background(), rule.Metadata.ID, *rule.Detection.Enrich.OpenSearch, m)
			if !result.Passed {
				continue
			}
		}
		mMatchesFound.Inc()

		results := w.dispatcher.Dispatch(context.Background(), rule.Metadata.ID, notify.Notification{
			Subject: rule.Metadata.Name,
			Body:    m.MatchedReason,
			Metadata: map[string]string{
				"rule_id":     rule.Metadata.ID,
				"anomaly_key": m.EntityKey,
				"entity_type": m.EntityType,
				"trigger":     trigger,
			},
		})
		for _, r := range results {
			if !r.Success {
				mDispatchFailed.Inc()
				w.log.Warn("notification dispatch failed", "rule_id", rule.Metadata.ID, "channel", r.Channel, "error", r.Error)
			}
		}
	}
}

func (w *rulesWorker) Stop(ctx context.Context) error {
	if w.ingestSub != nil {
		w.ingestSub.Unsubscribe()
	}
	if w.computeSub != nil {
		w.computeSub.Unsubscribe()
	}
	if w.cronSched != nil {
		<-w.cronSched.Stop().Done()
	}
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	if sys := w.currentState(); sys != nil {
		sys.Shutdown(ctx)
	}
	return nil
}

func ruleCooldown(rule rules.AnomalyRule) (time.Duration, bool) {
	if rule.Schedule.Cooldown == "" {
		return 0, false
	}
	return rules.ParseCooldown(rule.Schedule.Cooldown)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
