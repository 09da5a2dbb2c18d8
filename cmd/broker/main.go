// Command broker runs the embedded message bus every other eisenbahn
// worker connects to, plus a /metrics endpoint reporting forwarded
// message counts and worker health.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/trakrail/eisenbahn/internal/broker"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

func main() {
	var (
		configPath = flag.String("config", envOr("EISENBAHN_CONFIG", "config/eisenbahn.toml"), "topology config file")
		metricsPort = flag.Int("metrics-port", 9090, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	topo, err := topology.Load(*configPath)
	if err != nil {
		log.Warn("failed to load topology config, using local defaults", "error", err)
		topo = topology.Local()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := broker.Start(broker.Config{Frontend: topo.Broker.Frontend, Backend: topo.Broker.Backend}, log)
	if err != nil {
		log.Error("broker start failed", "error", err)
		os.Exit(1)
	}
	defer b.Shutdown()

	b.Metrics().Registry().ServeAsync(*metricsPort)
	log.Info("broker ready", "url", b.ClientURL(), "metrics_port", *metricsPort)

	<-ctx.Done()
	log.Info("broker shutting down")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
