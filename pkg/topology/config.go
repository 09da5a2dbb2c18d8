// Package topology loads and validates eisenbahn.toml: the broker
// transport, the set of workers expected to connect, and the pipeline
// stage graph between them. It is the Go-native replacement for the
// original system's topology file, parsed with
// github.com/pelletier/go-toml/v2 instead of the Rust config crate, with
// the same EISENBAHN_* environment variable override convention the
// other workers' CLIs already use for individual flags.
package topology

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// Config is the parsed shape of eisenbahn.toml.
type Config struct {
	Broker   BrokerConfig   `toml:"broker"`
	Workers  []WorkerConfig `toml:"workers"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

// BrokerConfig names the frontend/backend transports the broker listens
// on and every worker dials.
type BrokerConfig struct {
	Frontend envelope.Transport `toml:"frontend"`
	Backend  envelope.Transport `toml:"backend"`
}

// WorkerConfig names one worker binary expected in this topology, purely
// for documentation/validation purposes — the broker doesn't refuse
// connections from workers it wasn't told about.
type WorkerConfig struct {
	Name   string   `toml:"name"`
	Topics []string `toml:"topics"`
}

// PipelineConfig is the ordered stage graph pipeline workers push/pull
// through.
type PipelineConfig struct {
	Stages []StageConfig `toml:"stages"`
}

// StageConfig names one pipeline stage and the stages whose output feeds
// it, so Validate can detect a cycle before any worker starts.
type StageConfig struct {
	Name      string   `toml:"name"`
	DependsOn []string `toml:"depends_on"`
}

// Load reads and parses path, then applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("topology: read %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("topology: parse %s: %w", path, err)
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Local returns a single-process topology: broker on an ephemeral
// loopback TCP port, one unordered pipeline stage per worker kind. Used
// as the fallback every cmd/*-worker main() falls back to when the
// configured file can't be read, matching the original graph-worker's
// "failed to load config, using local defaults" behavior.
func Local() Config {
	return Config{
		Broker: BrokerConfig{
			Frontend: envelope.TCP("127.0.0.1", 4222),
			Backend:  envelope.TCP("127.0.0.1", 4222),
		},
		Pipeline: PipelineConfig{
			Stages: []StageConfig{
				{Name: "ingest"},
				{Name: "graph", DependsOn: []string{"ingest"}},
				{Name: "compute", DependsOn: []string{"graph"}},
				{Name: "rules", DependsOn: []string{"compute"}},
			},
		},
	}
}

// Distributed returns a topology with the broker reachable at
// host:basePort and the same default pipeline stage graph as Local.
func Distributed(host string, basePort int) Config {
	cfg := Local()
	cfg.Broker.Frontend = envelope.TCP(host, basePort)
	cfg.Broker.Backend = envelope.TCP(host, basePort)
	return cfg
}

// BrokerFrontendTransport is the endpoint workers dial to publish and
// subscribe.
func (c Config) BrokerFrontendTransport() envelope.Transport { return c.Broker.Frontend }

// BrokerBackendTransport is retained for topology files written for the
// original two-socket proxy; eisenbahn's embedded NATS server answers
// both legs on Frontend, so this must equal it (Validate enforces that).
func (c Config) BrokerBackendTransport() envelope.Transport { return c.Broker.Backend }

// ApplyEnv overlays EISENBAHN_BROKER_HOST / EISENBAHN_BROKER_PORT onto a
// parsed config, the same screaming-snake convention the per-worker
// flag.String(..., env=...) defaults use in the original CLIs.
func ApplyEnv(cfg *Config) {
	if host := os.Getenv("EISENBAHN_BROKER_HOST"); host != "" {
		cfg.Broker.Frontend.Host = host
		cfg.Broker.Backend.Host = host
	}
	if portStr := os.Getenv("EISENBAHN_BROKER_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Broker.Frontend.Port = port
			cfg.Broker.Backend.Port = port
		}
	}
	if topicsEnv := os.Getenv("EISENBAHN_EXTRA_WORKER_TOPICS"); topicsEnv != "" {
		// "workername=topic1,topic2;workername2=topic3" — rarely used,
		// supports injecting ad-hoc subscriptions without editing the file.
		for _, entry := range strings.Split(topicsEnv, ";") {
			name, topics, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			for i := range cfg.Workers {
				if cfg.Workers[i].Name == name {
					cfg.Workers[i].Topics = append(cfg.Workers[i].Topics, strings.Split(topics, ",")...)
				}
			}
		}
	}
}
