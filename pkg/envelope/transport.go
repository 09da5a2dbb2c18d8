package envelope

import "fmt"

// TransportKind is the connection family a Transport describes. The
// original system ran over ZeroMQ tcp:// and ipc:// endpoints; eisenbahn
// keeps the same two-kind split but resolves them to NATS URLs
// (pkg/eisenbus owns that translation).
type TransportKind string

const (
	TransportTCP TransportKind = "tcp"
	TransportIPC TransportKind = "ipc"
)

// Transport describes where to reach a broker endpoint.
type Transport struct {
	Kind TransportKind `toml:"kind" msgpack:"kind"`
	Host string        `toml:"host,omitempty" msgpack:"host,omitempty"`
	Port int           `toml:"port,omitempty" msgpack:"port,omitempty"`
	Path string        `toml:"path,omitempty" msgpack:"path,omitempty"`
}

// TCP builds a tcp:// transport bound to host:port.
func TCP(host string, port int) Transport {
	return Transport{Kind: TransportTCP, Host: host, Port: port}
}

// IPC builds an ipc:// transport addressed by name. Under NATS this
// becomes a local-only connection over the loopback address — eisenbahn
// has no real UNIX-socket IPC path, but the distinction is kept so
// topology files written for the original system still parse.
func IPC(name string) Transport {
	return Transport{Kind: TransportIPC, Path: name}
}

// Validate checks that Kind is one of the two supported values and that
// the fields required by that kind are present.
func (t Transport) Validate() error {
	switch t.Kind {
	case TransportTCP:
		if t.Host == "" || t.Port <= 0 {
			return fmt.Errorf("%w: tcp transport requires host and port", ErrValidation)
		}
	case TransportIPC:
		if t.Path == "" {
			return fmt.Errorf("%w: ipc transport requires a path", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown transport kind %q", ErrValidation, t.Kind)
	}
	return nil
}

// Endpoint renders the transport as a URL eisenbus can dial or bind.
func (t Transport) Endpoint() string {
	switch t.Kind {
	case TransportTCP:
		return fmt.Sprintf("nats://%s:%d", t.Host, t.Port)
	case TransportIPC:
		return fmt.Sprintf("nats://127.0.0.1:0/ipc/%s", t.Path)
	default:
		return ""
	}
}
