package eisenbus

import "errors"

// ErrTransport marks a recoverable transport failure: dial, publish, or
// subscribe errors that a worker should log and retry rather than treat
// as fatal. NATS's own reconnect loop handles the retry for connection
// loss; this sentinel is for errors that surface past that loop.
var ErrTransport = errors.New("eisenbus: transport error")
