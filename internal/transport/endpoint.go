// Package transport binds and frames the daemon's local IPC endpoints:
// Unix domain sockets, Windows named pipes, and an opt-in loopback TCP
// listener. Messages are newline-delimited JSON lines.
package transport

import (
	"fmt"
	"runtime"
)

// Kind names an endpoint flavor.
type Kind string

const (
	KindUnix Kind = "unix"
	KindPipe Kind = "pipe"
	KindTCP  Kind = "tcp"
)

// Endpoint describes where the daemon listens. Addr is a socket path for
// unix, a pipe name for pipe, and host:port for tcp. TCP is refused unless
// AllowTCP is set, and even then only on loopback.
type Endpoint struct {
	Kind     Kind
	Addr     string
	AllowTCP bool
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Addr)
}

// DefaultKind returns the native endpoint flavor for the current OS.
func DefaultKind() Kind {
	if runtime.GOOS == "windows" {
		return KindPipe
	}
	return KindUnix
}

// BindError wraps a failure to claim an endpoint, distinguishing "another
// daemon is live" from plain I/O errors.
type BindError struct {
	Endpoint Endpoint
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Endpoint, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
