package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// probeTimeout bounds the liveness dial against an existing socket file.
const probeTimeout = 500 * time.Millisecond

// Listen claims the endpoint. A leftover Unix socket file from a crashed
// daemon is reclaimed after a liveness probe; a socket with a live daemon
// behind it yields a BindError.
func Listen(e Endpoint) (net.Listener, error) {
	switch e.Kind {
	case KindUnix:
		return listenUnix(e)
	case KindPipe:
		return listenPipe(e)
	case KindTCP:
		return listenTCP(e)
	default:
		return nil, fmt.Errorf("unknown endpoint kind %q", e.Kind)
	}
}

func listenUnix(e Endpoint) (net.Listener, error) {
	if dir := filepath.Dir(e.Addr); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &BindError{Endpoint: e, Err: err}
		}
	}
	ln, err := net.Listen("unix", e.Addr)
	if err != nil && errors.Is(err, syscallEADDRINUSE()) {
		if probeAlive(e.Addr) {
			return nil, &BindError{Endpoint: e, Err: errors.New("endpoint already served by a live daemon")}
		}
		// Stale socket from an unclean shutdown; unlink and rebind.
		if rmErr := os.Remove(e.Addr); rmErr != nil {
			return nil, &BindError{Endpoint: e, Err: rmErr}
		}
		ln, err = net.Listen("unix", e.Addr)
	}
	if err != nil {
		return nil, &BindError{Endpoint: e, Err: err}
	}
	if err := os.Chmod(e.Addr, 0o600); err != nil {
		ln.Close()
		return nil, &BindError{Endpoint: e, Err: err}
	}
	return ln, nil
}

// probeAlive dials the socket to see whether anything is accepting.
func probeAlive(path string) bool {
	conn, err := net.DialTimeout("unix", path, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func listenTCP(e Endpoint) (net.Listener, error) {
	if !e.AllowTCP {
		return nil, &BindError{Endpoint: e, Err: errors.New("tcp endpoint not enabled")}
	}
	host, _, err := net.SplitHostPort(e.Addr)
	if err != nil {
		return nil, &BindError{Endpoint: e, Err: err}
	}
	if !isLoopbackHost(host) {
		return nil, &BindError{Endpoint: e, Err: fmt.Errorf("refusing non-loopback host %q", host)}
	}
	ln, err := net.Listen("tcp", e.Addr)
	if err != nil {
		return nil, &BindError{Endpoint: e, Err: err}
	}
	return ln, nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
