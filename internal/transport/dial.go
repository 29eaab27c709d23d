package transport

import (
	"fmt"
	"net"
	"time"
)

// Dial connects to a daemon endpoint. Used by the CLI client.
func Dial(e Endpoint, timeout time.Duration) (net.Conn, error) {
	switch e.Kind {
	case KindUnix:
		return net.DialTimeout("unix", e.Addr, timeout)
	case KindPipe:
		return dialPipe(e.Addr, timeout)
	case KindTCP:
		return net.DialTimeout("tcp", e.Addr, timeout)
	default:
		return nil, fmt.Errorf("unknown endpoint kind %q", e.Kind)
	}
}
