//go:build windows

package transport

import (
	"net"
	"time"

	winio "github.com/Microsoft/go-winio"
)

// Grant access to the pipe's owner only.
const pipeSecurityDescriptor = "D:P(A;;GA;;;OW)"

func listenPipe(e Endpoint) (net.Listener, error) {
	ln, err := winio.ListenPipe(e.Addr, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	})
	if err != nil {
		return nil, &BindError{Endpoint: e, Err: err}
	}
	return ln, nil
}

func dialPipe(addr string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(addr, &timeout)
}
