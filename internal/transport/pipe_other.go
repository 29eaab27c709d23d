//go:build !windows

package transport

import (
	"errors"
	"net"
	"time"
)

var errPipesUnsupported = errors.New("named pipes are only available on windows")

func listenPipe(e Endpoint) (net.Listener, error) {
	return nil, &BindError{Endpoint: e, Err: errPipesUnsupported}
}

func dialPipe(string, time.Duration) (net.Conn, error) {
	return nil, errPipesUnsupported
}
