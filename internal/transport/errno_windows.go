//go:build windows

package transport

import "golang.org/x/sys/windows"

func syscallEADDRINUSE() error { return windows.WSAEADDRINUSE }
