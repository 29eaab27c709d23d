package transport

import (
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func pipePair(maxBytes int, timeout time.Duration) (*Conn, net.Conn) {
	server, client := net.Pipe()
	return NewConn(server, maxBytes, timeout), client
}

func TestReadLineFrames(t *testing.T) {
	c, peer := pipePair(0, time.Second)
	defer c.Close()
	go peer.Write([]byte("{\"m\":1}\n\n{\"m\":2}\r\n"))

	line, err := c.ReadLine()
	if err != nil || string(line) != `{"m":1}` {
		t.Fatalf("first line = %q, %v", line, err)
	}
	// Blank line skipped, CR stripped.
	line, err = c.ReadLine()
	if err != nil || string(line) != `{"m":2}` {
		t.Fatalf("second line = %q, %v", line, err)
	}
}

func TestReadLineOversizedCompleteLine(t *testing.T) {
	c, peer := pipePair(32, time.Second)
	defer c.Close()
	big := strings.Repeat("x", 100)
	go peer.Write([]byte(big + "\nok\n"))

	if _, err := c.ReadLine(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	line, err := c.ReadLine()
	if err != nil || string(line) != "ok" {
		t.Fatalf("after oversize: %q, %v", line, err)
	}
}

func TestReadLineOversizedBeyondBuffer(t *testing.T) {
	// Longer than the 64 KiB read buffer, so the reject happens before the
	// newline arrives and the remainder must be discarded.
	c, peer := pipePair(1024, 2*time.Second)
	defer c.Close()
	big := strings.Repeat("y", 100<<10)
	go peer.Write([]byte(big + "\nok\n"))

	if _, err := c.ReadLine(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	line, err := c.ReadLine()
	if err != nil || string(line) != "ok" {
		t.Fatalf("after oversize: %q, %v", line, err)
	}
}

func TestReadLineTimeoutMidMessage(t *testing.T) {
	c, peer := pipePair(0, 50*time.Millisecond)
	defer c.Close()
	go func() {
		peer.Write([]byte(`{"partial":`))
		time.Sleep(200 * time.Millisecond)
		peer.Write([]byte("abandoned\nok\n"))
	}()

	if _, err := c.ReadLine(); !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("err = %v, want ErrReadTimeout", err)
	}
	// The stalled message's tail is dropped; the next message reads clean.
	line, err := c.ReadLine()
	if err != nil || string(line) != "ok" {
		t.Fatalf("after timeout: %q, %v", line, err)
	}
}

func TestReadLineIdleWaits(t *testing.T) {
	c, peer := pipePair(0, 30*time.Millisecond)
	defer c.Close()
	go func() {
		// Well past several timeout periods with no bytes at all.
		time.Sleep(150 * time.Millisecond)
		peer.Write([]byte("ping\n"))
	}()

	line, err := c.ReadLine()
	if err != nil || string(line) != "ping" {
		t.Fatalf("idle read = %q, %v", line, err)
	}
}

func TestWriteLine(t *testing.T) {
	c, peer := pipePair(0, time.Second)
	defer c.Close()
	done := make(chan error, 1)
	go func() { done <- c.WriteLine([]byte(`{"ok":true}`)) }()

	buf := make([]byte, 64)
	n, err := peer.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "{\"ok\":true}\n" {
		t.Errorf("wire = %q", buf[:n])
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestListenUnixReclaimsStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dg.sock")
	e := Endpoint{Kind: KindUnix, Addr: path}

	ln, err := Listen(e)
	if err != nil {
		t.Fatal(err)
	}
	// Leave the socket file behind, as after a crash.
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()

	ln2, err := Listen(e)
	if err != nil {
		t.Fatalf("stale socket not reclaimed: %v", err)
	}
	ln2.Close()
}

func TestListenUnixRefusesLiveSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dg.sock")
	e := Endpoint{Kind: KindUnix, Addr: path}

	ln, err := Listen(e)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, err = Listen(e)
	var berr *BindError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want BindError", err)
	}
	if !strings.Contains(berr.Error(), "live daemon") {
		t.Errorf("err = %v", berr)
	}
}

func TestListenTCPGating(t *testing.T) {
	if _, err := Listen(Endpoint{Kind: KindTCP, Addr: "127.0.0.1:0"}); err == nil {
		t.Fatal("tcp allowed without opt-in")
	}
	if _, err := Listen(Endpoint{Kind: KindTCP, Addr: "0.0.0.0:0", AllowTCP: true}); err == nil {
		t.Fatal("non-loopback host allowed")
	}
	ln, err := Listen(Endpoint{Kind: KindTCP, Addr: "127.0.0.1:0", AllowTCP: true})
	if err != nil {
		t.Fatal(err)
	}
	ln.Close()
}
