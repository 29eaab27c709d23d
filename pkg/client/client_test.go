package client_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/HPNChanel/data-guardian/internal/daemon"
	"github.com/HPNChanel/data-guardian/internal/logstream"
	"github.com/HPNChanel/data-guardian/internal/transport"
	"github.com/HPNChanel/data-guardian/internal/types"
	"github.com/HPNChanel/data-guardian/pkg/client"
)

func startDaemon(t *testing.T) transport.Endpoint {
	t.Helper()
	endpoint := transport.Endpoint{
		Kind: transport.KindUnix,
		Addr: filepath.Join(t.TempDir(), "dg.sock"),
	}
	logs := logstream.New(0)
	srv, err := daemon.New(daemon.Options{
		Endpoint: endpoint,
		Version:  "test",
		Logger:   logstream.NewLogger(io.Discard, slog.LevelDebug, logs),
	}, logs)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := transport.Dial(endpoint, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return endpoint
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientRoundTrip(t *testing.T) {
	endpoint := startDaemon(t)
	c, err := client.Dial(endpoint, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ping, err := c.Ping()
	if err != nil || !ping.OK || ping.Version != "test" {
		t.Fatalf("ping = %+v, %v", ping, err)
	}

	scan, err := c.ScanText("mail a@b.com", 0)
	if err != nil || len(scan.Detections) != 1 || scan.Detections[0].Label != "pii.email" {
		t.Fatalf("scan = %+v, %v", scan, err)
	}

	red, err := c.RedactText("mail a@b.com")
	if err != nil || red.Output != "mail [REDACTED]" {
		t.Fatalf("redact = %+v, %v", red, err)
	}

	info, err := c.LoadPolicyInline(map[string]any{
		"version": 1,
		"name":    "allow-all-mail",
		"rules": []map[string]any{
			{"name": "allow", "label": "pii.email", "action": "ALLOW", "precedence": 1},
		},
	})
	if err != nil || !info.OK || info.Name != "allow-all-mail" {
		t.Fatalf("load = %+v, %v", info, err)
	}

	red, err = c.RedactText("mail a@b.com")
	if err != nil || red.Output != "mail a@b.com" {
		t.Fatalf("redact after allow = %+v, %v", red, err)
	}

	status, err := c.Status()
	if err != nil || !status.OK || status.Connections != 1 {
		t.Fatalf("status = %+v, %v", status, err)
	}
}

func TestClientRPCError(t *testing.T) {
	endpoint := startDaemon(t)
	c, err := client.Dial(endpoint, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	err = c.Call("core.nope", nil, nil)
	rpcErr, ok := err.(*client.RPCError)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d", rpcErr.Code)
	}
}

func TestClientTailLogs(t *testing.T) {
	endpoint := startDaemon(t)
	tailer, err := client.Dial(endpoint, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer tailer.Close()

	got := make(chan types.LogEvent, 1)
	go func() {
		tailer.TailLogs(func(e types.LogEvent) bool {
			if e.Msg == "policy loaded" {
				got <- e
				return false
			}
			return true
		})
	}()

	// Give the subscription a moment to land before triggering an event.
	time.Sleep(50 * time.Millisecond)
	trigger, err := client.Dial(endpoint, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer trigger.Close()
	if _, err := trigger.LoadPolicyInline(map[string]any{"version": 1, "name": "observed"}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-got:
		if e.Component != "daemon" {
			t.Errorf("component = %q", e.Component)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("log event never arrived")
	}
}
