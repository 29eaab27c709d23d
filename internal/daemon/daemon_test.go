package daemon_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HPNChanel/data-guardian/internal/daemon"
	"github.com/HPNChanel/data-guardian/internal/logstream"
	"github.com/HPNChanel/data-guardian/internal/transport"
)

func startDaemon(t *testing.T, opts daemon.Options) transport.Endpoint {
	t.Helper()
	if opts.Endpoint.Addr == "" {
		opts.Endpoint = transport.Endpoint{
			Kind: transport.KindUnix,
			Addr: filepath.Join(t.TempDir(), "dg.sock"),
		}
	}
	logs := logstream.New(opts.LogQueue)
	opts.Logger = logstream.NewLogger(io.Discard, slog.LevelDebug, logs)

	srv, err := daemon.New(opts, logs)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := transport.Dial(opts.Endpoint, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return opts.Endpoint
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type envelope struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	conn   net.Conn
	sc     *bufio.Scanner
	nextID int
}

func dial(t *testing.T, e transport.Endpoint) *client {
	t.Helper()
	conn, err := transport.Dial(e, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	return &client{t: t, conn: conn, sc: sc}
}

func (c *client) send(raw string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(raw + "\n")); err != nil {
		c.t.Fatal(err)
	}
}

// next returns the next envelope of any kind.
func (c *client) next() envelope {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.sc.Scan() {
		c.t.Fatalf("no reply: %v", c.sc.Err())
	}
	var env envelope
	if err := json.Unmarshal(c.sc.Bytes(), &env); err != nil {
		c.t.Fatalf("bad reply %q: %v", c.sc.Bytes(), err)
	}
	return env
}

// call sends a request and waits for its response, skipping notifications.
func (c *client) call(method string, params any) envelope {
	c.t.Helper()
	c.nextID++
	id := c.nextID
	req := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	raw, err := json.Marshal(req)
	if err != nil {
		c.t.Fatal(err)
	}
	c.send(string(raw))
	for {
		env := c.next()
		if env.Method != "" {
			continue
		}
		if string(env.ID) == fmt.Sprint(id) {
			return env
		}
	}
}

func (c *client) mustResult(method string, params, out any) {
	c.t.Helper()
	env := c.call(method, params)
	if env.Error != nil {
		c.t.Fatalf("%s failed: %+v", method, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			c.t.Fatalf("%s result %s: %v", method, env.Result, err)
		}
	}
}

func TestPingScanRedact(t *testing.T) {
	e := startDaemon(t, daemon.Options{Version: "1.2.3"})
	c := dial(t, e)

	var ping struct {
		OK      bool   `json:"ok"`
		Version string `json:"version"`
	}
	c.mustResult("core.ping", nil, &ping)
	if !ping.OK || ping.Version != "1.2.3" {
		t.Errorf("ping = %+v", ping)
	}

	var scan struct {
		Detections []struct {
			Label string `json:"label"`
			Start int    `json:"start"`
			End   int    `json:"end"`
		} `json:"detections"`
	}
	c.mustResult("core.scan_text", map[string]any{"text": "contact a@b.com now"}, &scan)
	if len(scan.Detections) != 1 {
		t.Fatalf("detections = %+v", scan.Detections)
	}
	d := scan.Detections[0]
	if d.Label != "pii.email" || d.Start != 8 || d.End != 15 {
		t.Errorf("detection = %+v", d)
	}

	var red struct {
		Output   string `json:"output"`
		Segments []struct {
			Context string `json:"context"`
			Removed string `json:"removed"`
			Added   string `json:"added"`
		} `json:"segments"`
		Decisions []struct {
			Detector string `json:"detector"`
			Action   string `json:"action"`
		} `json:"decisions"`
	}
	c.mustResult("core.redact_text", map[string]any{"text": "contact a@b.com now"}, &red)
	if red.Output != "contact [REDACTED] now" {
		t.Errorf("output = %q", red.Output)
	}
	if len(red.Segments) != 4 || red.Segments[1].Removed != "a@b.com" || red.Segments[2].Added != "[REDACTED]" {
		t.Errorf("segments = %+v", red.Segments)
	}
	if len(red.Decisions) != 1 || red.Decisions[0].Action != "MASK" {
		t.Errorf("decisions = %+v", red.Decisions)
	}
}

func TestLoadPolicyExclusiveAndApply(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	inline := map[string]any{
		"version": 1,
		"name":    "allow-mail",
		"rules": []map[string]any{
			{"name": "allow-email", "label": "pii.email", "action": "ALLOW", "precedence": 1},
		},
	}

	// Both sources at once is a validation error.
	env := c.call("core.load_policy", map[string]any{"path": "/tmp/p.yml", "policy": inline})
	if env.Error == nil || env.Error.Code != -32602 {
		t.Fatalf("error = %+v", env.Error)
	}

	// The active policy is unchanged: emails still mask.
	var red struct {
		Output string `json:"output"`
	}
	c.mustResult("core.redact_text", map[string]any{"text": "a@b.com"}, &red)
	if red.Output != "[REDACTED]" {
		t.Fatalf("output = %q", red.Output)
	}

	var loaded struct {
		OK    bool   `json:"ok"`
		Name  string `json:"name"`
		Rules int    `json:"rules"`
	}
	c.mustResult("core.load_policy", map[string]any{"policy": inline}, &loaded)
	if !loaded.OK || loaded.Name != "allow-mail" || loaded.Rules != 1 {
		t.Errorf("loaded = %+v", loaded)
	}

	c.mustResult("core.redact_text", map[string]any{"text": "a@b.com"}, &red)
	if red.Output != "a@b.com" {
		t.Errorf("output after allow policy = %q", red.Output)
	}
}

func TestTestPolicyDoesNotInstall(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	preview := map[string]any{
		"text": "a@b.com",
		"policy": map[string]any{
			"version": 1,
			"name":    "preview",
			"rules": []map[string]any{
				{"name": "flag-email", "label": "pii.email", "action": "FLAG", "precedence": 1},
			},
		},
	}
	var res struct {
		Name      string `json:"name"`
		Output    string `json:"output"`
		Decisions []struct {
			Action string `json:"action"`
		} `json:"decisions"`
	}
	c.mustResult("core.test_policy", preview, &res)
	if res.Name != "preview" || res.Output != "a@b.com" {
		t.Errorf("preview = %+v", res)
	}
	if len(res.Decisions) != 1 || res.Decisions[0].Action != "FLAG" {
		t.Errorf("decisions = %+v", res.Decisions)
	}

	// The daemon still runs the default policy.
	var red struct {
		Output string `json:"output"`
	}
	c.mustResult("core.redact_text", map[string]any{"text": "a@b.com"}, &red)
	if red.Output != "[REDACTED]" {
		t.Errorf("active policy changed by test_policy: %q", red.Output)
	}
}

func TestProtocolErrors(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	c.send(`{"jsonrpc":"2.0","id":7,"method":"core.nope"}`)
	env := c.next()
	if env.Error == nil || env.Error.Code != -32601 {
		t.Fatalf("unknown method: %+v", env.Error)
	}
	if string(env.Error.Data) != `"core.nope"` {
		t.Errorf("error data = %s", env.Error.Data)
	}

	c.send(`{"jsonrpc":"2.0","id":8`)
	env = c.next()
	if env.Error == nil || env.Error.Code != -32700 {
		t.Fatalf("parse error: %+v", env.Error)
	}
	if string(env.ID) != "null" {
		t.Errorf("parse error id = %s", env.ID)
	}

	// Connection survives both.
	var ping struct {
		OK bool `json:"ok"`
	}
	c.mustResult("core.ping", nil, &ping)
	if !ping.OK {
		t.Error("ping after errors failed")
	}
}

func TestOversizedRequestKeepsConnection(t *testing.T) {
	e := startDaemon(t, daemon.Options{MaxMessageBytes: 1024})
	c := dial(t, e)

	c.send(`{"padding":"` + strings.Repeat("x", 4096) + `"}`)
	env := c.next()
	if env.Error == nil || env.Error.Code != -32600 {
		t.Fatalf("oversize error = %+v", env.Error)
	}

	var ping struct {
		OK bool `json:"ok"`
	}
	c.mustResult("core.ping", nil, &ping)
	if !ping.OK {
		t.Error("connection unusable after oversized request")
	}
}

func TestGetStatusSnapshot(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	c.mustResult("core.ping", nil, nil)
	c.mustResult("core.ping", nil, nil)

	var status struct {
		OK             bool    `json:"ok"`
		Uptime         float64 `json:"uptime"`
		Requests       uint64  `json:"requests"`
		Connections    int64   `json:"connections"`
		LogSubscribers int     `json:"log_subscribers"`
	}
	c.mustResult("core.get_status", nil, &status)
	if !status.OK || status.Uptime < 0 {
		t.Errorf("status = %+v", status)
	}
	// Two pings plus the status call itself.
	if status.Requests < 3 {
		t.Errorf("requests = %d", status.Requests)
	}
	if status.Connections != 1 {
		t.Errorf("connections = %d", status.Connections)
	}
	if status.LogSubscribers != 0 {
		t.Errorf("subscribers = %d", status.LogSubscribers)
	}
}

func TestTailLogsFanOut(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c1 := dial(t, e)
	c2 := dial(t, e)

	var ack struct {
		Subscribed bool `json:"subscribed"`
	}
	c1.mustResult("core.tail_logs", nil, &ack)
	if !ack.Subscribed {
		t.Fatal("c1 not subscribed")
	}
	c2.mustResult("core.tail_logs", nil, &ack)
	if !ack.Subscribed {
		t.Fatal("c2 not subscribed")
	}

	// load_policy logs at info level, so both subscribers see it.
	trigger := dial(t, e)
	trigger.mustResult("core.load_policy", map[string]any{"policy": map[string]any{
		"version": 1, "name": "observed", "rules": []map[string]any{},
	}}, nil)

	for _, c := range []*client{c1, c2} {
		found := false
		for i := 0; i < 10 && !found; i++ {
			env := c.next()
			if env.Method != "core.log" {
				continue
			}
			var ev struct {
				Msg  string `json:"msg"`
				Name string `json:"name"`
			}
			if err := json.Unmarshal(env.Params, &ev); err != nil {
				t.Fatalf("log params %s: %v", env.Params, err)
			}
			if ev.Msg == "policy loaded" && ev.Name == "observed" {
				found = true
			}
		}
		if !found {
			t.Error("subscriber missed the policy load event")
		}
	}

	var status struct {
		LogSubscribers int `json:"log_subscribers"`
	}
	trigger.mustResult("core.get_status", nil, &status)
	if status.LogSubscribers != 2 {
		t.Errorf("subscribers = %d", status.LogSubscribers)
	}
}

func TestScanPathAndRedactFile(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("mail a@b.com please"), 0o600); err != nil {
		t.Fatal(err)
	}

	var scan struct {
		Detections []struct {
			Label string `json:"label"`
		} `json:"detections"`
	}
	c.mustResult("core.scan_path", map[string]any{"path": src}, &scan)
	if len(scan.Detections) != 1 || scan.Detections[0].Label != "pii.email" {
		t.Fatalf("detections = %+v", scan.Detections)
	}

	var red struct {
		OutputPath string `json:"output_path"`
	}
	c.mustResult("core.redact_file", map[string]any{"path": src}, &red)
	if red.OutputPath != src+".redacted" {
		t.Errorf("output_path = %q", red.OutputPath)
	}
	data, err := os.ReadFile(red.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mail [REDACTED] please" {
		t.Errorf("redacted file = %q", data)
	}
	info, err := os.Stat(red.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}

	env := c.call("core.scan_path", map[string]any{"path": dir + "/../escape.txt"})
	if env.Error == nil || env.Error.Code != -32001 {
		t.Errorf("traversal error = %+v", env.Error)
	}
}

func TestRateLimited(t *testing.T) {
	e := startDaemon(t, daemon.Options{RatePerSec: 0.001, RateBurst: 1})
	c := dial(t, e)

	c.mustResult("core.ping", nil, nil)
	env := c.call("core.ping", nil)
	if env.Error == nil || env.Error.Code != -32029 {
		t.Errorf("rate limit error = %+v", env.Error)
	}
}

func TestNotificationGetsNoResponse(t *testing.T) {
	e := startDaemon(t, daemon.Options{})
	c := dial(t, e)

	c.send(`{"jsonrpc":"2.0","method":"core.ping"}`)
	// The next envelope must answer the follow-up request, not the
	// notification.
	var ping struct {
		OK bool `json:"ok"`
	}
	c.mustResult("core.ping", nil, &ping)
	if !ping.OK {
		t.Error("ping failed")
	}
}
