// Package client is the Go client for a running dg-core daemon. The
// desktop shell and the bundled CLI both speak to the daemon through it.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/HPNChanel/data-guardian/internal/detect"
	"github.com/HPNChanel/data-guardian/internal/transport"
	"github.com/HPNChanel/data-guardian/internal/types"
)

// RPCError is an error response from the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}

// Client holds one connection to the daemon. Calls are serialized; use
// one Client per concurrent caller.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	sc     *bufio.Scanner
	nextID int
}

// Dial connects to the daemon at the given endpoint.
func Dial(endpoint transport.Endpoint, timeout time.Duration) (*Client, error) {
	conn, err := transport.Dial(endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", endpoint, err)
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64<<10), transport.DefaultMaxMessageBytes+1)
	return &Client{conn: conn, sc: sc}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

type envelope struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (c *Client) read() (*envelope, error) {
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("connection closed by daemon")
	}
	var env envelope
	if err := json.Unmarshal(c.sc.Bytes(), &env); err != nil {
		return nil, fmt.Errorf("malformed reply: %w", err)
	}
	return &env, nil
}

// Call issues one request and decodes its result into out, skipping any
// notifications delivered in between. A nil out discards the result.
func (c *Client) Call(method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req := map[string]any{"jsonrpc": "2.0", "id": c.nextID, "method": method}
	if params != nil {
		req["params"] = params
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(append(raw, '\n')); err != nil {
		return err
	}

	want := fmt.Sprint(c.nextID)
	for {
		env, err := c.read()
		if err != nil {
			return err
		}
		if env.Method != "" || string(env.ID) != want {
			continue
		}
		if env.Error != nil {
			return env.Error
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(env.Result, out)
	}
}

// PingInfo is the daemon's liveness reply.
type PingInfo struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

func (c *Client) Ping() (PingInfo, error) {
	var res PingInfo
	err := c.Call("core.ping", nil, &res)
	return res, err
}

func (c *Client) Status() (types.Status, error) {
	var res types.Status
	err := c.Call("core.get_status", nil, &res)
	return res, err
}

// ScanResult is the daemon's answer to a scan request.
type ScanResult struct {
	Detections []types.Detection `json:"detections"`
	Warnings   []detect.Warning  `json:"warnings"`
}

func scanParams(text, path string, maxResults int) map[string]any {
	params := map[string]any{}
	if path != "" {
		params["path"] = path
	} else {
		params["text"] = text
	}
	if maxResults > 0 {
		params["max_results"] = maxResults
	}
	return params
}

func (c *Client) ScanText(text string, maxResults int) (ScanResult, error) {
	var res ScanResult
	err := c.Call("core.scan_text", scanParams(text, "", maxResults), &res)
	return res, err
}

func (c *Client) ScanPath(path string, maxResults int) (ScanResult, error) {
	var res ScanResult
	err := c.Call("core.scan_path", scanParams("", path, maxResults), &res)
	return res, err
}

// RedactResult carries redacted output with its decisions and diff.
type RedactResult struct {
	Output     string            `json:"output"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Segments   []types.Segment   `json:"segments"`
	Warnings   []detect.Warning  `json:"warnings"`
}

func (c *Client) RedactText(text string) (RedactResult, error) {
	var res RedactResult
	err := c.Call("core.redact_text", map[string]any{"text": text}, &res)
	return res, err
}

// RedactFileResult reports where the redacted copy was written.
type RedactFileResult struct {
	OutputPath string            `json:"output_path"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Warnings   []detect.Warning  `json:"warnings"`
}

func (c *Client) RedactFile(path, outputPath string) (RedactFileResult, error) {
	params := map[string]any{"path": path}
	if outputPath != "" {
		params["output_path"] = outputPath
	}
	var res RedactFileResult
	err := c.Call("core.redact_file", params, &res)
	return res, err
}

// PolicyInfo describes an installed policy.
type PolicyInfo struct {
	OK    bool   `json:"ok"`
	Name  string `json:"name"`
	Rules int    `json:"rules"`
}

func (c *Client) LoadPolicyFile(path string) (PolicyInfo, error) {
	var res PolicyInfo
	err := c.Call("core.load_policy", map[string]any{"path": path}, &res)
	return res, err
}

func (c *Client) LoadPolicyInline(doc any) (PolicyInfo, error) {
	var res PolicyInfo
	err := c.Call("core.load_policy", map[string]any{"policy": doc}, &res)
	return res, err
}

// TestPolicyResult is a policy preview over sample text.
type TestPolicyResult struct {
	Name       string            `json:"name"`
	Output     string            `json:"output"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Warnings   []detect.Warning  `json:"warnings"`
}

func (c *Client) TestPolicyFile(path, text string) (TestPolicyResult, error) {
	var res TestPolicyResult
	err := c.Call("core.test_policy", map[string]any{"path": path, "text": text}, &res)
	return res, err
}

// TailLogs subscribes to the daemon's log stream and invokes fn for every
// event until the connection drops or fn returns false. The Client must
// not be used for other calls afterwards.
func (c *Client) TailLogs(fn func(types.LogEvent) bool) error {
	var ack struct {
		Subscribed bool `json:"subscribed"`
	}
	if err := c.Call("core.tail_logs", nil, &ack); err != nil {
		return err
	}
	if !ack.Subscribed {
		return fmt.Errorf("daemon refused the subscription")
	}
	for {
		env, err := c.read()
		if err != nil {
			return err
		}
		if env.Method != "core.log" {
			continue
		}
		var e types.LogEvent
		if err := json.Unmarshal(env.Params, &e); err != nil {
			continue
		}
		if !fn(e) {
			return nil
		}
	}
}
