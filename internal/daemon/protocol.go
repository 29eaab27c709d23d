// Package daemon owns the request dispatcher: it parses protocol
// envelopes off framed transport streams, routes them to method handlers,
// and tracks process-wide counters.
package daemon

import "encoding/json"

// JSON-RPC error codes. The -32000 range carries daemon-specific
// conditions.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeReadTimeout    = -32000
	CodePathRejected   = -32001
	CodeRateLimited    = -32029
)

const jsonrpcVersion = "2.0"

// Request is an inbound envelope. A nil or null ID marks a notification,
// which never receives a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no ID.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response answers exactly one request, correlated by ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a server-initiated envelope, used for log streaming.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Error is the error member of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func errInvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

func errInternal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// nullID is the response ID when the request ID could not be recovered.
var nullID = json.RawMessage("null")

func okResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func errResponse(id json.RawMessage, e *Error) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Error: e}
}
