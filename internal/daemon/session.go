package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/HPNChanel/data-guardian/internal/logstream"
	"github.com/HPNChanel/data-guardian/internal/transport"
)

// session serves one connection. Requests are read in arrival order but
// each handler runs in its own goroutine, so responses may interleave;
// clients correlate by ID.
type session struct {
	srv     *Server
	conn    *transport.Conn
	limiter *rate.Limiter

	mu  sync.Mutex
	sub *logstream.Subscription

	inflight sync.WaitGroup
}

func newSession(srv *Server, conn *transport.Conn) *session {
	return &session{srv: srv, conn: conn}
}

func (s *session) run(ctx context.Context) {
	s.srv.state.ConnOpened()
	defer s.srv.state.ConnClosed()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		line, err := s.conn.ReadLine()
		switch {
		case err == nil:
			s.dispatchLine(line)
			continue
		case errors.Is(err, transport.ErrTooLarge):
			s.write(errResponse(nullID, &Error{Code: CodeInvalidRequest, Message: "request too large"}))
			continue
		case errors.Is(err, transport.ErrReadTimeout):
			s.write(errResponse(nullID, &Error{Code: CodeReadTimeout, Message: "timed out waiting for a complete request"}))
			continue
		}
		break // disconnect or fatal read error
	}

	// Close the subscription first so a running log pump drains and its
	// goroutine can finish before we wait on it.
	s.closeSubscription()
	s.inflight.Wait()
	s.conn.Close()
}

// dispatchLine parses one envelope and hands it to its handler. The
// request counter ticks once per dispatched request, whether the handler
// succeeds or not.
func (s *session) dispatchLine(line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.write(errResponse(nullID, &Error{Code: CodeParse, Message: "parse error: " + err.Error()}))
		return
	}
	if req.Method == "" {
		if !req.IsNotification() {
			s.write(errResponse(req.ID, &Error{Code: CodeInvalidRequest, Message: "missing method"}))
		}
		return
	}
	s.srv.state.CountRequest()

	if s.limiter != nil && !s.limiter.Allow() {
		if !req.IsNotification() {
			s.write(errResponse(req.ID, &Error{Code: CodeRateLimited, Message: "rate limit exceeded"}))
		}
		return
	}

	h, ok := methods[req.Method]
	if !ok {
		if !req.IsNotification() {
			s.write(errResponse(req.ID, &Error{Code: CodeMethodNotFound, Message: "method not found", Data: req.Method}))
		}
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.invoke(h, &req)
	}()
}

func (s *session) invoke(h handlerFunc, req *Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.srv.log.Error("handler panic", "method", req.Method, "panic", fmt.Sprint(rec))
			if !req.IsNotification() {
				s.write(errResponse(req.ID, errInternal("internal error")))
			}
		}
	}()

	result, herr := h(s, req.Params)
	if req.IsNotification() {
		if at, ok := result.(ackThen); ok && herr == nil {
			at.then()
		}
		return
	}
	if herr != nil {
		s.write(errResponse(req.ID, herr))
		return
	}
	if at, ok := result.(ackThen); ok {
		// The acknowledgement must reach the wire before any follow-on
		// notifications start flowing.
		s.write(okResponse(req.ID, at.result))
		at.then()
		return
	}
	s.write(okResponse(req.ID, result))
}

// ackThen lets a handler emit its response first and only then start a
// side effect, such as the log pump behind a subscription.
type ackThen struct {
	result any
	then   func()
}

func (s *session) write(resp *Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		s.srv.log.Error("marshal response", "error", err)
		raw, _ = json.Marshal(errResponse(resp.ID, errInternal("response serialization failed")))
	}
	if err := s.conn.WriteLine(raw); err != nil {
		s.srv.log.Debug("write response", "error", err)
	}
}

func (s *session) notify(method string, params any) error {
	raw, err := json.Marshal(&Notification{JSONRPC: jsonrpcVersion, Method: method, Params: params})
	if err != nil {
		return err
	}
	return s.conn.WriteLine(raw)
}

// subscribe attaches this connection to the log broadcaster. A second
// call on the same connection is a no-op.
func (s *session) subscribe() (*logstream.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return s.sub, false
	}
	s.sub = s.srv.logs.Subscribe()
	return s.sub, true
}

func (s *session) closeSubscription() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}
