package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/HPNChanel/data-guardian/internal/detect"
	"github.com/HPNChanel/data-guardian/internal/logstream"
	"github.com/HPNChanel/data-guardian/internal/policy"
	"github.com/HPNChanel/data-guardian/internal/transport"
)

// Options configures a Server. Zero limit values select the transport
// defaults; a zero RatePerSec disables rate limiting.
type Options struct {
	Endpoint        transport.Endpoint
	Version         string
	MaxMessageBytes int
	ReadTimeout     time.Duration
	LogQueue        int
	RatePerSec      float64
	RateBurst       int
	PolicyPath      string
	Logger          *slog.Logger
}

// Server accepts connections on one local endpoint and serves the
// protocol until its context is canceled.
type Server struct {
	opts     Options
	log      *slog.Logger
	state    *State
	registry *detect.Registry
	policies *policy.Store
	logs     *logstream.Broadcaster

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

// New builds a server. The broadcaster should be the one the process
// logger publishes to, so subscribers see every daemon log line.
func New(opts Options, logs *logstream.Broadcaster) (*Server, error) {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	srv := &Server{
		opts:     opts,
		log:      opts.Logger.With("component", "daemon"),
		state:    NewState(),
		registry: detect.NewRegistry(),
		policies: policy.NewStore(),
		logs:     logs,
		sessions: make(map[*session]struct{}),
	}
	if opts.PolicyPath != "" {
		doc, err := policy.LoadFile(opts.PolicyPath)
		if err != nil {
			return nil, err
		}
		compiled, err := policy.Compile(doc)
		if err != nil {
			return nil, err
		}
		srv.policies.Swap(compiled)
		srv.log.Info("policy loaded", "name", compiled.Name(), "path", opts.PolicyPath)
	}
	return srv, nil
}

// Serve binds the endpoint and runs the accept loop until ctx is
// canceled. Bind failures are fatal; per-connection failures are not.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := transport.Listen(s.opts.Endpoint)
	if err != nil {
		return err
	}
	s.log.Info("listening", "endpoint", s.opts.Endpoint.String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, raw)
		}()
	}

	s.closeSessions()
	s.wg.Wait()
	s.log.Info("shut down")
	return nil
}

func (s *Server) serveConn(ctx context.Context, raw net.Conn) {
	sess := newSession(s, transport.NewConn(raw, s.opts.MaxMessageBytes, s.opts.ReadTimeout))
	if s.opts.RatePerSec > 0 {
		burst := s.opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		sess.limiter = rate.NewLimiter(rate.Limit(s.opts.RatePerSec), burst)
	}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	sess.run(ctx)

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		sess.conn.Close()
	}
}
