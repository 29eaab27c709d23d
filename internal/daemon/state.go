package daemon

import (
	"sync/atomic"
	"time"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// State holds the process-wide counters every connection task shares.
// All mutation is atomic; there are no lost updates under concurrent
// connections.
type State struct {
	start       time.Time
	requests    atomic.Uint64
	connections atomic.Int64
}

func NewState() *State {
	return &State{start: time.Now()}
}

// CountRequest records one dispatched request, success or error alike.
func (s *State) CountRequest() { s.requests.Add(1) }

func (s *State) ConnOpened() { s.connections.Add(1) }
func (s *State) ConnClosed() { s.connections.Add(-1) }

// Snapshot captures the counters at the instant of the call.
func (s *State) Snapshot(subscribers int) types.Status {
	return types.Status{
		OK:             true,
		Uptime:         time.Since(s.start).Seconds(),
		Requests:       s.requests.Load(),
		Connections:    s.connections.Load(),
		LogSubscribers: subscribers,
	}
}
