package policy

import "sync/atomic"

// Store holds the daemon's active policy. Swaps are atomic: requests in
// flight keep the policy they started with, later requests see the new
// one.
type Store struct {
	active atomic.Pointer[Compiled]
}

// NewStore returns a store holding the default policy.
func NewStore() *Store {
	s := &Store{}
	c, err := Compile(Default())
	if err != nil {
		panic(err) // the default document is always valid
	}
	s.active.Store(c)
	return s
}

// Active returns the current policy.
func (s *Store) Active() *Compiled {
	return s.active.Load()
}

// Swap installs a new policy and returns the one it replaced.
func (s *Store) Swap(c *Compiled) *Compiled {
	return s.active.Swap(c)
}
