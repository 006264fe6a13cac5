package qewd

import (
	"context"
	"sync"
	"sync/atomic"
)

// State holds the connection flags. Only the lifecycle handlers installed
// by Client.Init write them; everyone else reads through the accessors.
type State struct {
	ready        atomic.Bool
	notReachable atomic.Bool
	logging      atomic.Bool

	readyOnce sync.Once
	readyChan chan struct{}
}

func NewState() *State {
	return &State{
		readyChan: make(chan struct{}),
	}
}

func (s *State) Ready() bool {
	return s.ready.Load()
}

func (s *State) NotReachable() bool {
	return s.notReachable.Load()
}

func (s *State) Logging() bool {
	return s.logging.Load()
}

// WaitReady blocks until the first registration or until ctx is done.
func (s *State) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *State) setReady(ready bool) {
	s.ready.Store(ready)

	if ready {
		s.readyOnce.Do(func() {
			close(s.readyChan)
		})
	}
}

func (s *State) setNotReachable(notReachable bool) {
	s.notReachable.Store(notReachable)
}

func (s *State) setLogging(enabled bool) {
	s.logging.Store(enabled)
}
