package resilience

import (
	"sync"
	"time"
)

// ReconnectPolicy holds configuration for reconnection scheduling. The delay
// is fixed rather than exponential: the client talks to exactly one service
// and a short constant wait recovers from transient drops without the user
// staring at a dead connection for half a minute.
type ReconnectPolicy struct {
	Delay      time.Duration // Wait before each reconnect attempt
	MaxRetries int           // 0 means retry indefinitely
}

// DefaultReconnectPolicy returns the default reconnection policy
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Delay:      3 * time.Second,
		MaxRetries: 0,
	}
}

// Exhausted reports whether the policy allows another attempt
func (p ReconnectPolicy) Exhausted(attempts int) bool {
	return p.MaxRetries > 0 && attempts >= p.MaxRetries
}

// Scheduler runs at most one pending reconnect callback at a time. Scheduling
// while a timer is pending replaces it; the invariant is that no two reconnect
// timers are ever live together.
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewScheduler creates a reconnect scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule arranges for fn to run after delay, cancelling any pending
// callback first. Returns false if the scheduler has been stopped.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	return true
}

// Cancel stops any pending callback without stopping the scheduler
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a callback is scheduled
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop cancels any pending callback and rejects future scheduling
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
