package scheduler

import (
	"sync"
	"time"
)

// ManualScheduler runs registered callbacks only when Tick is called. It
// drives batch simulations and tests deterministically.
type ManualScheduler struct {
	mu            sync.Mutex
	next          uint64
	registrations map[uint64]func()
	order         []uint64
	interval      time.Duration
}

// NewManualScheduler creates an empty manual scheduler
func NewManualScheduler(interval time.Duration) *ManualScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &ManualScheduler{
		registrations: make(map[uint64]func()),
		interval:      interval,
	}
}

// Interval returns the nominal time one Tick represents
func (s *ManualScheduler) Interval() time.Duration {
	return s.interval
}

// Schedule implements ports.Scheduler
func (s *ManualScheduler) Schedule(tick func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.registrations[id] = tick
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.registrations, id)
	}
}

// Tick calls every callback registered at the time of the call, in
// registration order. Callbacks cancelled by an earlier callback in the same
// round are skipped.
func (s *ManualScheduler) Tick() int {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.registrations))
	live := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.registrations[id]; ok {
			ids = append(ids, id)
			live = append(live, id)
		}
	}
	s.order = live
	s.mu.Unlock()

	ran := 0
	for _, id := range ids {
		s.mu.Lock()
		tick, ok := s.registrations[id]
		s.mu.Unlock()
		if !ok {
			continue
		}
		tick()
		ran++
	}
	return ran
}

// Run ticks until no registration is left or limit rounds have run, and
// returns the number of rounds
func (s *ManualScheduler) Run(limit int) int {
	rounds := 0
	for rounds < limit && s.Active() > 0 {
		s.Tick()
		rounds++
	}
	return rounds
}

// Active returns the number of live registrations
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registrations)
}
