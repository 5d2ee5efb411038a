package scheduler

import (
	"sync"
	"time"
)

// TickerScheduler calls registered callbacks from a goroutine per
// registration at a fixed interval
type TickerScheduler struct {
	interval time.Duration
}

// NewTickerScheduler creates a scheduler ticking every interval
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerScheduler{interval: interval}
}

// Interval returns the tick period
func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// Schedule implements ports.Scheduler
func (s *TickerScheduler) Schedule(tick func()) func() {
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Cancellation wins over a tick that became ready concurrently
				select {
				case <-done:
					return
				default:
				}
				tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
