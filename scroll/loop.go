package scroll

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler schedules a callback for the next frame opportunity and
// returns a cancellation for that one registration. The loop built on
// top re-registers itself after every tick.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// TimerScheduler runs callbacks after a fixed interval, standing in for
// a display-refresh callback in headless environments. The zero value
// uses DefaultFrameInterval.
type TimerScheduler struct {
	Interval time.Duration
}

func (s TimerScheduler) Schedule(fn func()) func() {
	d := s.Interval
	if d <= 0 {
		d = DefaultFrameInterval
	}
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Loop repeatedly runs a tick function via a Scheduler: tick, then, if
// still alive, schedule the next tick. Liveness is checked both at tick
// entry and again before rescheduling, so Stop never races a tick into
// leaving a dangling registration.
type Loop struct {
	fn    func()
	sched Scheduler

	mu      sync.Mutex
	stopped bool
	cancel  func()
}

// StartLoop schedules the first tick and returns the running loop.
// One loop per tick function; the ticks themselves never overlap because
// the next one is only scheduled after the current one returns.
func StartLoop(fn func(), sched Scheduler) *Loop {
	l := &Loop{fn: fn, sched: sched}
	l.mu.Lock()
	l.cancel = sched.Schedule(l.tick)
	l.mu.Unlock()
	return l
}

func (l *Loop) tick() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.fn()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.cancel = l.sched.Schedule(l.tick)
}

// Stop ends the loop and cancels any pending registration. Idempotent.
// A tick already executing finishes, but will not reschedule.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	if l.cancel != nil {
		l.cancel()
	}
}

// ManualScheduler queues callbacks and runs them only when stepped.
// Deterministic stand-in for a frame scheduler in tests and simulations.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []*manualEntry
}

type manualEntry struct {
	fn        func()
	cancelled bool
}

func (s *ManualScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &manualEntry{fn: fn}
	s.queue = append(s.queue, e)
	return func() {
		s.mu.Lock()
		e.cancelled = true
		s.mu.Unlock()
	}
}

// Step runs the oldest pending callback, skipping cancelled ones.
// Reports whether a callback ran.
func (s *ManualScheduler) Step() bool {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return false
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		cancelled := e.cancelled
		s.mu.Unlock()

		if cancelled {
			continue
		}
		e.fn()
		return true
	}
}

// Pending counts queued registrations, cancelled ones included.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
