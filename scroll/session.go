package scroll

import "sync"

// Session binds a tracker to a viewport, class list and scheduler, and
// manages the restart rules: configuration is immutable per tracker, so
// Configure tears the current loop down and starts a fresh tracker,
// while the observer registry lives outside the tracker and survives
// every restart. Session also serializes tracker access, so Reset and
// State may be called from any goroutine while the loop ticks.
type Session struct {
	view      Viewport
	classes   ClassList
	sched     Scheduler
	observers *Observers

	mu      sync.Mutex
	tracker *Tracker
	loop    *Loop
}

// NewSession creates an idle session. Nothing samples until Configure.
func NewSession(view Viewport, classes ClassList, sched Scheduler) *Session {
	return &Session{
		view:      view,
		classes:   classes,
		sched:     sched,
		observers: NewObservers(),
	}
}

// Observers returns the live registry. Mutating it takes effect on the
// next changed tick without restarting the sampling loop.
func (s *Session) Observers() *Observers {
	return s.observers
}

// Configure starts (or restarts) sampling with the given configuration.
// A running loop is stopped first; the session never runs two loops at
// once. Fails without touching the running tracker if cfg is invalid.
func (s *Session) Configure(cfg Config) error {
	tracker, err := NewTracker(cfg, s.view, s.classes, s.observers)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		s.loop.Stop()
	}
	s.tracker = tracker
	s.loop = StartLoop(s.tick, s.sched)
	return nil
}

// tick is the loop body; the session lock keeps it exclusive with Reset,
// State and Configure. Observers therefore run with the lock held: they
// must interact through the Snapshot they receive (which carries its own
// bound Reset), not by calling back into the Session.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return
	}
	s.tracker.Tick()
}

// State returns a copy of the current tracker state. The zero State is
// returned while the session is unconfigured.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return State{}
	}
	return s.tracker.State()
}

// Config returns the active configuration and whether one is set.
func (s *Session) Config() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return Config{}, false
	}
	return s.tracker.Config(), true
}

// Reset clears the reverse-scroll signal on the running tracker. The
// lock is held across the reset so it is exclusive with in-flight ticks.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker != nil {
		s.tracker.Reset()
	}
}

// Close stops the loop and discards the tracker. The observer registry
// is kept, so a later Configure resumes dispatch to the same observers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		s.loop.Stop()
		s.loop = nil
	}
	s.tracker = nil
}
