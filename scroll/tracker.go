// Package scroll derives signals from a continuously sampled vertical
// scroll offset: whether the page has scrolled past a threshold, whether
// the user is scrolling back up by more than a configured distance, and
// whether the viewport has passed the fold. Derived state can be
// reflected outward as class toggles and is fanned out to observers on
// every changed sample.
package scroll

import "errors"

// Validation errors returned by NewTracker.
var (
	ErrReverseScrollOffset = errors.New("reverseScrollOffset must be greater than 0")
	ErrScrollThreshold     = errors.New("scrollThreshold should never be less than 0")
)

// Viewport exposes the externally driven scroll position being tracked.
// ScrollY is read once per tick; Height is read only when fold
// classification is active.
type Viewport interface {
	ScrollY() float64
	Height() float64
}

// ClassList is the side-effect surface the tracker reflects state onto,
// a stand-in for a document body's class list. Implementations must
// tolerate redundant Add/Remove calls.
type ClassList interface {
	Add(name string)
	Remove(name string)
}

// State is the mutable record owned by a Tracker. Observers only ever
// see value copies of it.
type State struct {
	ScrollY     float64 // current sampled offset
	PrevScrollY float64 // offset at the previous changed sample
	Delta       float64 // accumulated upward distance, in [-ReverseScrollOffset, 0]

	ReverseScrolled bool
	Scrolled        bool
	PastFold        bool
}

// Config holds the per-tracker tuning. A Config is immutable for the
// lifetime of a tracker; changing it means creating a new tracker (see
// Session). Each classifier runs only while its class name is non-empty.
type Config struct {
	ScrollThreshold     float64 // Scrolled fires above this offset (>= 0)
	ReverseScrollOffset float64 // upward distance required for ReverseScrolled (> 0)
	FoldThreshold       float64 // shifts the fold boundary; may be negative

	ScrolledClass      string
	ReverseScrollClass string
	PastFoldClass      string
}

// DefaultConfig returns the standard tuning: both thresholds at 100, the
// fold at exactly the viewport height, all classifiers enabled.
func DefaultConfig() Config {
	return Config{
		ScrollThreshold:     100,
		ReverseScrollOffset: 100,
		FoldThreshold:       0,
		ScrolledClass:       "scrolled",
		ReverseScrollClass:  "reverse-scrolled",
		PastFoldClass:       "past-fold",
	}
}

// Validate checks the range constraints on the thresholds.
func (c Config) Validate() error {
	if c.ReverseScrollOffset <= 0 {
		return ErrReverseScrollOffset
	}
	if c.ScrollThreshold < 0 {
		return ErrScrollThreshold
	}
	return nil
}

// Tracker owns one State and classifies viewport movement tick by tick.
// It is not safe for concurrent use: all ticking, resetting and state
// reads must come from a single goroutine (Session provides the
// serialization when a frame loop is involved).
type Tracker struct {
	cfg       Config
	view      Viewport
	classes   ClassList
	observers *Observers
	state     State
}

// NewTracker validates cfg and creates a tracker over the given viewport.
// classes may be nil when no side effects are wanted; observers may be
// nil when nobody subscribes.
func NewTracker(cfg Config, view Viewport, classes ClassList, observers *Observers) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if classes == nil {
		classes = NopClassList{}
	}
	return &Tracker{
		cfg:       cfg,
		view:      view,
		classes:   classes,
		observers: observers,
	}, nil
}

// Config returns the tracker's immutable configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state
}

// Tick samples the viewport once. If the offset moved since the last
// changed sample it runs the classifiers in fixed order (reverse-scroll,
// scrolled, past-fold), applies class toggles, and notifies observers
// with a snapshot. Ticks where the offset did not move are no-ops.
// Returns whether the offset had changed.
//
// Observer panics are not recovered here; the caller that drives the
// tick owns the propagation boundary.
func (t *Tracker) Tick() bool {
	y := t.view.ScrollY()
	if y == t.state.ScrollY {
		return false
	}
	t.state.PrevScrollY = t.state.ScrollY
	t.state.ScrollY = y

	if t.cfg.ReverseScrollClass != "" {
		t.classifyReverse()
	}
	if t.cfg.ScrolledClass != "" {
		t.state.Scrolled = y > t.cfg.ScrollThreshold
		t.applyClass(t.cfg.ScrolledClass, t.state.Scrolled)
	}
	if t.cfg.PastFoldClass != "" {
		t.state.PastFold = y > t.view.Height()-t.cfg.FoldThreshold
		t.applyClass(t.cfg.PastFoldClass, t.state.PastFold)
	}

	t.observers.notify(t.snapshot())
	return true
}

// classifyReverse advances the saturating upward-distance accumulator.
// Delta never leaves [-ReverseScrollOffset, 0]: upward movement
// accumulates toward the negative cap, downward movement drains it back
// toward zero.
func (t *Tracker) classifyReverse() {
	s := &t.state
	raw := s.ScrollY - s.PrevScrollY
	if raw < 0 {
		s.Delta = max(s.Delta+raw, -t.cfg.ReverseScrollOffset)
	} else {
		s.Delta = min(s.Delta+raw, 0)
	}

	if s.Delta == -t.cfg.ReverseScrollOffset && !s.ReverseScrolled && s.ScrollY > t.cfg.ReverseScrollOffset {
		s.ReverseScrolled = true
		t.classes.Add(t.cfg.ReverseScrollClass)
	}

	// Clears at the top of the page no matter how ReverseScrolled was
	// entered, including a jump straight to offset 0.
	if s.ReverseScrolled && (s.Delta == 0 || s.ScrollY == 0) {
		t.Reset()
	}
}

// Reset clears the reverse-scroll accumulator and flag and removes the
// reverse-scroll class. Scrolled and PastFold are untouched; they are
// recomputed from the offset alone on the next changed tick.
func (t *Tracker) Reset() {
	t.state.Delta = 0
	t.state.ReverseScrolled = false
	if t.cfg.ReverseScrollClass != "" {
		t.classes.Remove(t.cfg.ReverseScrollClass)
	}
}

func (t *Tracker) applyClass(name string, active bool) {
	if active {
		t.classes.Add(name)
	} else {
		t.classes.Remove(name)
	}
}

func (t *Tracker) snapshot() Snapshot {
	return Snapshot{State: t.state, Reset: t.Reset}
}
