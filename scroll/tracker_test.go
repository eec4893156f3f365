package scroll

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeViewport is a settable Viewport for driving ticks by hand.
type fakeViewport struct {
	y      float64
	height float64
}

func (v *fakeViewport) ScrollY() float64 { return v.y }
func (v *fakeViewport) Height() float64  { return v.height }

func newTestTracker(t *testing.T, cfg Config) (*Tracker, *fakeViewport, *RecordingClassList) {
	t.Helper()
	view := &fakeViewport{height: 800}
	classes := NewRecordingClassList()
	tracker, err := NewTracker(cfg, view, classes, nil)
	require.NoError(t, err)
	return tracker, view, classes
}

// tickAt moves the viewport to y and runs one tick.
func tickAt(tracker *Tracker, view *fakeViewport, y float64) bool {
	view.y = y
	return tracker.Tick()
}

func TestNewTracker_RejectsNonPositiveReverseOffset(t *testing.T) {
	for _, offset := range []float64{0, -50} {
		cfg := DefaultConfig()
		cfg.ReverseScrollOffset = offset

		_, err := NewTracker(cfg, &fakeViewport{}, nil, nil)

		assert.ErrorIs(t, err, ErrReverseScrollOffset, "offset %v must be rejected", offset)
	}
}

func TestNewTracker_RejectsNegativeScrollThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScrollThreshold = -1

	_, err := NewTracker(cfg, &fakeViewport{}, nil, nil)

	assert.ErrorIs(t, err, ErrScrollThreshold)
}

func TestNewTracker_FoldThresholdUnconstrained(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FoldThreshold = -250

	_, err := NewTracker(cfg, &fakeViewport{}, nil, nil)

	assert.NoError(t, err)
}

func TestTracker_ScrolledFollowsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScrollThreshold = 100
	tracker, view, _ := newTestTracker(t, cfg)

	// 0 → 50 → 150 → 80: scrolled goes false, false, true, false.
	// The first tick is a no-op because the offset starts at 0.
	assert.False(t, tickAt(tracker, view, 0))
	assert.False(t, tracker.State().Scrolled)

	assert.True(t, tickAt(tracker, view, 50))
	assert.False(t, tracker.State().Scrolled)

	assert.True(t, tickAt(tracker, view, 150))
	assert.True(t, tracker.State().Scrolled)

	assert.True(t, tickAt(tracker, view, 80))
	assert.False(t, tracker.State().Scrolled, "no hysteresis: dropping below the threshold clears the signal")
}

func TestTracker_ScrolledIsExclusiveAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScrollThreshold = 100
	tracker, view, _ := newTestTracker(t, cfg)

	tickAt(tracker, view, 100)
	assert.False(t, tracker.State().Scrolled, "exactly at the threshold is not past it")

	tickAt(tracker, view, 101)
	assert.True(t, tracker.State().Scrolled)
}

func TestTracker_ReverseScrollSaturates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReverseScrollOffset = 100
	tracker, view, _ := newTestTracker(t, cfg)

	tickAt(tracker, view, 300)
	assert.Equal(t, 0.0, tracker.State().Delta, "downward movement never builds delta")

	// Five upward steps of 20: delta walks -20 per tick to the cap.
	wantDelta := []float64{-20, -40, -60, -80, -100}
	for i, y := range []float64{280, 260, 240, 220, 200} {
		tickAt(tracker, view, y)
		assert.Equal(t, wantDelta[i], tracker.State().Delta, "tick %d", i)
	}

	// Saturated at -100 with scrollY(200) > offset(100): signal fires.
	assert.True(t, tracker.State().ReverseScrolled)
}

func TestTracker_ScrollDownDrainsDelta(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReverseScrollOffset = 100
	tracker, view, _ := newTestTracker(t, cfg)

	for _, y := range []float64{300, 280, 260, 240, 220, 200} {
		tickAt(tracker, view, y)
	}
	require.True(t, tracker.State().ReverseScrolled)

	// Scroll back down by 20: delta drains toward zero but the signal
	// holds until delta reaches exactly 0 (or the page top).
	tickAt(tracker, view, 220)
	assert.Equal(t, -80.0, tracker.State().Delta)
	assert.True(t, tracker.State().ReverseScrolled)

	// Draining all the way to 0 resets.
	tickAt(tracker, view, 320)
	assert.Equal(t, 0.0, tracker.State().Delta)
	assert.False(t, tracker.State().ReverseScrolled)
}

func TestTracker_ResetAtPageTop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReverseScrollOffset = 100
	tracker, view, classes := newTestTracker(t, cfg)

	for _, y := range []float64{300, 280, 260, 240, 220, 200} {
		tickAt(tracker, view, y)
	}
	require.True(t, tracker.State().ReverseScrolled)
	require.True(t, classes.Has(cfg.ReverseScrollClass))

	// Jump straight to the top: reset fires regardless of delta.
	tickAt(tracker, view, 0)
	assert.Equal(t, 0.0, tracker.State().Delta)
	assert.False(t, tracker.State().ReverseScrolled)
	assert.False(t, classes.Has(cfg.ReverseScrollClass))
}

func TestTracker_ReverseNeedsDepthBeyondOffset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReverseScrollOffset = 100
	tracker, view, _ := newTestTracker(t, cfg)

	// Saturate the accumulator while still within the offset's depth:
	// 150 → 90 → 40 accumulates -110, clamped to -100, but scrollY=40
	// is not greater than 100 so the signal must not fire.
	tickAt(tracker, view, 150)
	tickAt(tracker, view, 90)
	tickAt(tracker, view, 40)

	assert.Equal(t, -100.0, tracker.State().Delta)
	assert.False(t, tracker.State().ReverseScrolled)
}

func TestTracker_DeltaStaysInRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReverseScrollOffset = 100
	tracker, view, _ := newTestTracker(t, cfg)

	// Random walk over 2000 ticks; the accumulator must never leave
	// [-offset, 0] no matter the sequence.
	rng := rand.New(rand.NewSource(1))
	y := 500.0
	for i := 0; i < 2000; i++ {
		y = max(0, y+float64(rng.Intn(161)-80))
		tickAt(tracker, view, y)

		delta := tracker.State().Delta
		assert.GreaterOrEqual(t, delta, -100.0, "tick %d", i)
		assert.LessOrEqual(t, delta, 0.0, "tick %d", i)
	}
}

func TestTracker_UnchangedOffsetIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	view := &fakeViewport{height: 800}

	notified := 0
	observers := NewObservers(func(Snapshot) { notified++ })
	tracker, err := NewTracker(cfg, view, nil, observers)
	require.NoError(t, err)

	view.y = 150
	assert.True(t, tracker.Tick())
	assert.False(t, tracker.Tick())
	assert.False(t, tracker.Tick())

	assert.Equal(t, 1, notified, "observers fire only on changed ticks")
	assert.Equal(t, 150.0, tracker.State().ScrollY)
}

func TestTracker_PastFoldBoundary(t *testing.T) {
	cfg := DefaultConfig()
	tracker, view, classes := newTestTracker(t, cfg)
	view.height = 800

	tickAt(tracker, view, 800)
	assert.False(t, tracker.State().PastFold, "exactly at the fold is not past it")

	tickAt(tracker, view, 801)
	assert.True(t, tracker.State().PastFold)
	assert.True(t, classes.Has(cfg.PastFoldClass))

	tickAt(tracker, view, 400)
	assert.False(t, tracker.State().PastFold)
	assert.False(t, classes.Has(cfg.PastFoldClass))
}

func TestTracker_FoldThresholdShiftsBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FoldThreshold = 200
	tracker, view, _ := newTestTracker(t, cfg)
	view.height = 800

	// Boundary moves up to 600.
	tickAt(tracker, view, 601)
	assert.True(t, tracker.State().PastFold)

	// A negative threshold pushes the boundary below the viewport.
	cfg.FoldThreshold = -100
	tracker, view, _ = newTestTracker(t, cfg)
	view.height = 800

	tickAt(tracker, view, 850)
	assert.False(t, tracker.State().PastFold)
	tickAt(tracker, view, 901)
	assert.True(t, tracker.State().PastFold)
}

func TestTracker_ScrolledClassTogglesEveryChangedTick(t *testing.T) {
	cfg := Config{
		ScrollThreshold:     100,
		ReverseScrollOffset: 100,
		ScrolledClass:       "scrolled",
	}
	tracker, view, classes := newTestTracker(t, cfg)

	tickAt(tracker, view, 150)
	tickAt(tracker, view, 160)
	tickAt(tracker, view, 50)

	// The toggle is idempotent and unconditional: the class is re-added
	// on every changed tick above the threshold.
	assert.Equal(t, []string{"+scrolled", "+scrolled", "-scrolled"}, classes.Log())
}

func TestTracker_DisabledClassifiersStayInert(t *testing.T) {
	cfg := Config{
		ScrollThreshold:     100,
		ReverseScrollOffset: 100,
		// No class names: every classifier is off.
	}
	tracker, view, classes := newTestTracker(t, cfg)

	for _, y := range []float64{300, 200, 100, 350} {
		tickAt(tracker, view, y)
	}

	state := tracker.State()
	assert.Equal(t, 0.0, state.Delta, "reverse accumulator must not run without a class name")
	assert.False(t, state.ReverseScrolled)
	assert.False(t, state.Scrolled)
	assert.False(t, state.PastFold)
	assert.Empty(t, classes.Log())
	assert.Equal(t, 350.0, state.ScrollY, "offset bookkeeping still advances")
}

func TestTracker_ResetKeepsThresholdSignals(t *testing.T) {
	cfg := DefaultConfig()
	tracker, view, _ := newTestTracker(t, cfg)

	for _, y := range []float64{900, 800, 700, 600, 500, 400} {
		tickAt(tracker, view, y)
	}
	require.True(t, tracker.State().ReverseScrolled)
	require.True(t, tracker.State().Scrolled)

	tracker.Reset()

	state := tracker.State()
	assert.False(t, state.ReverseScrolled)
	assert.Equal(t, 0.0, state.Delta)
	assert.True(t, state.Scrolled, "reset only touches the reverse-scroll signal")
}

func TestTracker_ObserversSeeSnapshotsInOrder(t *testing.T) {
	cfg := DefaultConfig()
	view := &fakeViewport{height: 800}

	var order []string
	var last Snapshot
	observers := NewObservers(
		func(s Snapshot) { order = append(order, "first") },
		func(s Snapshot) { order = append(order, "second"); last = s },
	)
	tracker, err := NewTracker(cfg, view, nil, observers)
	require.NoError(t, err)

	view.y = 250
	tracker.Tick()

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 250.0, last.ScrollY)
	assert.Equal(t, 0.0, last.PrevScrollY)
	assert.True(t, last.Scrolled)
	assert.NotNil(t, last.Reset)
}

func TestTracker_SnapshotResetClearsReverseSignal(t *testing.T) {
	cfg := DefaultConfig()
	view := &fakeViewport{height: 800}

	var last Snapshot
	observers := NewObservers(func(s Snapshot) { last = s })
	tracker, err := NewTracker(cfg, view, NewRecordingClassList(), observers)
	require.NoError(t, err)

	for _, y := range []float64{900, 800, 700, 600, 500, 400} {
		view.y = y
		tracker.Tick()
	}
	require.True(t, last.ReverseScrolled)

	last.Reset()

	assert.False(t, tracker.State().ReverseScrolled)
	assert.Equal(t, 0.0, tracker.State().Delta)
}
