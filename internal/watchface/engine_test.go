package watchface

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/render/layout"
	"github.com/teradata/watchface/internal/state"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// pending returns deadlines of timers that have not fired or been stopped.
func (c *fakeClock) pending() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Time
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.at)
		}
	}
	return out
}

type recordingSink struct {
	frames [][]render.Command
	size   image.Point
	err    error
}

func (s *recordingSink) Resize(w, h int) { s.size = image.Pt(w, h) }

func (s *recordingSink) Draw(cmds []render.Command) error {
	s.frames = append(s.frames, cmds)
	return s.err
}

func (s *recordingSink) last() []render.Command {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

type permissionRecorder struct {
	slots []int
	err   error
}

func (p *permissionRecorder) RequestPermission(slotID int) error {
	p.slots = append(p.slots, slotID)
	return p.err
}

type logEntry struct {
	level, component, msg string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) Infof(component, format string, args ...interface{}) {
	l.add("INFO", component, format, args...)
}

func (l *recordingLogger) Errorf(component, format string, args ...interface{}) {
	l.add("ERROR", component, format, args...)
}

func (l *recordingLogger) add(level, component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, component, fmt.Sprintf(format, args...)})
}

func (l *recordingLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == "ERROR" {
			out = append(out, e.msg)
		}
	}
	return out
}

type fixedMeasurer struct{}

func (fixedMeasurer) TextBounds(font layout.Font, size float64, text string) image.Rectangle {
	return image.Rect(0, -int(size*0.7), int(size*0.6)*len(text), 0)
}

type harness struct {
	loop        *Loop
	clock       *fakeClock
	store       *prefs.MemoryStore
	sink        *recordingSink
	permissions *permissionRecorder
	logger      *recordingLogger
	engine      *Engine
}

// 10:42:07.250 UTC
var start = time.Date(2024, 3, 5, 10, 42, 7, 250_000_000, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loop:        NewLoop(),
		clock:       newFakeClock(start),
		store:       prefs.NewMemoryStore(),
		sink:        &recordingSink{},
		permissions: &permissionRecorder{},
		logger:      &recordingLogger{},
	}
	h.engine = New(h.loop, h.store, h.sink, fixedMeasurer{}, h.logger, Options{
		Zone:        func() *time.Location { return time.UTC },
		Clock:       h.clock,
		Rand:        rand.New(rand.NewSource(1)),
		Permissions: h.permissions,
	})
	h.engine.OnSurfaceChanged(390, 390, true)
	h.run()
	return h
}

func (h *harness) run() { h.loop.RunPending() }

func (h *harness) activate() {
	h.engine.OnVisibilityChanged(true)
	h.run()
}

func (h *harness) tapCenterOf(slotID int) {
	r := h.engine.cache.Bounds(slotID)
	c := image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	h.engine.OnTapCommand(TapTap, c.X, c.Y, h.clock.Now())
	h.run()
}

func TestActivationLoadsDefaultsAndPaints(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, state.INACTIVE, h.engine.Status().Mode)
	assert.Empty(t, h.sink.frames, "no frames while inactive")
	assert.Equal(t, image.Pt(390, 390), h.sink.size)

	h.activate()
	status := h.engine.Status()
	assert.Equal(t, state.ACTIVE_INTERACTIVE, status.Mode)
	assert.Equal(t, state.Defaults(), status.Display)
	assert.Len(t, h.sink.frames, 1)
	assert.Equal(t, int64(1), status.Frames)
	assert.Equal(t, "UTC", status.Location)
}

func TestActivationReloadsPreferences(t *testing.T) {
	h := newHarness(t)
	h.activate()
	assert.False(t, h.engine.Status().Display.ShowSeconds)

	h.engine.OnVisibilityChanged(false)
	h.run()
	h.store.SetBool(state.KeyShowSeconds, true)
	h.store.SetBool(state.KeyMilitaryTime, false)
	require.NoError(t, h.store.Commit())

	h.activate()
	display := h.engine.Status().Display
	assert.True(t, display.ShowSeconds)
	assert.False(t, display.MilitaryTime)
}

func TestSettingsChangedWhileShown(t *testing.T) {
	h := newHarness(t)
	h.store.SetBool(state.KeyShowSeconds, true)
	require.NoError(t, h.store.Commit())
	h.engine.OnSettingsChanged()
	h.run()
	assert.False(t, h.engine.Status().Display.ShowSeconds, "hidden face waits for activation")

	h.activate()
	assert.True(t, h.engine.Status().Display.ShowSeconds)
	assert.Equal(t, []time.Time{start.Truncate(time.Second).Add(time.Second)}, h.clock.pending())

	h.store.SetBool(state.KeyShowSeconds, false)
	require.NoError(t, h.store.Commit())
	h.engine.OnSettingsChanged()
	h.run()
	assert.False(t, h.engine.Status().Display.ShowSeconds)
	assert.Equal(t, []time.Time{start.Truncate(time.Minute).Add(time.Minute)}, h.clock.pending())
}

func TestTickAlignsToMinute(t *testing.T) {
	h := newHarness(t)
	h.activate()

	next := start.Truncate(time.Minute).Add(time.Minute)
	assert.Equal(t, []time.Time{next}, h.clock.pending())
	assert.Equal(t, next, h.engine.Status().NextTick)

	h.clock.Advance(next.Sub(start))
	h.run()
	assert.Len(t, h.sink.frames, 2)
	assert.Equal(t, []time.Time{next.Add(time.Minute)}, h.clock.pending())
}

func TestTickAlignsToSecondWhenShowingSeconds(t *testing.T) {
	h := newHarness(t)
	h.store.SetBool(state.KeyShowSeconds, true)
	require.NoError(t, h.store.Commit())
	h.activate()

	assert.Equal(t, []time.Time{start.Truncate(time.Second).Add(time.Second)}, h.clock.pending())
	h.clock.Advance(750 * time.Millisecond)
	h.run()
	assert.Len(t, h.sink.frames, 2)
}

func TestAmbientStopsSelfScheduling(t *testing.T) {
	h := newHarness(t)
	h.activate()
	require.Len(t, h.clock.pending(), 1)

	h.engine.OnAmbientModeChanged(true)
	h.run()
	assert.Equal(t, state.ACTIVE_AMBIENT, h.engine.Status().Mode)
	assert.Empty(t, h.clock.pending())

	frames := len(h.sink.frames)
	h.clock.Advance(10 * time.Minute)
	h.run()
	assert.Len(t, h.sink.frames, frames, "no repaint without a system tick")

	h.engine.OnTimeTick()
	h.run()
	assert.Len(t, h.sink.frames, frames+1)

	h.engine.OnAmbientModeChanged(false)
	h.run()
	assert.Len(t, h.clock.pending(), 1)
}

// step runs exactly one queued loop function.
func (h *harness) step() {
	h.loop.mu.Lock()
	fn := h.loop.queue[0]
	h.loop.queue = h.loop.queue[1:]
	h.loop.mu.Unlock()
	fn()
}

func TestAmbientEntryResetsDrift(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.engine.OnAmbientModeChanged(true)
	h.run()

	for i := 0; i < 20 && h.engine.drift == (image.Point{}); i++ {
		h.engine.OnTimeTick()
		h.run()
	}
	require.NotEqual(t, image.Point{}, h.engine.drift)

	h.engine.OnAmbientModeChanged(false)
	h.run()
	assert.Equal(t, image.Point{}, h.engine.Status().Drift)

	// Whatever offset was left behind, entry clears it before the first
	// ambient frame picks a new one.
	h.engine.drift = image.Pt(-7, 3)
	h.engine.OnAmbientModeChanged(true)
	h.step()
	assert.Equal(t, image.Point{}, h.engine.drift)
	h.run()
}

func TestDriftStaysWithinAmbientSize(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.engine.OnAmbientModeChanged(true)
	h.run()
	size := h.engine.layout.Geometry().AmbientSize
	require.Positive(t, size.X)
	for i := 0; i < 50; i++ {
		h.engine.OnTimeTick()
		h.run()
		d := h.engine.Status().Drift
		assert.True(t, d.X >= -2*size.X && d.X <= 0, "x=%d", d.X)
		assert.True(t, d.Y >= -size.Y && d.Y <= size.Y, "y=%d", d.Y)
	}
}

func TestDriftDisabledKeepsFaceStill(t *testing.T) {
	h := newHarness(t)
	h.store.SetBool(state.KeyAmbientDrift, false)
	require.NoError(t, h.store.Commit())
	h.activate()
	h.engine.OnAmbientModeChanged(true)
	h.run()
	for i := 0; i < 5; i++ {
		h.engine.OnTimeTick()
		h.run()
		assert.Equal(t, image.Point{}, h.engine.Status().Drift)
	}
}

func TestHidingCancelsTimerAndStaleCallbackIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.activate()
	require.Len(t, h.clock.pending(), 1)
	stale := h.clock.timers[0]

	h.engine.OnVisibilityChanged(false)
	h.run()
	assert.Equal(t, state.INACTIVE, h.engine.Status().Mode)
	assert.Empty(t, h.clock.pending())

	// Even if the timer raced its cancellation, the callback is a no-op.
	frames := len(h.sink.frames)
	stale.fn()
	h.run()
	assert.Len(t, h.sink.frames, frames)
	assert.Empty(t, h.clock.pending())
}

func TestDestroyIgnoresLaterEvents(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.engine.Destroy()
	h.run()
	assert.Empty(t, h.clock.pending())

	frames := len(h.sink.frames)
	h.engine.OnVisibilityChanged(true)
	h.engine.OnTimeTick()
	h.run()
	assert.Len(t, h.sink.frames, frames)
	assert.Equal(t, state.INACTIVE, h.engine.Status().Mode)
}

func TestNoPermissionTapStartsPermissionFlow(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.engine.OnComplicationDataUpdate(complication.UpperID, complication.Data{Type: complication.TypeNoPermission})
	h.run()

	frames := len(h.sink.frames)
	h.tapCenterOf(complication.UpperID)
	assert.Equal(t, []int{complication.UpperID}, h.permissions.slots)
	assert.Len(t, h.sink.frames, frames+1, "tap repaints")
}

func TestPermissionFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.permissions.err = errors.New("denied")
	h.activate()
	h.engine.OnComplicationDataUpdate(complication.UpperID, complication.Data{Type: complication.TypeNoPermission})
	h.run()
	h.tapCenterOf(complication.UpperID)
	assert.Len(t, h.logger.errors(), 1)
	assert.Equal(t, state.ACTIVE_INTERACTIVE, h.engine.Status().Mode)
}

func TestTapFiresActionAndSwallowsFailure(t *testing.T) {
	h := newHarness(t)
	h.activate()

	var sent int
	h.engine.OnComplicationDataUpdate(complication.LowerID, complication.Data{
		Type:      complication.TypeShortText,
		ShortText: "3",
		TapAction: complication.ActionFunc(func() error { sent++; return nil }),
	})
	h.engine.OnComplicationDataUpdate(complication.UpperID, complication.Data{
		Type:      complication.TypeShortText,
		ShortText: "x",
		TapAction: complication.ActionFunc(func() error { return complication.ErrActionCanceled }),
	})
	h.run()

	h.tapCenterOf(complication.LowerID)
	assert.Equal(t, 1, sent)

	frames := len(h.sink.frames)
	h.tapCenterOf(complication.UpperID)
	assert.Len(t, h.sink.frames, frames+1)
	assert.Empty(t, h.permissions.slots)
	assert.Empty(t, h.logger.errors(), "canceled actions are not errors")
}

func TestTapOutsideStillRepaints(t *testing.T) {
	h := newHarness(t)
	h.activate()
	frames := len(h.sink.frames)
	h.engine.OnTapCommand(TapTap, 389, 1, h.clock.Now())
	h.run()
	assert.Len(t, h.sink.frames, frames+1)

	h.engine.OnTapCommand(TapTouch, 10, 10, h.clock.Now())
	h.run()
	assert.Len(t, h.sink.frames, frames+1, "touch down is ignored")
}

func TestOutOfOrderDeliveriesLastAppliedWins(t *testing.T) {
	h := newHarness(t)
	h.activate()
	newer := complication.Data{Type: complication.TypeShortText, ShortText: "new"}
	older := complication.Data{Type: complication.TypeShortText, ShortText: "old"}
	h.engine.OnComplicationDataUpdate(complication.UpperID, newer)
	h.engine.OnComplicationDataUpdate(complication.UpperID, older)
	h.run()
	assert.Equal(t, "old", h.engine.Status().Complications[complication.UpperID].Text)
}

func TestUnknownSlotIsLoggedAndIgnored(t *testing.T) {
	h := newHarness(t)
	h.activate()
	frames := len(h.sink.frames)
	h.engine.OnComplicationDataUpdate(42, complication.Data{Type: complication.TypeShortText})
	h.run()
	assert.Len(t, h.sink.frames, frames)
	assert.Len(t, h.logger.errors(), 1)
}

func TestUnreadCountOnlyWhileBadgeEnabled(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.engine.OnUnreadCountChanged(4)
	h.run()
	assert.Equal(t, 4, h.engine.Status().UnreadCount)

	h.engine.OnVisibilityChanged(false)
	h.store.SetBool(state.KeyShowNotifications, false)
	require.NoError(t, h.store.Commit())
	h.activate()
	h.engine.OnUnreadCountChanged(9)
	h.run()
	assert.Equal(t, 0, h.engine.Status().UnreadCount)
}

func TestDrawFailureDoesNotStopTheLoop(t *testing.T) {
	h := newHarness(t)
	h.sink.err = errors.New("display gone")
	h.activate()
	h.clock.Advance(time.Minute)
	h.run()
	assert.Len(t, h.sink.frames, 2)
	assert.Len(t, h.logger.errors(), 2)
	assert.Len(t, h.clock.pending(), 1)
}

func TestInvalidateCoalesces(t *testing.T) {
	h := newHarness(t)
	h.activate()
	frames := len(h.sink.frames)
	h.engine.OnUnreadCountChanged(1)
	h.engine.OnInterruptionFilterChanged(true)
	h.engine.OnPropertiesChanged(true, false)
	h.run()
	assert.Len(t, h.sink.frames, frames+1)
	status := h.engine.Status()
	assert.True(t, status.Muted)
	assert.True(t, status.LowBit)
}

func TestTimeZoneChange(t *testing.T) {
	h := newHarness(t)
	h.activate()
	tokyo := time.FixedZone("JST", 9*60*60)
	h.engine.OnTimeZoneChanged(tokyo)
	h.run()
	assert.Equal(t, "JST", h.engine.Status().Location)

	var hours string
	for _, c := range h.sink.last() {
		if c.Kind == render.KindText {
			hours = c.Text
			break
		}
	}
	assert.Equal(t, "19", hours)

	// Activation re-reads the system zone.
	h.engine.OnVisibilityChanged(false)
	h.activate()
	assert.Equal(t, "UTC", h.engine.Status().Location)
}

func TestOutlinedShapesRasterize(t *testing.T) {
	logger := &recordingLogger{}
	mem := render.NewMemoryPresenter()
	renderer := render.NewRenderer(mem, logger)
	loop := NewLoop()
	clock := newFakeClock(start)
	engine := New(loop, prefs.NewMemoryStore(), renderer, renderer.Fonts(), logger, Options{
		Zone:  func() *time.Location { return time.UTC },
		Clock: clock,
		Rand:  rand.New(rand.NewSource(1)),
	})
	engine.OnSurfaceChanged(320, 320, true)
	engine.OnVisibilityChanged(true)
	loop.RunPending()
	require.Equal(t, int64(1), mem.Frames())

	require.NotPanics(t, func() {
		engine.OnUnreadCountChanged(1)
		loop.RunPending()
		engine.OnComplicationDataUpdate(complication.UpperID, complication.Data{Type: complication.TypeRangedValue, Value: 40, Max: 100})
		engine.OnComplicationDataUpdate(complication.LowerID, complication.Data{Type: complication.TypeRangedValue, Value: 100, Max: 100})
		loop.RunPending()
		engine.OnAmbientModeChanged(true)
		loop.RunPending()
	})
	assert.GreaterOrEqual(t, mem.Frames(), int64(4))
	assert.Empty(t, logger.errors())
}

func TestTapOnBatteryBarIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.activate()
	fired := false
	h.engine.OnComplicationDataUpdate(complication.BatteryID, complication.Data{
		Type:      complication.TypeRangedValue,
		Value:     80,
		Max:       100,
		TapAction: complication.ActionFunc(func() error { fired = true; return nil }),
	})
	h.run()

	y := h.engine.layout.Geometry().Midline
	h.engine.OnTapCommand(TapTap, 300, y, h.clock.Now())
	h.run()
	assert.False(t, fired)
	assert.Empty(t, h.permissions.slots)
}
