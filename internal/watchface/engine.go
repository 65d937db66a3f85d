// Package watchface is the render loop of the face: it owns display state,
// complication data and layout, decides when to repaint, and routes taps.
//
// Engine state is confined to the goroutine running its Loop. The exported
// On* methods may be called from anywhere; they post onto the loop.
package watchface

import (
	"errors"
	"image"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/teradata/watchface/internal/clock"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/render/layout"
	"github.com/teradata/watchface/internal/state"
)

const component = "watchface"

type Logger interface {
	Infof(component, format string, args ...interface{})
	Errorf(component, format string, args ...interface{})
}

// Sink receives finished frames.
type Sink interface {
	Resize(width, height int)
	Draw(cmds []render.Command) error
}

// PermissionRequester starts the flow that grants the face access to a
// provider's data.
type PermissionRequester interface {
	RequestPermission(slotID int) error
}

// TapType distinguishes the phases of a touch.
type TapType int

const (
	TapTouch TapType = iota
	TapTouchCancel
	TapTap
)

// Options configures an engine. Zero values pick defaults.
type Options struct {
	Locale string
	// Zone reports the system time zone; it is re-read on every activation.
	Zone   func() *time.Location

	Palette     *render.Palette
	Layout      *layout.Options
	Directory   *complication.Directory
	Clock       Clock
	Rand        *rand.Rand
	Permissions PermissionRequester
}

type Engine struct {
	loop        *Loop
	clock       Clock
	logger      Logger
	prefs       prefs.Store
	sink        Sink
	permissions PermissionRequester
	zone        func() *time.Location
	status      *state.Store

	layout    *layout.Engine
	cache     *complication.Cache
	formatter *clock.Formatter
	palette   render.Palette
	rng       *rand.Rand

	visible     bool
	ambient     bool
	display     state.DisplayState
	drift       image.Point
	unread      int
	muted       bool
	lowBit      bool
	burnIn      bool
	surface     state.Surface
	destroyed   bool
	drawPending bool

	session  uuid.UUID
	timer    Timer
	nextTick time.Time

	frames    int64
	lastFrame time.Time
}

// New builds an engine that measures text with measurer and draws into sink.
// Display state starts at its defaults until the first activation.
func New(loop *Loop, store prefs.Store, sink Sink, measurer layout.Measurer, logger Logger, opts Options) *Engine {
	if opts.Zone == nil {
		opts.Zone = func() *time.Location { return time.Local }
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	palette := render.DefaultPalette()
	if opts.Palette != nil {
		palette = *opts.Palette
	}
	layoutOpts := layout.DefaultOptions()
	if opts.Layout != nil {
		layoutOpts = *opts.Layout
	}
	if logger == nil {
		logger = nopLogger{}
	}
	cache := complication.NewCache(opts.Directory, logger)
	layoutOpts.Directory = cache.Directory()

	e := &Engine{
		loop:        loop,
		clock:       opts.Clock,
		logger:      logger,
		prefs:       store,
		sink:        sink,
		permissions: opts.Permissions,
		zone:        opts.Zone,
		status:      state.NewStore(),
		layout:      layout.NewEngine(measurer, layoutOpts),
		cache:       cache,
		formatter:   clock.NewFormatter(opts.Locale, opts.Zone()),
		palette:     palette,
		rng:         opts.Rand,
		display:     state.Defaults(),
		session:     uuid.New(),
	}
	e.publish()
	return e
}

type nopLogger struct{}

func (nopLogger) Infof(component, format string, args ...interface{})  {}
func (nopLogger) Errorf(component, format string, args ...interface{}) {}

// Status returns the latest published snapshot. Safe from any goroutine.
func (e *Engine) Status() state.Status { return e.status.Snapshot() }

// Directory is the slot table the engine was built with.
func (e *Engine) Directory() *complication.Directory { return e.cache.Directory() }

func (e *Engine) post(fn func()) {
	e.loop.Post(func() {
		if e.destroyed {
			return
		}
		fn()
		e.publish()
	})
}

func (e *Engine) mode() state.Mode {
	switch {
	case !e.visible:
		return state.INACTIVE
	case e.ambient:
		return state.ACTIVE_AMBIENT
	default:
		return state.ACTIVE_INTERACTIVE
	}
}

// OnSurfaceChanged sets the surface geometry and drops every cached box.
func (e *Engine) OnSurfaceChanged(width, height int, round bool) {
	e.post(func() {
		e.surface = state.Surface{Width: width, Height: height, Round: round}
		g := e.layout.OnGeometryChanged(width, height, round)
		if e.sink != nil {
			e.sink.Resize(width, height)
		}
		e.logger.Infof(component, "surface %dx%d round=%t widget=%d ambient=%v", width, height, round, g.WidgetSize, g.AmbientSize)
		e.invalidate()
	})
}

// OnVisibilityChanged activates or deactivates the face. Activation reloads
// every display flag and the time zone before repainting; deactivation
// cancels pending repaints.
func (e *Engine) OnVisibilityChanged(visible bool) {
	e.post(func() {
		e.visible = visible
		if visible {
			e.reloadSettings()
		}
		e.updateTimer()
	})
}

// OnSettingsChanged rereads the preference store while the face is shown,
// as if it had been hidden and shown again. Hidden faces pick the change up
// on their next activation.
func (e *Engine) OnSettingsChanged() {
	e.post(func() {
		if !e.visible {
			return
		}
		e.reloadSettings()
		e.updateTimer()
	})
}

func (e *Engine) reloadSettings() {
	e.display = state.Reload(e.prefs)
	if !e.display.ShowNotifications {
		e.unread = 0
	}
	e.formatter.SetLocation(e.zone())
	e.layout.InvalidateAll()
	e.invalidate()
}

// OnAmbientModeChanged switches between interactive and ambient rendering.
func (e *Engine) OnAmbientModeChanged(ambient bool) {
	e.post(func() {
		if e.ambient == ambient {
			return
		}
		e.ambient = ambient
		e.drift = image.Point{}
		e.invalidate()
		e.updateTimer()
	})
}

// OnTimeTick is the coarse system tick delivered in ambient mode.
func (e *Engine) OnTimeTick() {
	e.post(e.invalidate)
}

// OnTimeZoneChanged applies a new zone and repaints.
func (e *Engine) OnTimeZoneChanged(location *time.Location) {
	e.post(func() {
		e.formatter.SetLocation(location)
		e.layout.InvalidateAll()
		e.invalidate()
	})
}

// OnPropertiesChanged records the low-bit ambient and burn-in protection
// capabilities of the display.
func (e *Engine) OnPropertiesChanged(lowBitAmbient, burnInProtection bool) {
	e.post(func() {
		e.lowBit = lowBitAmbient
		e.burnIn = burnInProtection
		e.layout.Invalidate(layout.KeyHour)
		e.invalidate()
	})
}

// OnInterruptionFilterChanged dims the face while notifications are muted.
func (e *Engine) OnInterruptionFilterChanged(muted bool) {
	e.post(func() {
		if e.muted == muted {
			return
		}
		e.muted = muted
		e.invalidate()
	})
}

// OnUnreadCountChanged updates the badge. The count is ignored while the
// badge is turned off.
func (e *Engine) OnUnreadCountChanged(count int) {
	e.post(func() {
		if !e.display.ShowNotifications {
			return
		}
		if count < 0 {
			count = 0
		}
		if e.unread == count {
			return
		}
		e.unread = count
		e.invalidate()
	})
}

// OnComplicationDataUpdate stores data for a slot. Deliveries may arrive
// duplicated or out of order; the last one applied wins.
func (e *Engine) OnComplicationDataUpdate(slotID int, data complication.Data) {
	e.post(func() {
		if !e.cache.SetData(slotID, data) {
			return
		}
		e.invalidate()
	})
}

// OnTapCommand routes a completed tap to the complication under it.
// Touch and cancel phases are ignored.
func (e *Engine) OnTapCommand(tap TapType, x, y int, eventTime time.Time) {
	e.post(func() {
		if tap != TapTap {
			return
		}
		e.handleTap(x, y, eventTime)
		e.invalidate()
	})
}

func (e *Engine) handleTap(x, y int, eventTime time.Time) {
	slotID, ok := e.cache.HitTest(x, y, eventTime)
	if !ok {
		return
	}
	data := e.cache.Data(slotID)
	switch {
	case data.Type == complication.TypeNoPermission:
		if e.permissions == nil {
			e.logger.Errorf(component, "slot %d needs permission but no permission flow is available", slotID)
			return
		}
		if err := e.permissions.RequestPermission(slotID); err != nil {
			e.logger.Errorf(component, "permission request for slot %d failed: %v", slotID, err)
		}
	case data.TapAction != nil:
		if err := data.TapAction.Send(); err != nil {
			if errors.Is(err, complication.ErrActionCanceled) {
				e.logger.Infof(component, "tap action for slot %d was canceled", slotID)
				return
			}
			e.logger.Errorf(component, "tap action for slot %d failed: %v", slotID, err)
		}
	default:
		e.logger.Infof(component, "slot %d has no tap action", slotID)
	}
}

// Destroy cancels pending repaints. Events posted afterwards are ignored.
func (e *Engine) Destroy() {
	e.loop.Post(func() {
		e.cancelTimer()
		e.destroyed = true
		e.visible = false
		e.publish()
	})
}

// Invalidate requests a repaint.
func (e *Engine) Invalidate() { e.post(e.invalidate) }

// invalidate coalesces repaint requests into a single draw.
func (e *Engine) invalidate() {
	if e.drawPending {
		return
	}
	e.drawPending = true
	e.loop.Post(func() {
		e.drawPending = false
		if e.destroyed {
			return
		}
		e.draw()
		e.publish()
	})
}

func (e *Engine) shouldTimerRun() bool {
	return e.visible && !e.ambient && !e.destroyed
}

func (e *Engine) cancelTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.session = uuid.New()
	e.nextTick = time.Time{}
}

// updateTimer restarts the interactive tick, or stops it when the face is
// hidden or ambient.
func (e *Engine) updateTimer() {
	e.cancelTimer()
	if e.shouldTimerRun() {
		e.scheduleTick()
	}
}

func (e *Engine) scheduleTick() {
	now := e.clock.Now()
	delay := clock.NextTickDelay(now, e.display.ShowSeconds)
	token := e.session
	e.nextTick = now.Add(delay)
	e.timer = e.clock.AfterFunc(delay, func() {
		e.loop.Post(func() { e.onTimer(token) })
	})
}

func (e *Engine) onTimer(token uuid.UUID) {
	if token != e.session || e.destroyed {
		return
	}
	e.timer = nil
	e.invalidate()
	if e.shouldTimerRun() {
		e.scheduleTick()
	}
	e.publish()
}

func (e *Engine) draw() {
	if !e.visible {
		return
	}
	if e.surface.Width == 0 || e.surface.Height == 0 {
		e.logger.Infof(component, "skipping frame, surface size unknown")
		return
	}
	now := e.clock.Now()
	g := e.layout.Geometry()

	if e.ambient && e.display.AmbientDrift {
		e.drift = Drift(e.rng, g.AmbientSize)
	} else {
		e.drift = image.Point{}
	}

	for _, id := range e.cache.TakeDirty() {
		e.layout.Invalidate(layout.ComplicationKey(id))
	}

	text := e.formatter.Format(now, e.display.MilitaryTime)
	boxes := render.Boxes{
		Hour:   e.layout.BoxFor(layout.KeyHour, text.Hours),
		Minute: e.layout.BoxFor(layout.KeyMinute, text.Minutes),
		Second: e.layout.BoxFor(layout.KeySecond, text.Seconds),
		Date:   e.layout.BoxFor(layout.KeyDate, text.Date),
		Logo:   e.layout.BoxFor(layout.KeyLogo, ""),
		Slots:  map[int]layout.Box{},
	}
	for _, id := range e.cache.Directory().IDs() {
		box := e.layout.BoxFor(layout.ComplicationKey(id), "")
		boxes.Slots[id] = box
		e.cache.SetBounds(id, box.Rect)
	}

	cmds := render.RenderFrame(render.Frame{
		Now:           now,
		Display:       e.display,
		Ambient:       e.ambient,
		Drift:         e.drift,
		Text:          text,
		Geometry:      g,
		Boxes:         boxes,
		Complications: e.cache,
		UnreadCount:   e.unread,
		Muted:         e.muted,
		Palette:       e.palette,
	})
	if e.sink != nil {
		if err := e.sink.Draw(cmds); err != nil {
			e.logger.Errorf(component, "draw failed: %v", err)
		}
	}
	e.frames++
	e.lastFrame = now
}

func (e *Engine) publish() {
	now := e.clock.Now()
	slots := make([]state.SlotStatus, 0, len(e.cache.Directory().IDs()))
	for _, slot := range e.cache.Directory().Slots() {
		data := e.cache.Data(slot.ID)
		slots = append(slots, state.SlotStatus{
			ID:     slot.ID,
			Role:   slot.Role.String(),
			Type:   data.Type.String(),
			Text:   data.ShortText,
			Active: data.HasContent() && data.IsActive(now),
		})
	}
	e.status.Publish(state.Status{
		Mode:          e.mode(),
		Display:       e.display,
		Drift:         e.drift,
		UnreadCount:   e.unread,
		Muted:         e.muted,
		LowBit:        e.lowBit,
		BurnIn:        e.burnIn,
		Frames:        e.frames,
		LastFrame:     e.lastFrame,
		NextTick:      e.nextTick,
		Surface:       e.surface,
		Location:      e.formatter.Location().String(),
		Complications: slots,
	})
}
