package complication

import (
	"errors"
	"image"
	"time"
)

// ErrActionCanceled is returned by an Action whose target no longer exists.
var ErrActionCanceled = errors.New("complication action canceled")

// Action is fired when the user taps a complication.
type Action interface {
	Send() error
}

// ActionFunc adapts a function to Action.
type ActionFunc func() error

func (f ActionFunc) Send() error { return f() }

// TimeWindow bounds the validity of a payload. A zero Start or End is open.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Data is the latest payload a provider delivered for a slot.
// Only the fields matching Type are meaningful.
type Data struct {
	Type Type

	// TypeRangedValue
	Value float64
	Min   float64
	Max   float64

	// TypeShortText (and optional label for ranged values)
	ShortText  string
	ShortTitle string

	// TypeIcon / TypeSmallImage
	Icon  image.Image
	Image image.Image

	TapAction Action
	Window    *TimeWindow
}

// Empty is what a slot reports before any provider delivered data.
func Empty() Data { return Data{Type: TypeEmpty} }

// Normalize drops fields a sentinel payload must not carry.
func (d Data) Normalize() Data {
	if d.Type.IsSentinel() {
		return Data{Type: d.Type, Window: d.Window}
	}
	return d
}

// IsActive reports whether now falls within the payload's active window.
func (d Data) IsActive(now time.Time) bool {
	if d.Window == nil {
		return true
	}
	return d.Window.Contains(now)
}

// HasContent reports whether the payload is something other than
// NOT_CONFIGURED or EMPTY.
func (d Data) HasContent() bool {
	return d.Type != TypeNotConfigured && d.Type != TypeEmpty
}

// Tappable reports whether a tap at now may hit this payload.
func (d Data) Tappable(now time.Time) bool {
	return d.HasContent() && d.IsActive(now)
}

// Fraction returns the ranged value normalized to [0,1].
// Without a usable range the value is read as a percentage.
func (d Data) Fraction() float64 {
	var f float64
	if d.Max > d.Min {
		f = (d.Value - d.Min) / (d.Max - d.Min)
	} else {
		f = d.Value / 100
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
