// Package input turns Linux evdev events into watch face gestures: taps on
// the touch screen, the power key and the F4 exit key.
package input

import (
	"encoding/binary"
	"time"
)

// Linux input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	keyF4    = 62
	keyPower = 116
	btnTouch = 0x14a

	absX           = 0x00
	absY           = 0x01
	absMTPositionX = 0x35
	absMTPositionY = 0x36
)

// Event is one decoded input_event record.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// ParseEvents decodes consecutive input_event records from buf. tvSize is
// the size of struct timeval on the platform (16 on 64-bit, 8 on 32-bit).
// A trailing partial record is ignored.
func ParseEvents(buf []byte, tvSize int) []Event {
	eventSize := tvSize + 2 + 2 + 4
	var events []Event
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		var sec, usec int64
		if tvSize == 16 {
			sec = int64(binary.LittleEndian.Uint64(rec[0:8]))
			usec = int64(binary.LittleEndian.Uint64(rec[8:16]))
		} else {
			sec = int64(int32(binary.LittleEndian.Uint32(rec[0:4])))
			usec = int64(int32(binary.LittleEndian.Uint32(rec[4:8])))
		}
		events = append(events, Event{
			Time:  time.Unix(sec, usec*int64(time.Microsecond)),
			Type:  binary.LittleEndian.Uint16(rec[tvSize : tvSize+2]),
			Code:  binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4]),
			Value: int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8])),
		})
	}
	return events
}

type Action int

const (
	ActionTouch Action = iota
	ActionTouchCancel
	ActionTap
	ActionPower
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionTouch:
		return "touch"
	case ActionTouchCancel:
		return "touch-cancel"
	case ActionTap:
		return "tap"
	case ActionPower:
		return "power"
	case ActionExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Gesture is what the face reacts to.
type Gesture struct {
	Action Action
	X, Y   int
	Time   time.Time
}

// Decoder assembles gestures from an event stream. Touch coordinates are
// emitted at the SYN_REPORT that closes the frame, so position updates in
// the same frame as the press are taken into account.
type Decoder struct {
	// Slop is how far, in pixels, a touch may travel and still be a tap.
	Slop int

	x, y         int
	startX       int
	startY       int
	down         bool
	pendingPress bool
	pendingLift  bool
}

func NewDecoder() *Decoder { return &Decoder{Slop: 12} }

// Feed consumes one event and returns the gesture it completes, if any.
func (d *Decoder) Feed(ev Event) (Gesture, bool) {
	switch ev.Type {
	case evAbs:
		switch ev.Code {
		case absX, absMTPositionX:
			d.x = int(ev.Value)
		case absY, absMTPositionY:
			d.y = int(ev.Value)
		}
	case evKey:
		if ev.Value != 1 && !(ev.Code == btnTouch && ev.Value == 0) {
			return Gesture{}, false
		}
		switch ev.Code {
		case keyF4:
			return Gesture{Action: ActionExit, Time: ev.Time}, true
		case keyPower:
			return Gesture{Action: ActionPower, Time: ev.Time}, true
		case btnTouch:
			if ev.Value == 1 {
				d.pendingPress = true
			} else {
				d.pendingLift = true
			}
		}
	case evSyn:
		if ev.Code != synReport {
			return Gesture{}, false
		}
		return d.flush(ev.Time)
	}
	return Gesture{}, false
}

func (d *Decoder) flush(at time.Time) (Gesture, bool) {
	switch {
	case d.pendingPress:
		d.pendingPress = false
		d.down = true
		d.startX, d.startY = d.x, d.y
		return Gesture{Action: ActionTouch, X: d.x, Y: d.y, Time: at}, true
	case d.pendingLift:
		d.pendingLift = false
		if !d.down {
			return Gesture{}, false
		}
		d.down = false
		if abs(d.x-d.startX) > d.Slop || abs(d.y-d.startY) > d.Slop {
			return Gesture{Action: ActionTouchCancel, X: d.x, Y: d.y, Time: at}, true
		}
		return Gesture{Action: ActionTap, X: d.startX, Y: d.startY, Time: at}, true
	}
	return Gesture{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
