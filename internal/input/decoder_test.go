package input

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(tvSize int, sec, usec int64, typ, code uint16, value int32) []byte {
	rec := make([]byte, tvSize+8)
	if tvSize == 16 {
		binary.LittleEndian.PutUint64(rec[0:8], uint64(sec))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(usec))
	} else {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(sec))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(usec))
	}
	binary.LittleEndian.PutUint16(rec[tvSize:], typ)
	binary.LittleEndian.PutUint16(rec[tvSize+2:], code)
	binary.LittleEndian.PutUint32(rec[tvSize+4:], uint32(value))
	return rec
}

func TestParseEvents64(t *testing.T) {
	buf := append(record(16, 100, 250000, evKey, keyF4, 1), record(16, 100, 260000, evSyn, synReport, 0)...)
	buf = append(buf, 0x01, 0x02) // partial trailing record

	events := ParseEvents(buf, 16)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Time: time.Unix(100, 250000000), Type: evKey, Code: keyF4, Value: 1}, events[0])
	assert.Equal(t, uint16(evSyn), events[1].Type)
}

func TestParseEvents32(t *testing.T) {
	events := ParseEvents(record(8, 7, 0, evAbs, absY, -3), 8)
	require.Len(t, events, 1)
	assert.Equal(t, uint16(absY), events[0].Code)
	assert.Equal(t, int32(-3), events[0].Value)
	assert.Equal(t, time.Unix(7, 0), events[0].Time)
}

func feedAll(d *Decoder, events ...Event) []Gesture {
	var out []Gesture
	for _, ev := range events {
		if g, ok := d.Feed(ev); ok {
			out = append(out, g)
		}
	}
	return out
}

func syn() Event { return Event{Type: evSyn, Code: synReport} }

func TestTapIsEmittedOnLift(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d,
		Event{Type: evKey, Code: btnTouch, Value: 1},
		Event{Type: evAbs, Code: absMTPositionX, Value: 120},
		Event{Type: evAbs, Code: absMTPositionY, Value: 80},
		syn(),
		Event{Type: evAbs, Code: absMTPositionX, Value: 124},
		syn(),
		Event{Type: evKey, Code: btnTouch, Value: 0},
		syn(),
	)
	require.Len(t, got, 2)
	assert.Equal(t, ActionTouch, got[0].Action)
	assert.Equal(t, 120, got[0].X)
	assert.Equal(t, 80, got[0].Y)
	assert.Equal(t, ActionTap, got[1].Action)
	assert.Equal(t, 120, got[1].X)
	assert.Equal(t, 80, got[1].Y)
}

func TestDragBecomesCancel(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d,
		Event{Type: evAbs, Code: absX, Value: 10},
		Event{Type: evAbs, Code: absY, Value: 10},
		Event{Type: evKey, Code: btnTouch, Value: 1},
		syn(),
		Event{Type: evAbs, Code: absX, Value: 200},
		Event{Type: evKey, Code: btnTouch, Value: 0},
		syn(),
	)
	require.Len(t, got, 2)
	assert.Equal(t, ActionTouchCancel, got[1].Action)
}

func TestKeys(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d,
		Event{Type: evKey, Code: keyPower, Value: 1},
		Event{Type: evKey, Code: keyPower, Value: 0},
		Event{Type: evKey, Code: keyPower, Value: 2}, // autorepeat
		Event{Type: evKey, Code: keyF4, Value: 1},
	)
	require.Len(t, got, 2)
	assert.Equal(t, ActionPower, got[0].Action)
	assert.Equal(t, ActionExit, got[1].Action)
}

func TestLiftWithoutPressIsIgnored(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d, Event{Type: evKey, Code: btnTouch, Value: 0}, syn())
	assert.Empty(t, got)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "tap", ActionTap.String())
	assert.Equal(t, "unknown", Action(42).String())
}
