package state

import (
	"image"
	"sync"
	"time"
)

// Mode is the render loop state.
type Mode int

const (
	INACTIVE Mode = iota
	ACTIVE_INTERACTIVE
	ACTIVE_AMBIENT
)

func (m Mode) String() string {
	switch m {
	case INACTIVE:
		return "inactive"
	case ACTIVE_INTERACTIVE:
		return "interactive"
	case ACTIVE_AMBIENT:
		return "ambient"
	default:
		return "unknown"
	}
}

// Status is what the engine publishes after each processed event so that
// other goroutines (HTTP API, simulator) can observe it without touching
// engine state.
type Status struct {
	Mode        Mode
	Display     DisplayState
	Drift       image.Point
	UnreadCount int
	Muted       bool
	LowBit      bool
	BurnIn      bool
	Frames      int64
	LastFrame   time.Time
	NextTick    time.Time

	Surface       Surface
	Location      string
	Complications []SlotStatus
}

// Surface is the last geometry the engine was given.
type Surface struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Round  bool `json:"round"`
}

// SlotStatus describes the data currently held for one complication slot.
type SlotStatus struct {
	ID     int    `json:"id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Active bool   `json:"active"`
}

type Store struct {
	mu    sync.RWMutex
	state Status
}

func NewStore() *Store {
	return &Store{state: Status{Mode: INACTIVE, Display: Defaults()}}
}

func (store *Store) Snapshot() Status {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) Publish(status Status) {
	store.mu.Lock()
	store.state = status
	store.mu.Unlock()
}
