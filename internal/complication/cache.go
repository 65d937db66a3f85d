package complication

import (
	"image"
	"time"
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Cache holds the most recent payload and the on-screen bounds of every slot.
// It is owned by the engine's event context and is not safe for concurrent use.
type Cache struct {
	dir    *Directory
	logger Logger

	data   map[int]Data
	bounds map[int]image.Rectangle
	dirty  map[int]bool
}

func NewCache(dir *Directory, logger Logger) *Cache {
	if dir == nil {
		dir = Default()
	}
	return &Cache{
		dir:    dir,
		logger: logger,
		data:   make(map[int]Data, len(dir.slots)),
		bounds: make(map[int]image.Rectangle, len(dir.slots)),
		dirty:  make(map[int]bool, len(dir.slots)),
	}
}

func (c *Cache) Directory() *Directory { return c.dir }

// SetData stores data for slotID, replacing what was there.
// Unknown slots are logged and ignored; the return value reports acceptance.
func (c *Cache) SetData(slotID int, data Data) bool {
	if _, ok := c.dir.Lookup(slotID); !ok {
		if c.logger != nil {
			c.logger.Errorf("complication", "ignoring data for unknown slot %d", slotID)
		}
		return false
	}
	data = data.Normalize()
	if c.Data(slotID).HasContent() != data.HasContent() {
		c.dirty[slotID] = true
	}
	c.data[slotID] = data
	return true
}

// Data returns the last payload set for slotID, or Empty.
func (c *Cache) Data(slotID int) Data {
	if data, ok := c.data[slotID]; ok {
		return data
	}
	return Empty()
}

// Has reports whether a payload was ever delivered for slotID.
func (c *Cache) Has(slotID int) bool {
	_, ok := c.data[slotID]
	return ok
}

func (c *Cache) SetBounds(slotID int, bounds image.Rectangle) {
	if _, ok := c.dir.Lookup(slotID); !ok {
		return
	}
	c.bounds[slotID] = bounds
}

func (c *Cache) Bounds(slotID int) image.Rectangle {
	return c.bounds[slotID]
}

// TakeDirty returns the slots whose data presence changed since the last call,
// in registration order, and clears the marks.
func (c *Cache) TakeDirty() []int {
	if len(c.dirty) == 0 {
		return nil
	}
	var out []int
	for _, slot := range c.dir.slots {
		if c.dirty[slot.ID] {
			out = append(out, slot.ID)
		}
	}
	c.dirty = make(map[int]bool, len(c.dir.slots))
	return out
}

// HitTest returns the first widget slot, in registration order, whose
// bounds contain (x, y) and whose payload is tappable at now.
func (c *Cache) HitTest(x, y int, now time.Time) (int, bool) {
	point := image.Pt(x, y)
	for _, slot := range c.dir.slots {
		if !slot.IsWidget() {
			continue
		}
		data, ok := c.data[slot.ID]
		if !ok || !data.Tappable(now) {
			continue
		}
		bounds := c.bounds[slot.ID]
		if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
			continue
		}
		if point.In(bounds) {
			return slot.ID, true
		}
	}
	return -1, false
}
