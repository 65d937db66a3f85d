package complication

import (
	"fmt"
	"strings"
	"sync"
)

// Role decides where a slot is laid out and what it is used for.
type Role int

const (
	RoleUpper Role = iota
	RoleLower
	RoleBattery
)

func (r Role) String() string {
	switch r {
	case RoleUpper:
		return "upper"
	case RoleLower:
		return "lower"
	case RoleBattery:
		return "battery"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Type is the kind of payload a provider delivers for a slot.
// NotConfigured, Empty and NoPermission are sentinels carrying no content.
type Type int

const (
	TypeNotConfigured Type = iota
	TypeEmpty
	TypeNoPermission
	TypeRangedValue
	TypeIcon
	TypeShortText
	TypeSmallImage
)

var typeNames = map[Type]string{
	TypeNotConfigured: "not_configured",
	TypeEmpty:         "empty",
	TypeNoPermission:  "no_permission",
	TypeRangedValue:   "ranged_value",
	TypeIcon:          "icon",
	TypeShortText:     "short_text",
	TypeSmallImage:    "small_image",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// IsSentinel reports whether t carries no displayable content.
func (t Type) IsSentinel() bool {
	return t == TypeNotConfigured || t == TypeEmpty || t == TypeNoPermission
}

// ParseType is the inverse of Type.String.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeEmpty, fmt.Errorf("unknown complication type %q", name)
}

// Stable slot ids. They are small and dense so they can index arrays.
const (
	UpperID   = 0
	LowerID   = 1
	BatteryID = 2
)

// Slot is one complication position on the face.
type Slot struct {
	ID              int
	Role            Role
	DefaultProvider string

	supportedTypes []Type
}

func NewSlot(id int, role Role, defaultProvider string, supported ...Type) Slot {
	types := make([]Type, len(supported))
	copy(types, supported)
	return Slot{ID: id, Role: role, DefaultProvider: defaultProvider, supportedTypes: types}
}

// SupportedTypes returns the ordered set of data kinds the slot accepts.
func (s Slot) SupportedTypes() []Type {
	out := make([]Type, len(s.supportedTypes))
	copy(out, s.supportedTypes)
	return out
}

func (s Slot) Supports(t Type) bool {
	for _, candidate := range s.supportedTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsWidget reports whether the slot is drawn as a tappable widget.
// The battery slot only feeds the battery bar.
func (s Slot) IsWidget() bool {
	return s.Role == RoleUpper || s.Role == RoleLower
}

// Directory is the immutable table of slots in registration order.
type Directory struct {
	slots []Slot
	index map[int]int
}

func NewDirectory(slots ...Slot) (*Directory, error) {
	dir := &Directory{index: make(map[int]int, len(slots))}
	for _, slot := range slots {
		if slot.ID < 0 {
			return nil, fmt.Errorf("slot id %d must not be negative", slot.ID)
		}
		if _, dup := dir.index[slot.ID]; dup {
			return nil, fmt.Errorf("duplicate slot id %d", slot.ID)
		}
		dir.index[slot.ID] = len(dir.slots)
		dir.slots = append(dir.slots, slot)
	}
	return dir, nil
}

// Slots returns a copy of the registered slots in registration order.
func (dir *Directory) Slots() []Slot {
	out := make([]Slot, len(dir.slots))
	copy(out, dir.slots)
	return out
}

func (dir *Directory) IDs() []int {
	ids := make([]int, len(dir.slots))
	for i, slot := range dir.slots {
		ids[i] = slot.ID
	}
	return ids
}

func (dir *Directory) Lookup(id int) (Slot, bool) {
	i, ok := dir.index[id]
	if !ok {
		return Slot{}, false
	}
	return dir.slots[i], true
}

// ByRole returns the first slot registered with role.
func (dir *Directory) ByRole(role Role) (Slot, bool) {
	for _, slot := range dir.slots {
		if slot.Role == role {
			return slot, true
		}
	}
	return Slot{}, false
}

// BatteryProvider names the system provider bound to the battery slot by default.
const BatteryProvider = "watch-battery"

var widgetTypes = []Type{TypeRangedValue, TypeIcon, TypeShortText, TypeSmallImage}

var (
	defaultDirectoryOnce sync.Once
	defaultDirectory     *Directory
)

// Default returns the process-wide slot table of the watch face.
func Default() *Directory {
	defaultDirectoryOnce.Do(func() {
		dir, err := NewDirectory(
			NewSlot(UpperID, RoleUpper, "", widgetTypes...),
			NewSlot(LowerID, RoleLower, "", widgetTypes...),
			NewSlot(BatteryID, RoleBattery, BatteryProvider, TypeRangedValue),
		)
		if err != nil {
			panic(err)
		}
		defaultDirectory = dir
	})
	return defaultDirectory
}
