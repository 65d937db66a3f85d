package provider

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/prefs"
)

const (
	keyPrefix = "complication_provider_"
	// NoProvider is stored when the user explicitly cleared a slot.
	NoProvider = "none"
)

// PreferenceKey is the store key holding the provider chosen for a slot.
func PreferenceKey(slotID int) string {
	return keyPrefix + strconv.Itoa(slotID)
}

// DeliverFunc receives the provider bound to a slot, or nil when none is.
type DeliverFunc func(slotID int, info *Info)

// Lookup resolves which provider feeds each slot from the preference store,
// falling back to the slot's default provider.
type Lookup struct {
	registry *Registry
	store    prefs.Reader
	dir      *complication.Directory
	logger   Logger
}

func NewLookup(registry *Registry, store prefs.Reader, dir *complication.Directory, logger Logger) *Lookup {
	if dir == nil {
		dir = complication.Default()
	}
	return &Lookup{registry: registry, store: store, dir: dir, logger: logger}
}

// Resolve returns the provider bound to slotID, or nil when the slot has
// none.
func (l *Lookup) Resolve(slotID int) (*Info, error) {
	slot, ok := l.dir.Lookup(slotID)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownSlot, slotID)
	}
	id := slot.DefaultProvider
	if l.store != nil {
		id = l.store.String(PreferenceKey(slotID), id)
	}
	if id == "" || id == NoProvider {
		return nil, nil
	}
	p, err := l.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slotID, err)
	}
	info := p.Info()
	return &info, nil
}

// Retrieve resolves slotIDs on a separate goroutine and calls deliver once
// per slot that resolved. Slots that fail to resolve are logged and skipped.
func (l *Lookup) Retrieve(ctx context.Context, slotIDs []int, deliver DeliverFunc) {
	request := uuid.NewString()
	ids := append([]int(nil), slotIDs...)
	go func() {
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			info, err := l.Resolve(id)
			if err != nil {
				l.errorf("lookup %s: %v", request, err)
				continue
			}
			deliver(id, info)
		}
		l.infof("lookup %s resolved %d slots", request, len(ids))
	}()
}

func (l *Lookup) infof(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Infof("provider", format, args...)
	}
}

func (l *Lookup) errorf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Errorf("provider", format, args...)
	}
}

// Chooser is the picker flow: it lists compatible providers for a slot,
// persists the user's choice and feeds the result back through the same
// path lookups use.
type Chooser struct {
	lookup *Lookup
	store  prefs.Store

	mu          sync.Mutex
	subscribers []DeliverFunc
}

func NewChooser(lookup *Lookup, store prefs.Store) *Chooser {
	return &Chooser{lookup: lookup, store: store}
}

// Subscribe registers fn for every future choice.
func (c *Chooser) Subscribe(fn DeliverFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Options returns the providers the picker offers for slotID.
func (c *Chooser) Options(slotID int) ([]Info, error) {
	slot, ok := c.lookup.dir.Lookup(slotID)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownSlot, slotID)
	}
	return c.lookup.registry.CompatibleWith(slot), nil
}

// Choose binds providerID to slotID. An empty ID or NoProvider clears the
// slot.
func (c *Chooser) Choose(slotID int, providerID string) error {
	slot, ok := c.lookup.dir.Lookup(slotID)
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownSlot, slotID)
	}

	var info *Info
	if providerID == "" {
		providerID = NoProvider
	}
	if providerID != NoProvider {
		p, err := c.lookup.registry.Get(providerID)
		if err != nil {
			return err
		}
		chosen := p.Info()
		if !chosen.Compatible(slot) {
			return fmt.Errorf("%s for slot %d: %w", providerID, slotID, ErrUnsupported)
		}
		info = &chosen
	}

	c.store.SetString(PreferenceKey(slotID), providerID)
	if err := c.store.Commit(); err != nil {
		return fmt.Errorf("save provider choice: %w", err)
	}

	c.mu.Lock()
	subscribers := append([]DeliverFunc(nil), c.subscribers...)
	c.mu.Unlock()
	for _, fn := range subscribers {
		fn(slotID, info)
	}
	return nil
}
