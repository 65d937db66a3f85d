// Package provider supplies complication data: the provider registry, the
// lookup service and chooser that bind providers to slots, the permission
// flow, the built-in system providers and the feeder that polls them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/teradata/watchface/internal/complication"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrUnsupported     = errors.New("provider does not support any type of the slot")
)

type Logger interface {
	Infof(component, format string, args ...interface{})
	Errorf(component, format string, args ...interface{})
}

// Info describes a provider to the chooser and the lookup service.
type Info struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Types []complication.Type `json:"-"`
	// NeedsPermission marks providers whose data is withheld until the user
	// grants access.
	NeedsPermission bool `json:"needsPermission"`
}

// TypeNames lists Types by name, for JSON.
func (info Info) TypeNames() []string {
	names := make([]string, len(info.Types))
	for i, t := range info.Types {
		names[i] = t.String()
	}
	return names
}

// Compatible reports whether the provider can feed slot.
func (info Info) Compatible(slot complication.Slot) bool {
	for _, t := range info.Types {
		if slot.Supports(t) {
			return true
		}
	}
	return false
}

// Provider produces data for a slot on demand.
type Provider interface {
	Info() Info
	Fetch(ctx context.Context, slot complication.Slot) (complication.Data, error)
}

// Registry is the set of installed providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same ID.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Info().ID] = p
}

func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// List returns every provider sorted by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// CompatibleWith returns the providers that can feed slot.
func (r *Registry) CompatibleWith(slot complication.Slot) []Info {
	var out []Info
	for _, info := range r.List() {
		if info.Compatible(slot) {
			out = append(out, info)
		}
	}
	return out
}
