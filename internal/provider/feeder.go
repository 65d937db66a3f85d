package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teradata/watchface/internal/complication"
)

// DataFunc receives fresh data for a slot. The engine's
// OnComplicationDataUpdate fits.
type DataFunc func(slotID int, data complication.Data)

type FeederOptions struct {
	// Interval between polls of a bound provider.
	Interval time.Duration
	// Rate and Burst cap provider fetches across all slots.
	Rate  rate.Limit
	Burst int
}

func DefaultFeederOptions() FeederOptions {
	return FeederOptions{Interval: time.Minute, Rate: rate.Every(time.Second), Burst: 3}
}

// Feeder runs one poller per slot that fetches from the slot's bound
// provider and hands the result to deliver.
type Feeder struct {
	registry    *Registry
	lookup      *Lookup
	permissions *Permissions
	deliver     DataFunc
	interval    time.Duration
	limiter     *rate.Limiter
	logger      Logger

	mu       sync.Mutex
	bindings map[int]*Info
	wake     map[int]chan struct{}
}

func NewFeeder(registry *Registry, lookup *Lookup, permissions *Permissions, deliver DataFunc, opts FeederOptions, logger Logger) *Feeder {
	if opts.Interval <= 0 {
		opts.Interval = DefaultFeederOptions().Interval
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	f := &Feeder{
		registry:    registry,
		lookup:      lookup,
		permissions: permissions,
		deliver:     deliver,
		interval:    opts.Interval,
		limiter:     rate.NewLimiter(opts.Rate, opts.Burst),
		logger:      logger,
		bindings:    map[int]*Info{},
		wake:        map[int]chan struct{}{},
	}
	for _, id := range lookup.dir.IDs() {
		f.wake[id] = make(chan struct{}, 1)
	}
	return f
}

// Bind sets the provider of a slot and refreshes it. It has the shape of
// DeliverFunc so lookups and the chooser can feed it directly.
func (f *Feeder) Bind(slotID int, info *Info) {
	f.mu.Lock()
	if _, ok := f.wake[slotID]; !ok {
		f.mu.Unlock()
		f.errorf("bind of unknown slot %d ignored", slotID)
		return
	}
	f.bindings[slotID] = info
	f.mu.Unlock()

	name := "none"
	if info != nil {
		name = info.ID
	}
	f.infof("slot %d bound to %s", slotID, name)
	f.Refresh(slotID)
}

// Refresh asks the poller of slotID to fetch now.
func (f *Feeder) Refresh(slotID int) {
	ch, ok := f.wake[slotID]
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (f *Feeder) binding(slotID int) (*Info, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.bindings[slotID]
	return info, ok
}

// Run looks up the bindings of every slot, then polls until ctx is done.
func (f *Feeder) Run(ctx context.Context) error {
	ids := f.lookup.dir.IDs()
	f.lookup.Retrieve(ctx, ids, f.Bind)

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error { return f.poll(ctx, id) })
	}
	return g.Wait()
}

func (f *Feeder) poll(ctx context.Context, slotID int) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.wake[slotID]:
		case <-ticker.C:
		}
		f.update(ctx, slotID)
	}
}

// update fetches once for slotID. Slots with no known binding are skipped.
func (f *Feeder) update(ctx context.Context, slotID int) {
	info, ok := f.binding(slotID)
	if !ok {
		return
	}
	if info == nil {
		f.deliver(slotID, complication.Data{Type: complication.TypeNotConfigured})
		return
	}
	if info.NeedsPermission && (f.permissions == nil || !f.permissions.Allowed(info.ID)) {
		f.deliver(slotID, complication.Data{Type: complication.TypeNoPermission})
		return
	}
	p, err := f.registry.Get(info.ID)
	if err != nil {
		f.errorf("slot %d: %v", slotID, err)
		return
	}
	slot, _ := f.lookup.dir.Lookup(slotID)
	if err := f.limiter.Wait(ctx); err != nil {
		return
	}
	data, err := p.Fetch(ctx, slot)
	if err != nil {
		f.errorf("fetch %s for slot %d: %v", info.ID, slotID, err)
		return
	}
	f.deliver(slotID, data)
}

func (f *Feeder) infof(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Infof("feeder", format, args...)
	}
}

func (f *Feeder) errorf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Errorf("feeder", format, args...)
	}
}
