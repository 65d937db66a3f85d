package provider

import (
	"sort"
	"sync"
	"time"
)

// Permissions tracks which providers the user allowed to share data with
// the face and which slots are waiting for a decision.
type Permissions struct {
	mu      sync.Mutex
	granted map[string]bool
	pending map[int]time.Time
	now     func() time.Time
	onGrant func(slotID int)
	logger  Logger
}

func NewPermissions(logger Logger) *Permissions {
	return &Permissions{
		granted: map[string]bool{},
		pending: map[int]time.Time{},
		now:     time.Now,
		logger:  logger,
	}
}

// OnGrant sets the callback run after a pending slot was granted.
func (p *Permissions) OnGrant(fn func(slotID int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onGrant = fn
}

// RequestPermission records that slotID wants access. The request stays
// pending until Grant or Deny.
func (p *Permissions) RequestPermission(slotID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[slotID]; !ok {
		p.pending[slotID] = p.now()
	}
	if p.logger != nil {
		p.logger.Infof("provider", "permission requested for slot %d", slotID)
	}
	return nil
}

// Pending lists slots waiting for a decision, lowest id first.
func (p *Permissions) Pending() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (p *Permissions) Allowed(providerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted[providerID]
}

// Grant allows providerID and resolves the pending request of slotID.
func (p *Permissions) Grant(slotID int, providerID string) {
	p.mu.Lock()
	p.granted[providerID] = true
	delete(p.pending, slotID)
	onGrant := p.onGrant
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Infof("provider", "permission granted to %s for slot %d", providerID, slotID)
	}
	if onGrant != nil {
		onGrant(slotID)
	}
}

// Deny drops the pending request of slotID.
func (p *Permissions) Deny(slotID int) {
	p.mu.Lock()
	delete(p.pending, slotID)
	p.mu.Unlock()
}

// Revoke withdraws a previous grant.
func (p *Permissions) Revoke(providerID string) {
	p.mu.Lock()
	delete(p.granted, providerID)
	p.mu.Unlock()
}
