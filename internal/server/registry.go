package server

import (
	"sync"
	"time"

	"github.com/at-ishikawa/genius/internal/plan"
	"github.com/at-ishikawa/genius/internal/story"
)

type entry struct {
	story    *story.Session
	plan     *plan.Session
	lastUsed time.Time
	// inFlight counts running transitions; such entries are never evicted
	inFlight int
}

// registry keeps live sessions per owner so transitions on one entity are
// serialized by that entity's session
type registry struct {
	mu          sync.Mutex
	entries     map[string]*entry
	idleTimeout time.Duration
	now         func() time.Time
}

func newRegistry(idleTimeout time.Duration) *registry {
	return &registry{
		entries:     map[string]*entry{},
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func registryKey(ownerID, id string) string {
	return ownerID + "/" + id
}

func (r *registry) get(ownerID, id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[registryKey(ownerID, id)]
	if ok {
		e.lastUsed = r.now()
	}
	return e, ok
}

// put stores e unless a session for the same entity was stored first; the stored one is returned
func (r *registry) put(ownerID, id string, e *entry) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictIdle(now)
	key := registryKey(ownerID, id)
	if existing, ok := r.entries[key]; ok {
		existing.lastUsed = now
		return existing
	}
	e.lastUsed = now
	r.entries[key] = e
	return e
}

// begin marks a transition on the entity as running. The returned func ends
// it and counts as a use.
func (r *registry) begin(ownerID, id string) (end func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[registryKey(ownerID, id)]
	if !ok {
		return func() {}
	}
	e.inFlight++
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		e.inFlight--
		e.lastUsed = r.now()
	}
}

func (r *registry) evictIdle(now time.Time) {
	if r.idleTimeout <= 0 {
		return
	}
	for key, e := range r.entries {
		if e.inFlight == 0 && now.Sub(e.lastUsed) > r.idleTimeout {
			delete(r.entries, key)
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
