// Package replay provides the bounded anti-replay store used to reject
// reuse of single-use challenge tokens.
package replay

import "sync"

// DefaultCapacity is the number of tokens remembered when none is given.
// Under high token-issuance rates the window can slide past tokens that
// have not yet expired; size the ring for expected traffic rather than
// treating this as a hidden default.
const DefaultCapacity = 100

// Ring is a fixed-capacity token store with strict FIFO eviction by
// insertion slot. Inserting over capacity forgets the oldest-inserted
// token even if it has not expired yet; tokens carry their own embedded
// expiry, which is typically shorter than the eviction window. Safe for
// concurrent use; the slot cursor and lookup map move together under one
// mutex.
type Ring struct {
	mu     sync.Mutex
	slots  []string
	lookup map[string]struct{}
	cursor int
}

// New builds a Ring remembering up to capacity tokens. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		slots:  make([]string, capacity),
		lookup: make(map[string]struct{}, capacity),
	}
}

// Has reports whether token is currently remembered.
func (r *Ring) Has(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.lookup[token]
	return ok
}

// Add remembers token, evicting the oldest-inserted resident of the target
// slot first.
func (r *Ring) Add(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resident := r.slots[r.cursor]; resident != "" {
		delete(r.lookup, resident)
	}
	r.slots[r.cursor] = token
	r.lookup[token] = struct{}{}
	r.cursor = (r.cursor + 1) % len(r.slots)
}

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}
