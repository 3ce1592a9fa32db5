// Package sessiontable implements the bounded, externally-synchronized
// session-ID -> Session lookup structure every signaling front-end call
// goes through to find the orchestrator instance to dispatch into
// (SPEC_FULL.md §2, internal/sessiontable row).
//
// Grounded on internal/task/manager.go's TaskManager for the
// registry-of-named-instances shape (map keyed by ID, guarded against
// concurrent access, Put/Get/Remove/Len verbs); the TTL/expiry
// behavior itself is modeled directly on
// plugins/parser/sip/sip.go's sessionCache, which keys the same
// github.com/patrickmn/go-cache by Call-ID rather than by MRCP session
// ID.
package sessiontable

import (
	"time"

	cache "github.com/patrickmn/go-cache"

	"firestige.xyz/otus/internal/session"
)

// Table is the process-wide session-ID -> *session.Session registry. A
// session left idle past its expiration (no OFFER/CONTROL/TERMINATE and
// no new entry refresh) is evicted automatically — this bounds memory
// against a client that opens a session and never sends TERMINATE.
type Table struct {
	c *cache.Cache
}

// New creates a table whose entries expire after ttl of inactivity,
// swept every cleanupInterval. ttl <= 0 disables expiration entirely
// (entries only leave via Remove).
func New(ttl, cleanupInterval time.Duration) *Table {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Table{c: cache.New(ttl, cleanupInterval)}
}

// Put registers s under s.ID, replacing any prior entry with the same
// ID. Resets the expiry clock.
func (t *Table) Put(s *session.Session) {
	t.c.SetDefault(s.ID, s)
}

// Get looks up a session by ID, refreshing its expiry clock on a hit
// (every dispatched message is activity).
func (t *Table) Get(id string) (*session.Session, bool) {
	v, ok := t.c.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*session.Session)
	t.c.SetDefault(id, s) // touch: extend TTL on access
	return s, true
}

// Remove drops id from the table. Called from Session.RemoveFromTable
// at TERMINATING entry (spec.md §4.3 terminate step 2).
func (t *Table) Remove(id string) {
	t.c.Delete(id)
}

// Len reports the number of sessions currently tracked, including ones
// pending eviction but not yet swept.
func (t *Table) Len() int {
	return t.c.ItemCount()
}
