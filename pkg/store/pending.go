package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// DefaultPendingTTL is how long an unconfirmed bind request stays valid.
const DefaultPendingTTL = 24 * time.Hour

// PendingRequest is an in-flight rule proposal awaiting acceptance from the
// target session.
type PendingRequest struct {
	ID        string    `json:"id"`
	Source    umo.UMO   `json:"source_umo"`
	Target    umo.UMO   `json:"target_umo"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingStore holds outstanding bind requests, mirrored to a JSON file.
// Expired entries are evicted lazily on every read and by the janitor sweep.
type PendingStore struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries []PendingRequest

	now func() time.Time // overridable in tests
}

// NewPendingStore loads pending requests from path. ttl <= 0 selects
// DefaultPendingTTL. A corrupt file degrades to an empty store.
func NewPendingStore(path string, ttl time.Duration) (*PendingStore, error) {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	s := &PendingStore{path: path, ttl: ttl, now: time.Now}
	var entries []PendingRequest
	if err := loadJSON(path, &entries); err != nil {
		return s, err
	}
	s.entries = entries
	return s, nil
}

// Create upserts a pending request for (source, target). A second add for
// the same pair refreshes the timestamp instead of duplicating the entry.
func (s *PendingStore) Create(source, target umo.UMO) (PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	for i, e := range s.entries {
		if e.Source == source && e.Target == target {
			prev := s.entries[i]
			s.entries[i].CreatedAt = s.now()
			if err := saveJSON(s.path, s.entries); err != nil {
				s.entries[i] = prev
				return PendingRequest{}, err
			}
			return s.entries[i], nil
		}
	}

	req := PendingRequest{
		ID:        uuid.New().String(),
		Source:    source,
		Target:    target,
		CreatedAt: s.now(),
	}
	s.entries = append(s.entries, req)
	if err := saveJSON(s.path, s.entries); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return PendingRequest{}, err
	}
	return req, nil
}

// FindForTarget returns the most recently created live request whose target
// is the given session. This backs the bare "mt bind" form.
func (s *PendingStore) FindForTarget(target umo.UMO) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	var best PendingRequest
	found := false
	for _, e := range s.entries {
		if e.Target != target {
			continue
		}
		if !found || e.CreatedAt.After(best.CreatedAt) {
			best = e
			found = true
		}
	}
	return best, found
}

// FindPair returns the live request for exactly (source, target).
func (s *PendingStore) FindPair(source, target umo.UMO) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	for _, e := range s.entries {
		if e.Source == source && e.Target == target {
			return e, true
		}
	}
	return PendingRequest{}, false
}

// Discard removes the (source, target) request, if present, and persists.
func (s *PendingStore) Discard(source, target umo.UMO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.Source == source && e.Target == target {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return saveJSON(s.path, s.entries)
		}
	}
	return nil
}

// Sweep evicts expired entries eagerly and reports how many were dropped.
func (s *PendingStore) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.entries)
	if s.evictLocked() {
		return before - len(s.entries), saveJSON(s.path, s.entries)
	}
	return 0, nil
}

// Len returns the number of live entries.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.entries)
}

// evictLocked drops expired entries in memory. Persistence of the shrunken
// set rides along with the next mutation; Sweep forces it.
func (s *PendingStore) evictLocked() bool {
	cutoff := s.now().Add(-s.ttl)
	kept := s.entries[:0]
	evicted := false
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			evicted = true
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return evicted
}
