package store

import (
	"sync"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// WebhookStore maps target endpoints to webhook URLs. When a target has a
// webhook registered, forwarded messages are delivered through it as a
// virtual user instead of as plain bot messages.
type WebhookStore struct {
	mu    sync.RWMutex
	path  string
	hooks map[string]string // canonical UMO string -> webhook URL
}

// NewWebhookStore loads webhook registrations from path.
func NewWebhookStore(path string) (*WebhookStore, error) {
	s := &WebhookStore{path: path, hooks: make(map[string]string)}
	hooks := make(map[string]string)
	if err := loadJSON(path, &hooks); err != nil {
		return s, err
	}
	s.hooks = hooks
	return s, nil
}

// Set registers url for target and persists.
func (s *WebhookStore) Set(target umo.UMO, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := target.String()
	prev, had := s.hooks[key]
	s.hooks[key] = url
	if err := saveJSON(s.path, s.hooks); err != nil {
		if had {
			s.hooks[key] = prev
		} else {
			delete(s.hooks, key)
		}
		return err
	}
	return nil
}

// Get returns the webhook URL for target, if any.
func (s *WebhookStore) Get(target umo.UMO) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, ok := s.hooks[target.String()]
	return url, ok
}

// Remove deletes the registration for target, if present.
func (s *WebhookStore) Remove(target umo.UMO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := target.String()
	prev, had := s.hooks[key]
	if !had {
		return nil
	}
	delete(s.hooks, key)
	if err := saveJSON(s.path, s.hooks); err != nil {
		s.hooks[key] = prev
		return err
	}
	return nil
}
