package store

import (
	"sync"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// Rule is one directional forwarding link. Bidirectional bridging between
// two sessions is simply two rules, one each way.
type Rule struct {
	Source umo.UMO `json:"source_umo"`
	Target umo.UMO `json:"target_umo"`
}

// RuleStore is the authoritative set of forwarding rules, mirrored to a
// JSON file on every mutation.
type RuleStore struct {
	mu    sync.RWMutex
	path  string
	rules []Rule
}

// NewRuleStore loads the rule set from path. A corrupt file degrades to an
// empty store and the parse failure is returned alongside the usable store.
func NewRuleStore(path string) (*RuleStore, error) {
	s := &RuleStore{path: path}
	var rules []Rule
	if err := loadJSON(path, &rules); err != nil {
		return s, err
	}
	s.rules = rules
	return s, nil
}

// AddRule inserts (source, target) and persists before acknowledging.
// The in-memory set is rolled back if the write fails.
func (s *RuleStore) AddRule(source, target umo.UMO) error {
	if source == target {
		return ErrSelfLoop
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rules {
		if r.Source == source && r.Target == target {
			return ErrDuplicateRule
		}
	}

	s.rules = append(s.rules, Rule{Source: source, Target: target})
	if err := saveJSON(s.path, s.rules); err != nil {
		s.rules = s.rules[:len(s.rules)-1]
		return err
	}
	return nil
}

// RemoveRule deletes (source, target) and persists.
func (s *RuleStore) RemoveRule(source, target umo.UMO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.rules {
		if r.Source == source && r.Target == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRuleNotFound
	}

	removed := s.rules[idx]
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	if err := saveJSON(s.path, s.rules); err != nil {
		s.rules = append(s.rules, Rule{})
		copy(s.rules[idx+1:], s.rules[idx:])
		s.rules[idx] = removed
		return err
	}
	return nil
}

// RulesFor returns the distinct targets of rules whose source is endpoint.
// This is the dispatch router's lookup.
func (s *RuleStore) RulesFor(endpoint umo.UMO) []umo.UMO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[umo.UMO]struct{})
	var targets []umo.UMO
	for _, r := range s.rules {
		if r.Source != endpoint {
			continue
		}
		if _, dup := seen[r.Target]; dup {
			continue
		}
		seen[r.Target] = struct{}{}
		targets = append(targets, r.Target)
	}
	return targets
}

// RulesInvolving returns rules where endpoint is either side. Used by list.
func (s *RuleStore) RulesInvolving(endpoint umo.UMO) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, r := range s.rules {
		if r.Source == endpoint || r.Target == endpoint {
			out = append(out, r)
		}
	}
	return out
}

// HasRule reports whether (source, target) exists.
func (s *RuleStore) HasRule(source, target umo.UMO) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.Source == source && r.Target == target {
			return true
		}
	}
	return false
}

// ListAll returns a copy of every rule.
func (s *RuleStore) ListAll() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules.
func (s *RuleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
