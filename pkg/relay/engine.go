// Package relay implements the forwarding-rule engine: the two-phase
// add/bind handshake, the mt command surface and the fan-out dispatch
// router.
//
// A rule only ever comes into existence through the handshake: the source
// session proposes (add), the target session accepts (bind). One party can
// never redirect another party's messages without consent.
package relay

import (
	"errors"

	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/store"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// Engine drives the NoRelationship -> Pending -> Confirmed state machine
// over the rule and pending stores.
type Engine struct {
	rules   *store.RuleStore
	pending *store.PendingStore
}

func NewEngine(rules *store.RuleStore, pending *store.PendingStore) *Engine {
	return &Engine{rules: rules, pending: pending}
}

// RequestForward proposes a rule source -> target and parks it as a
// pending request. Repeating the proposal refreshes the pending timestamp
// instead of duplicating it.
func (e *Engine) RequestForward(source, target umo.UMO) (store.PendingRequest, error) {
	if source == target {
		return store.PendingRequest{}, store.ErrSelfLoop
	}
	if e.rules.HasRule(source, target) {
		return store.PendingRequest{}, ErrAlreadyLinked
	}

	req, err := e.pending.Create(source, target)
	if err != nil {
		return store.PendingRequest{}, err
	}

	logger.InfoCF("relay", "Pending bind request created", map[string]any{
		"source": source.String(),
		"target": target.String(),
	})
	return req, nil
}

// Confirm promotes a pending request into a rule. It must be invoked from
// the session that is the target of the request. When source is the zero
// UMO the most recently created request targeting the invoker is taken;
// otherwise the exact (source, invoker) pair must be pending.
//
// The rule is persisted before the pending entry is discarded, so a crash
// in between leaves a confirmed rule plus a stale pending entry that the
// TTL eviction cleans up, never a lost confirmation.
func (e *Engine) Confirm(invoker, source umo.UMO) (store.Rule, error) {
	var req store.PendingRequest
	var ok bool
	if source.IsZero() {
		req, ok = e.pending.FindForTarget(invoker)
	} else {
		req, ok = e.pending.FindPair(source, invoker)
	}
	if !ok {
		return store.Rule{}, ErrNoPendingRequest
	}

	if err := e.rules.AddRule(req.Source, req.Target); err != nil {
		if errors.Is(err, store.ErrDuplicateRule) {
			// Raced with an identical confirmation; the pending entry is
			// spent either way.
			_ = e.pending.Discard(req.Source, req.Target)
			return store.Rule{}, ErrAlreadyLinked
		}
		return store.Rule{}, err
	}

	if err := e.pending.Discard(req.Source, req.Target); err != nil {
		logger.WarnCF("relay", "Confirmed rule but failed to discard pending entry", map[string]any{
			"source": req.Source.String(),
			"error":  err.Error(),
		})
	}

	logger.InfoCF("relay", "Forwarding rule confirmed", map[string]any{
		"source": req.Source.String(),
		"target": req.Target.String(),
	})
	return store.Rule{Source: req.Source, Target: req.Target}, nil
}

// Delete removes the rule(s) between the invoking session and endpoint, in
// either direction. Sessions that are not a participant of any rule
// involving endpoint get ErrUnauthorized.
func (e *Engine) Delete(invoker, endpoint umo.UMO) ([]store.Rule, error) {
	involving := e.rules.RulesInvolving(endpoint)
	if len(involving) == 0 {
		return nil, store.ErrRuleNotFound
	}

	var mine []store.Rule
	for _, r := range involving {
		if r.Source == invoker || r.Target == invoker {
			mine = append(mine, r)
		}
	}
	if len(mine) == 0 {
		return nil, ErrUnauthorized
	}

	for _, r := range mine {
		if err := e.rules.RemoveRule(r.Source, r.Target); err != nil {
			return nil, err
		}
	}

	logger.InfoCF("relay", "Forwarding rule deleted", map[string]any{
		"invoker": invoker.String(),
		"other":   endpoint.String(),
		"count":   len(mine),
	})
	return mine, nil
}

// List returns every rule the invoking session participates in.
func (e *Engine) List(invoker umo.UMO) []store.Rule {
	return e.rules.RulesInvolving(invoker)
}
