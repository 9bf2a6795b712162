package relay

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/store"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// defaultSendTimeout bounds one delivery attempt so a stuck platform never
// delays the remaining targets past its own slot.
const defaultSendTimeout = 30 * time.Second

// Sender delivers annotated content to a target session. Implemented by
// the channel manager; never by the router itself, so forwarded copies
// cannot re-enter the inbound pipeline.
type Sender interface {
	Send(ctx context.Context, target umo.UMO, content message.Content) error
}

// WebhookSender delivers a message through a registered webhook URL as a
// virtual user carrying the original sender's name and avatar.
type WebhookSender interface {
	SendWebhook(ctx context.Context, url string, msg bus.InboundMessage) error
}

// DispatchResult records the outcome of one fan-out delivery.
type DispatchResult struct {
	Target     umo.UMO
	ViaWebhook bool
	Err        error
}

// Router fans an inbound message out to every rule target for its origin.
type Router struct {
	rules       *store.RuleStore
	webhooks    *store.WebhookStore
	sender      Sender
	hookSender  WebhookSender
	sendTimeout time.Duration
}

func NewRouter(rules *store.RuleStore, webhooks *store.WebhookStore, sender Sender) *Router {
	return &Router{
		rules:       rules,
		webhooks:    webhooks,
		sender:      sender,
		sendTimeout: defaultSendTimeout,
	}
}

// SetWebhookSender enables webhook delivery for targets with a registered
// URL. Without one, all targets get plain forwarding.
func (r *Router) SetWebhookSender(ws WebhookSender) { r.hookSender = ws }

// SetSendTimeout overrides the per-target delivery timeout.
func (r *Router) SetSendTimeout(d time.Duration) {
	if d > 0 {
		r.sendTimeout = d
	}
}

// OnMessage looks up the rules for the message origin and dispatches one
// annotated copy per distinct target, concurrently. A failed target never
// blocks or aborts the others; each failure is logged and reported in the
// returned results.
func (r *Router) OnMessage(ctx context.Context, msg bus.InboundMessage) []DispatchResult {
	targets := r.rules.RulesFor(msg.Origin)
	if len(targets) == 0 {
		return nil
	}

	results := make([]DispatchResult, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target umo.UMO) {
			defer wg.Done()
			results[i] = r.dispatchOne(ctx, msg, target)
		}(i, target)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			logger.ErrorCF("router", "Forward failed", map[string]any{
				"source": msg.Origin.String(),
				"target": res.Target.String(),
				"error":  res.Err.Error(),
			})
		}
	}
	return results
}

func (r *Router) dispatchOne(ctx context.Context, msg bus.InboundMessage, target umo.UMO) DispatchResult {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	// Webhook delivery first, falling back to plain forwarding on failure.
	if r.hookSender != nil && r.webhooks != nil {
		if url, ok := r.webhooks.Get(target); ok {
			if err := r.hookSender.SendWebhook(sendCtx, url, msg); err == nil {
				return DispatchResult{Target: target, ViaWebhook: true}
			} else {
				logger.WarnCF("router", "Webhook delivery failed, falling back", map[string]any{
					"target": target.String(),
					"error":  err.Error(),
				})
			}
		}
	}

	annotated := message.Annotate(msg.Segments, msg.Sender(), msg.Origin, target)
	if err := r.sender.Send(sendCtx, target, annotated); err != nil {
		return DispatchResult{Target: target, Err: err}
	}
	return DispatchResult{Target: target}
}
