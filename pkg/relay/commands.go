package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tinyland-inc/relayclaw/pkg/store"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

const helpText = `mt — message relay commands
  mt add <target_umo>    propose forwarding this session to target
  mt bind [<source_umo>] accept a pending proposal targeting this session
                         (without an argument the most recent one is taken)
  mt del <umo>           delete the rule between this session and <umo>
  mt list                list rules involving this session
  mt webhook             show this session's webhook registration
  mt webhook create      auto-create a webhook for this session (Discord)
  mt webhook <url>       register a webhook URL manually
  mt help                this text

A UMO names one session: platform:kind:id, e.g. discord:GroupMessage:1234.`

// WebhookCreator provisions a webhook for a session on platforms that
// support it. Implemented by the Discord channel.
type WebhookCreator interface {
	CreateWebhook(ctx context.Context, session umo.UMO) (string, error)
}

// Commander parses the "mt ..." command surface and turns every outcome,
// success or failure, into reply text for the invoking session. Command
// errors never escape as faults.
type Commander struct {
	engine      *Engine
	webhooks    *store.WebhookStore
	hookCreator WebhookCreator
}

func NewCommander(engine *Engine, webhooks *store.WebhookStore) *Commander {
	return &Commander{engine: engine, webhooks: webhooks}
}

// SetWebhookCreator enables "mt webhook create".
func (c *Commander) SetWebhookCreator(wc WebhookCreator) { c.hookCreator = wc }

// IsCommand reports whether text is an mt command invocation.
func IsCommand(text string) bool {
	t := strings.TrimLeft(strings.TrimSpace(text), "#/")
	return t == "mt" || strings.HasPrefix(t, "mt ")
}

// Handle executes one command line from the given session and returns the
// reply text. handled is false when the line is not an mt command at all.
func (c *Commander) Handle(ctx context.Context, invoker umo.UMO, text string) (reply string, handled bool) {
	if !IsCommand(text) {
		return "", false
	}
	fields := strings.Fields(strings.TrimLeft(strings.TrimSpace(text), "#/"))

	sub := "help"
	if len(fields) > 1 {
		sub = fields[1]
	}
	args := fields[2:]

	switch sub {
	case "add":
		return c.cmdAdd(invoker, args), true
	case "bind":
		return c.cmdBind(invoker, args), true
	case "del":
		return c.cmdDel(invoker, args), true
	case "list":
		return c.cmdList(invoker), true
	case "webhook":
		return c.cmdWebhook(ctx, invoker, args), true
	case "help":
		return helpText, true
	default:
		return fmt.Sprintf("unknown subcommand %q\n%s", sub, helpText), true
	}
}

func (c *Commander) cmdAdd(invoker umo.UMO, args []string) string {
	if len(args) != 1 {
		return "usage: mt add <target_umo>"
	}
	target, err := umo.Parse(args[0])
	if err != nil {
		return fmt.Sprintf("invalid target: %v", err)
	}

	req, err := c.engine.RequestForward(invoker, target)
	switch {
	case errors.Is(err, store.ErrSelfLoop):
		return "a session cannot forward to itself"
	case errors.Is(err, ErrAlreadyLinked):
		return fmt.Sprintf("already linked: %s -> %s", invoker, target)
	case err != nil:
		return fmt.Sprintf("could not store the request: %v", err)
	}

	return fmt.Sprintf(
		"bind request created (%s)\nrun this in the target session to accept:\n  mt bind %s",
		req.ID, invoker,
	)
}

func (c *Commander) cmdBind(invoker umo.UMO, args []string) string {
	var source umo.UMO
	if len(args) > 1 {
		return "usage: mt bind [<source_umo>]"
	}
	if len(args) == 1 {
		parsed, err := umo.Parse(args[0])
		if err != nil {
			return fmt.Sprintf("invalid source: %v", err)
		}
		source = parsed
	}

	rule, err := c.engine.Confirm(invoker, source)
	switch {
	case errors.Is(err, ErrNoPendingRequest):
		return "no pending bind request for this session"
	case errors.Is(err, ErrAlreadyLinked):
		return "that pair is already linked"
	case err != nil:
		return fmt.Sprintf("could not confirm the rule: %v", err)
	}

	return fmt.Sprintf("bound: %s -> %s", rule.Source, rule.Target)
}

func (c *Commander) cmdDel(invoker umo.UMO, args []string) string {
	if len(args) != 1 {
		return "usage: mt del <umo>"
	}
	endpoint, err := umo.Parse(args[0])
	if err != nil {
		return fmt.Sprintf("invalid endpoint: %v", err)
	}

	deleted, err := c.engine.Delete(invoker, endpoint)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "you are not a participant of that rule"
	case errors.Is(err, store.ErrRuleNotFound):
		return fmt.Sprintf("no rule involves %s", endpoint)
	case err != nil:
		return fmt.Sprintf("could not delete the rule: %v", err)
	}

	lines := make([]string, 0, len(deleted)+1)
	lines = append(lines, "deleted:")
	for _, r := range deleted {
		lines = append(lines, fmt.Sprintf("  %s -> %s", r.Source, r.Target))
	}
	return strings.Join(lines, "\n")
}

func (c *Commander) cmdList(invoker umo.UMO) string {
	rules := c.engine.List(invoker)
	if len(rules) == 0 {
		return "no rules involve this session"
	}

	lines := make([]string, 0, len(rules)+1)
	lines = append(lines, fmt.Sprintf("rules involving %s:", invoker))
	for _, r := range rules {
		mode := "plain"
		if c.webhooks != nil {
			if _, ok := c.webhooks.Get(r.Target); ok {
				mode = "webhook"
			}
		}
		lines = append(lines, fmt.Sprintf("  %s -> %s [%s]", r.Source, r.Target, mode))
	}
	return strings.Join(lines, "\n")
}

func (c *Commander) cmdWebhook(ctx context.Context, invoker umo.UMO, args []string) string {
	if c.webhooks == nil {
		return "webhook delivery is not enabled"
	}

	if len(args) == 0 {
		if url, ok := c.webhooks.Get(invoker); ok {
			return fmt.Sprintf("webhook registered for this session:\n  %s", url)
		}
		return "no webhook registered for this session\nuse: mt webhook create, or mt webhook <url>"
	}

	if args[0] == "create" {
		if c.hookCreator == nil {
			return "automatic webhook creation is not available on this platform"
		}
		url, err := c.hookCreator.CreateWebhook(ctx, invoker)
		if err != nil {
			return fmt.Sprintf("could not create a webhook: %v", err)
		}
		if err := c.webhooks.Set(invoker, url); err != nil {
			return fmt.Sprintf("webhook created but not saved: %v", err)
		}
		return "webhook created; forwarded messages will appear as virtual users"
	}

	// Anything else is a manually supplied URL.
	if err := c.webhooks.Set(invoker, args[0]); err != nil {
		return fmt.Sprintf("could not save the webhook: %v", err)
	}
	return "webhook registered; forwarded messages will appear as virtual users"
}
