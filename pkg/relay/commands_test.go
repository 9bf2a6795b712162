package relay

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relayclaw/pkg/store"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

func newTestCommander(t *testing.T) (*Commander, *store.RuleStore) {
	t.Helper()
	dir := t.TempDir()
	rules, err := store.NewRuleStore(filepath.Join(dir, "rules.json"))
	require.NoError(t, err)
	pending, err := store.NewPendingStore(filepath.Join(dir, "pending.json"), 0)
	require.NoError(t, err)
	webhooks, err := store.NewWebhookStore(filepath.Join(dir, "webhooks.json"))
	require.NoError(t, err)
	return NewCommander(NewEngine(rules, pending), webhooks), rules
}

func TestIsCommand(t *testing.T) {
	for _, yes := range []string{"mt list", "mt", "  mt add x:y:z", "#mt bind", "/mt help"} {
		require.True(t, IsCommand(yes), yes)
	}
	for _, no := range []string{"hello", "mtx list", "", "format this"} {
		require.False(t, IsCommand(no), no)
	}
}

func TestAddBindListScenario(t *testing.T) {
	c, rules := newTestCommander(t)
	ctx := context.Background()
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	reply, handled := c.Handle(ctx, x, fmt.Sprintf("mt add %s", y))
	require.True(t, handled)
	require.Contains(t, reply, "mt bind "+x.String())
	require.Equal(t, 0, rules.Len())

	reply, handled = c.Handle(ctx, y, fmt.Sprintf("mt bind %s", x))
	require.True(t, handled)
	require.Contains(t, reply, "bound: "+x.String()+" -> "+y.String())
	require.True(t, rules.HasRule(x, y))

	reply, _ = c.Handle(ctx, x, "mt list")
	require.Contains(t, reply, x.String()+" -> "+y.String())
	reply, _ = c.Handle(ctx, y, "mt list")
	require.Contains(t, reply, x.String()+" -> "+y.String())
}

func TestDuplicateAddShowsSingleRelationship(t *testing.T) {
	c, _ := newTestCommander(t)
	ctx := context.Background()
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	_, _ = c.Handle(ctx, x, "mt add "+y.String())
	_, _ = c.Handle(ctx, x, "mt add "+y.String())

	// Only one pending entry exists, so bare bind confirms it and a second
	// bind finds nothing.
	reply, _ := c.Handle(ctx, y, "mt bind")
	require.Contains(t, reply, "bound:")
	reply, _ = c.Handle(ctx, y, "mt bind")
	require.Contains(t, reply, "no pending bind request")
}

func TestUnauthorizedDeleteScenario(t *testing.T) {
	c, rules := newTestCommander(t)
	ctx := context.Background()
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")
	z := umo.MustParse("telegram:GroupMessage:300")

	_, _ = c.Handle(ctx, x, "mt add "+y.String())
	_, _ = c.Handle(ctx, y, "mt bind "+x.String())

	reply, _ := c.Handle(ctx, z, "mt del "+x.String())
	require.Contains(t, reply, "not a participant")
	require.True(t, rules.HasRule(x, y), "rule must survive unauthorized delete")

	reply, _ = c.Handle(ctx, y, "mt del "+x.String())
	require.Contains(t, reply, "deleted:")
	require.False(t, rules.HasRule(x, y))
}

func TestCommandErrorsBecomeReplies(t *testing.T) {
	c, _ := newTestCommander(t)
	ctx := context.Background()
	x := umo.MustParse("aiocqhttp:GroupMessage:100")

	reply, handled := c.Handle(ctx, x, "mt add not-a-umo")
	require.True(t, handled)
	require.Contains(t, reply, "invalid target")

	reply, _ = c.Handle(ctx, x, "mt add "+x.String())
	require.Contains(t, reply, "cannot forward to itself")

	reply, _ = c.Handle(ctx, x, "mt del q:GroupMessage:404")
	require.Contains(t, reply, "no rule involves")

	reply, _ = c.Handle(ctx, x, "mt bogus")
	require.Contains(t, reply, `unknown subcommand "bogus"`)

	reply, _ = c.Handle(ctx, x, "mt help")
	require.Contains(t, reply, "mt add <target_umo>")

	_, handled = c.Handle(ctx, x, "just chatting")
	require.False(t, handled)
}

type staticWebhookCreator struct{ url string }

func (s staticWebhookCreator) CreateWebhook(context.Context, umo.UMO) (string, error) {
	return s.url, nil
}

func TestWebhookCommands(t *testing.T) {
	c, _ := newTestCommander(t)
	ctx := context.Background()
	d := umo.MustParse("discord:GroupMessage:555")

	reply, _ := c.Handle(ctx, d, "mt webhook")
	require.Contains(t, reply, "no webhook registered")

	reply, _ = c.Handle(ctx, d, "mt webhook create")
	require.Contains(t, reply, "not available")

	c.SetWebhookCreator(staticWebhookCreator{url: "https://discord.com/api/webhooks/9/tok"})
	reply, _ = c.Handle(ctx, d, "mt webhook create")
	require.Contains(t, reply, "webhook created")

	reply, _ = c.Handle(ctx, d, "mt webhook")
	require.Contains(t, reply, "https://discord.com/api/webhooks/9/tok")

	reply, _ = c.Handle(ctx, d, "mt webhook https://discord.com/api/webhooks/10/manual")
	require.Contains(t, reply, "webhook registered")
}
