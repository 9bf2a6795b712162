package relay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relayclaw/pkg/store"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

func newTestEngine(t *testing.T) (*Engine, *store.RuleStore, *store.PendingStore) {
	t.Helper()
	dir := t.TempDir()
	rules, err := store.NewRuleStore(filepath.Join(dir, "rules.json"))
	require.NoError(t, err)
	pending, err := store.NewPendingStore(filepath.Join(dir, "pending.json"), 0)
	require.NoError(t, err)
	return NewEngine(rules, pending), rules, pending
}

func TestHandshakeAddThenBind(t *testing.T) {
	e, rules, pending := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	_, err := e.RequestForward(x, y)
	require.NoError(t, err)
	require.Equal(t, 1, pending.Len())
	require.Equal(t, 0, rules.Len())

	// bind issued from the target session
	rule, err := e.Confirm(y, x)
	require.NoError(t, err)
	require.Equal(t, x, rule.Source)
	require.Equal(t, y, rule.Target)
	require.True(t, rules.HasRule(x, y))
	require.Equal(t, 0, pending.Len(), "pending entry must be spent by bind")
}

func TestHandshakeConsentInvariant(t *testing.T) {
	e, rules, _ := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	_, err := e.RequestForward(x, y)
	require.NoError(t, err)

	// The proposer cannot bind its own request: no pending request targets x.
	_, err = e.Confirm(x, x)
	require.ErrorIs(t, err, ErrNoPendingRequest)
	_, err = e.Confirm(x, umo.UMO{})
	require.ErrorIs(t, err, ErrNoPendingRequest)
	require.Equal(t, 0, rules.Len())

	// No rule without a prior pending request.
	z := umo.MustParse("telegram:GroupMessage:300")
	_, err = e.Confirm(z, umo.UMO{})
	require.ErrorIs(t, err, ErrNoPendingRequest)
}

func TestConfirmImplicitMostRecent(t *testing.T) {
	e, rules, _ := newTestEngine(t)
	y := umo.MustParse("discord:GroupMessage:200")
	a := umo.MustParse("aiocqhttp:GroupMessage:1")
	b := umo.MustParse("telegram:GroupMessage:2")

	_, err := e.RequestForward(a, y)
	require.NoError(t, err)
	_, err = e.RequestForward(b, y)
	require.NoError(t, err)

	// Bare bind takes the most recent proposer.
	rule, err := e.Confirm(y, umo.UMO{})
	require.NoError(t, err)
	require.Equal(t, b, rule.Source)
	require.False(t, rules.HasRule(a, y))

	// Explicit bind still reaches the older one.
	rule, err = e.Confirm(y, a)
	require.NoError(t, err)
	require.Equal(t, a, rule.Source)
}

func TestRequestForwardAlreadyLinked(t *testing.T) {
	e, _, pending := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	_, err := e.RequestForward(x, y)
	require.NoError(t, err)
	_, err = e.Confirm(y, x)
	require.NoError(t, err)

	_, err = e.RequestForward(x, y)
	require.ErrorIs(t, err, ErrAlreadyLinked)
	require.Equal(t, 0, pending.Len())

	// The reverse direction is a fresh handshake, not AlreadyLinked.
	_, err = e.RequestForward(y, x)
	require.NoError(t, err)
}

func TestRequestForwardSelfLoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	x := umo.MustParse("slack:GroupMessage:C1")
	_, err := e.RequestForward(x, x)
	require.ErrorIs(t, err, store.ErrSelfLoop)
}

func TestRequestForwardIdempotentRefresh(t *testing.T) {
	e, _, pending := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	first, err := e.RequestForward(x, y)
	require.NoError(t, err)
	second, err := e.RequestForward(x, y)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, pending.Len())
}

func TestDeleteAuthorization(t *testing.T) {
	e, rules, _ := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")
	z := umo.MustParse("telegram:GroupMessage:300")

	_, err := e.RequestForward(x, y)
	require.NoError(t, err)
	_, err = e.Confirm(y, x)
	require.NoError(t, err)

	// Uninvolved session: unauthorized, rule intact.
	_, err = e.Delete(z, x)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, rules.HasRule(x, y))

	// No rule at all involving the named endpoint.
	_, err = e.Delete(z, umo.MustParse("slack:GroupMessage:C0"))
	require.ErrorIs(t, err, store.ErrRuleNotFound)

	// Either participant may delete.
	deleted, err := e.Delete(y, x)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.False(t, rules.HasRule(x, y))
}

func TestDeleteRemovesBothDirections(t *testing.T) {
	e, rules, _ := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	for _, pair := range [][2]umo.UMO{{x, y}, {y, x}} {
		_, err := e.RequestForward(pair[0], pair[1])
		require.NoError(t, err)
		_, err = e.Confirm(pair[1], pair[0])
		require.NoError(t, err)
	}
	require.Equal(t, 2, rules.Len())

	deleted, err := e.Delete(x, y)
	require.NoError(t, err)
	require.Len(t, deleted, 2)
	require.Equal(t, 0, rules.Len())
}

func TestListInvolvesBothSides(t *testing.T) {
	e, _, _ := newTestEngine(t)
	x := umo.MustParse("aiocqhttp:GroupMessage:100")
	y := umo.MustParse("discord:GroupMessage:200")

	_, err := e.RequestForward(x, y)
	require.NoError(t, err)
	_, err = e.Confirm(y, x)
	require.NoError(t, err)

	require.Len(t, e.List(x), 1)
	require.Len(t, e.List(y), 1)
	require.Empty(t, e.List(umo.MustParse("telegram:GroupMessage:300")))
}
