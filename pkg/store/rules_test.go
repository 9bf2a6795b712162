package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

func newTestRuleStore(t *testing.T) (*RuleStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	s, err := NewRuleStore(path)
	require.NoError(t, err)
	return s, path
}

func TestAddRuleAndPersist(t *testing.T) {
	s, path := newTestRuleStore(t)
	a := umo.MustParse("aiocqhttp:GroupMessage:1")
	b := umo.MustParse("discord:GroupMessage:2")

	require.NoError(t, s.AddRule(a, b))
	require.True(t, s.HasRule(a, b))

	// Durability before acknowledgment: the file reflects the rule already.
	reloaded, err := NewRuleStore(path)
	require.NoError(t, err)
	require.True(t, reloaded.HasRule(a, b))
	require.Equal(t, 1, reloaded.Len())

	// No stray temp file left behind.
	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr))
}

func TestAddRuleDuplicate(t *testing.T) {
	s, _ := newTestRuleStore(t)
	a := umo.MustParse("telegram:FriendMessage:7")
	b := umo.MustParse("slack:GroupMessage:C99")

	require.NoError(t, s.AddRule(a, b))
	require.ErrorIs(t, s.AddRule(a, b), ErrDuplicateRule)
	require.Equal(t, 1, s.Len())

	// Reverse direction is a distinct rule, not a duplicate.
	require.NoError(t, s.AddRule(b, a))
	require.Equal(t, 2, s.Len())
}

func TestAddRuleSelfLoop(t *testing.T) {
	s, _ := newTestRuleStore(t)
	x := umo.MustParse("discord:GroupMessage:42")

	require.ErrorIs(t, s.AddRule(x, x), ErrSelfLoop)
	require.Equal(t, 0, s.Len())
}

func TestRemoveRule(t *testing.T) {
	s, path := newTestRuleStore(t)
	a := umo.MustParse("aiocqhttp:GroupMessage:1")
	b := umo.MustParse("discord:GroupMessage:2")

	require.ErrorIs(t, s.RemoveRule(a, b), ErrRuleNotFound)

	require.NoError(t, s.AddRule(a, b))
	require.NoError(t, s.RemoveRule(a, b))
	require.False(t, s.HasRule(a, b))

	reloaded, err := NewRuleStore(path)
	require.NoError(t, err)
	require.Equal(t, 0, reloaded.Len())
}

func TestRulesForDistinctTargets(t *testing.T) {
	s, _ := newTestRuleStore(t)
	a := umo.MustParse("aiocqhttp:GroupMessage:1")
	b := umo.MustParse("discord:GroupMessage:2")
	c := umo.MustParse("telegram:GroupMessage:3")

	require.NoError(t, s.AddRule(a, b))
	require.NoError(t, s.AddRule(a, c))
	require.NoError(t, s.AddRule(b, c))

	targets := s.RulesFor(a)
	require.ElementsMatch(t, []umo.UMO{b, c}, targets)
	require.Empty(t, s.RulesFor(c))
}

func TestRulesInvolving(t *testing.T) {
	s, _ := newTestRuleStore(t)
	a := umo.MustParse("aiocqhttp:GroupMessage:1")
	b := umo.MustParse("discord:GroupMessage:2")
	c := umo.MustParse("telegram:GroupMessage:3")

	require.NoError(t, s.AddRule(a, b))
	require.NoError(t, s.AddRule(c, a))
	require.NoError(t, s.AddRule(b, c))

	involved := s.RulesInvolving(a)
	require.Len(t, involved, 2)
	for _, r := range involved {
		require.True(t, r.Source == a || r.Target == a)
	}
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewRuleStore(path)
	require.Error(t, err)
	require.NotNil(t, s)
	require.Equal(t, 0, s.Len())

	// The store stays usable after the degraded start.
	require.NoError(t, s.AddRule(
		umo.MustParse("aiocqhttp:GroupMessage:1"),
		umo.MustParse("discord:GroupMessage:2"),
	))
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	s, err := NewRuleStore(filepath.Join(t.TempDir(), "absent", "rules.json"))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}

func TestAddRuleRollsBackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	s, err := NewRuleStore(path)
	require.NoError(t, err)

	// Make the directory unwritable so the persist fails.
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err = s.AddRule(
		umo.MustParse("aiocqhttp:GroupMessage:1"),
		umo.MustParse("discord:GroupMessage:2"),
	)
	require.Error(t, err)
	require.Equal(t, 0, s.Len(), "in-memory state must not diverge from disk")
}
