package janitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("not a cron line", &countingSweeper{})
	require.Error(t, err)
}

func TestNewAcceptsStandardSchedule(t *testing.T) {
	j, err := New("*/10 * * * *", &countingSweeper{})
	require.NoError(t, err)
	require.NotNil(t, j)
}

func TestRunSweepsOnSchedule(t *testing.T) {
	s := &countingSweeper{}
	// Every-second schedule keeps the test fast.
	j, err := New("* * * * * *", s)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	j.Run(ctx)

	require.GreaterOrEqual(t, s.calls.Load(), int32(1))
}
