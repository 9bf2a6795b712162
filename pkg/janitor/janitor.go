// Package janitor runs the scheduled expiry sweep over the pending store.
// Expired requests are already invisible to reads; the sweep just keeps the
// persisted file from accumulating dead entries.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/relayclaw/pkg/logger"
)

// Sweeper is the part of the pending store the janitor drives.
type Sweeper interface {
	Sweep() (int, error)
}

type Janitor struct {
	schedule string
	store    Sweeper
}

// New validates the cron expression and returns a janitor for it.
func New(schedule string, store Sweeper) (*Janitor, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Janitor{schedule: schedule, store: store}, nil
}

// Run sweeps on the configured schedule until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	for {
		next, err := gronx.NextTick(j.schedule, false)
		if err != nil {
			logger.ErrorCF("janitor", "Schedule evaluation failed", map[string]any{
				"schedule": j.schedule,
				"error":    err.Error(),
			})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		removed, err := j.store.Sweep()
		if err != nil {
			logger.WarnCF("janitor", "Sweep failed", map[string]any{"error": err.Error()})
			continue
		}
		if removed > 0 {
			logger.InfoCF("janitor", "Expired pending requests removed", map[string]any{
				"count": removed,
			})
		}
	}
}
