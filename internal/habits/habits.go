// Package habits drives the periodic lifecycle of recurring tasks:
// detecting that a daily, weekly or monthly period has rolled over and
// resetting counters so each period starts fresh.
package habits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/types"
)

// Store is the storage subset the lifecycle needs.
type Store interface {
	ListRecurringTasks(ctx context.Context, projectID int64) ([]*types.Task, error)
	ResetHabit(ctx context.Context, id int64, today string) error
}

// Lifecycle resets recurring tasks whose period has elapsed.
type Lifecycle struct {
	store Store
	clock clock.Clock
}

func New(store Store, clk clock.Clock) *Lifecycle {
	return &Lifecycle{store: store, clock: clk}
}

// Stale reports whether a recurring task's current period has ended
// relative to now. A task that has never been reset is stale so its
// lifecycle starts on first contact.
func Stale(task *types.Task, now time.Time) bool {
	if !task.Recurring {
		return false
	}
	if task.LastReset == "" {
		return true
	}
	last, err := time.Parse(types.DateLayout, task.LastReset)
	if err != nil {
		return true
	}
	switch task.Recurrence {
	case types.RecurrenceDaily:
		return !clock.SameDay(last, now)
	case types.RecurrenceWeekly:
		return !clock.SameISOWeek(last, now)
	case types.RecurrenceMonthly:
		return !clock.SameMonth(last, now)
	}
	return false
}

// Sweep resets every stale recurring task in a project. A zero
// projectID sweeps all active projects. A failure on one task does not
// stop the sweep; all failures come back joined, alongside the count of
// tasks that did reset.
func (l *Lifecycle) Sweep(ctx context.Context, projectID int64) (int, error) {
	tasks, err := l.store.ListRecurringTasks(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to list recurring tasks: %w", err)
	}

	now := l.clock.Now()
	today := now.Format(types.DateLayout)

	reset := 0
	var failures []error
	for _, task := range tasks {
		if !Stale(task, now) {
			continue
		}
		if err := l.store.ResetHabit(ctx, task.ID, today); err != nil {
			failures = append(failures, fmt.Errorf("task %d: %w", task.ID, err))
			continue
		}
		reset++
	}
	if len(failures) > 0 {
		return reset, errors.Join(failures...)
	}
	return reset, nil
}
