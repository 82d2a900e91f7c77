package habits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/types"
)

type fakeStore struct {
	tasks  []*types.Task
	resets map[int64]string
	fail   map[int64]error
}

func (f *fakeStore) ListRecurringTasks(ctx context.Context, projectID int64) ([]*types.Task, error) {
	return f.tasks, nil
}

func (f *fakeStore) ResetHabit(ctx context.Context, id int64, today string) error {
	if err := f.fail[id]; err != nil {
		return err
	}
	if f.resets == nil {
		f.resets = make(map[int64]string)
	}
	f.resets[id] = today
	return nil
}

func habit(id int64, recurrence types.Recurrence, lastReset string) *types.Task {
	return &types.Task{
		ID:         id,
		Recurring:  true,
		Recurrence: recurrence,
		Objective:  1,
		LastReset:  lastReset,
	}
}

func TestStale(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name string
		task *types.Task
		want bool
	}{
		{"daily same day", habit(1, types.RecurrenceDaily, "2026-03-04"), false},
		{"daily previous day", habit(1, types.RecurrenceDaily, "2026-03-03"), true},
		{"weekly same iso week", habit(1, types.RecurrenceWeekly, "2026-03-02"), false},
		{"weekly previous week", habit(1, types.RecurrenceWeekly, "2026-03-01"), true},
		{"monthly same month", habit(1, types.RecurrenceMonthly, "2026-03-01"), false},
		{"monthly previous month", habit(1, types.RecurrenceMonthly, "2026-02-28"), true},
		{"never reset", habit(1, types.RecurrenceDaily, ""), true},
		{"garbage last reset", habit(1, types.RecurrenceDaily, "not-a-date"), true},
		{"not recurring", &types.Task{ID: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stale(tt.task, now); got != tt.want {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepResetsOnlyStaleHabits(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{tasks: []*types.Task{
		habit(1, types.RecurrenceDaily, "2026-03-03"),
		habit(2, types.RecurrenceDaily, "2026-03-04"),
		habit(3, types.RecurrenceWeekly, "2026-02-20"),
	}}

	l := New(store, clock.Fixed{T: now})
	n, err := l.Sweep(context.Background(), 0)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 2 {
		t.Errorf("reset %d habits, want 2", n)
	}
	if store.resets[1] != "2026-03-04" || store.resets[3] != "2026-03-04" {
		t.Errorf("resets = %v, want tasks 1 and 3 stamped 2026-03-04", store.resets)
	}
	if _, ok := store.resets[2]; ok {
		t.Error("fresh habit was reset")
	}
}

func TestSweepIsIdempotentWithinPeriod(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	h := habit(1, types.RecurrenceDaily, "2026-03-03")
	store := &fakeStore{tasks: []*types.Task{h}}
	l := New(store, clock.Fixed{T: now})

	n, err := l.Sweep(context.Background(), 0)
	if err != nil || n != 1 {
		t.Fatalf("first sweep = (%d, %v), want (1, nil)", n, err)
	}

	// Simulate the reset having been persisted.
	h.LastReset = "2026-03-04"
	h.Counter = 0
	n, err = l.Sweep(context.Background(), 0)
	if err != nil || n != 0 {
		t.Errorf("second sweep = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	boom := errors.New("disk full")
	store := &fakeStore{
		tasks: []*types.Task{
			habit(1, types.RecurrenceDaily, "2026-03-03"),
			habit(2, types.RecurrenceDaily, "2026-03-03"),
		},
		fail: map[int64]error{1: boom},
	}

	l := New(store, clock.Fixed{T: now})
	n, err := l.Sweep(context.Background(), 0)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
	if n != 1 {
		t.Errorf("reset %d habits, want 1 despite the failure", n)
	}
	if _, ok := store.resets[2]; !ok {
		t.Error("sweep stopped at the failing task")
	}
}
