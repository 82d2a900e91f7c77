package scheduler

import (
	"context"
	"fmt"

	"github.com/dmgomes/nextup/internal/types"
)

// QueueStore is the storage subset queue materialization needs.
type QueueStore interface {
	ListProjects(ctx context.Context, state types.ProjectState) ([]*types.Project, error)
	GetQueue(ctx context.Context, name string) (*types.Queue, error)
	SaveQueue(ctx context.Context, queue *types.Queue) error
}

// Materialize reconciles a named queue with the current active project
// set: persisted ids that went inactive drop out, active projects not
// yet listed append in id order, and prior relative order is preserved.
// The result is persisted only when it differs from what was stored.
// Materializing twice with no state change in between is a no-op the
// second time.
func Materialize(ctx context.Context, store QueueStore, name string) ([]int64, error) {
	active, err := store.ListProjects(ctx, types.ProjectActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}
	activeSet := make(map[int64]bool, len(active))
	for _, p := range active {
		activeSet[p.ID] = true
	}

	queue, err := store.GetQueue(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %q: %w", name, err)
	}

	var persisted []int64
	if queue != nil {
		persisted = queue.ProjectIDs
	}

	merged := make([]int64, 0, len(activeSet))
	seen := make(map[int64]bool, len(activeSet))
	for _, id := range persisted {
		if activeSet[id] && !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	for _, p := range active {
		if !seen[p.ID] {
			merged = append(merged, p.ID)
			seen[p.ID] = true
		}
	}

	if queue != nil && equalIDs(persisted, merged) {
		return merged, nil
	}
	if queue == nil {
		queue = &types.Queue{Name: name}
	}
	queue.ProjectIDs = merged
	if err := store.SaveQueue(ctx, queue); err != nil {
		return nil, fmt.Errorf("failed to persist queue %q: %w", name, err)
	}
	return merged, nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
