package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestProject(t *testing.T, store *Store, name string) *types.Project {
	t.Helper()
	p := &types.Project{Name: name, State: types.ProjectActive}
	if err := store.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return p
}

func rootTask(t *testing.T, store *Store, projectID int64) *types.Task {
	t.Helper()
	tasks, err := store.ListProjectTasks(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	for _, task := range tasks {
		if task.Root() {
			return task
		}
	}
	t.Fatalf("project %d has no root task", projectID)
	return nil
}

func TestCreateProjectCreatesRootTask(t *testing.T) {
	store := setupTestStore(t)
	p := createTestProject(t, store, "Write a novel")

	root := rootTask(t, store, p.ID)
	if root.Title != "Write a novel" {
		t.Errorf("root title = %q, want project name", root.Title)
	}
	if root.Depth != 1 {
		t.Errorf("root depth = %d, want 1", root.Depth)
	}
	if root.ParentID != nil {
		t.Errorf("root has parent %d, want none", *root.ParentID)
	}
}

func TestListProjectsByState(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Active one")
	p2 := createTestProject(t, store, "Paused one")
	paused := types.ProjectPaused
	if err := store.UpdateProject(ctx, p2.ID, nil, &paused); err != nil {
		t.Fatalf("failed to update project: %v", err)
	}

	active, err := store.ListProjects(ctx, types.ProjectActive)
	if err != nil {
		t.Fatalf("failed to list projects: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Active one" {
		t.Errorf("active projects = %+v, want only %q", active, "Active one")
	}

	all, err := store.ListProjects(ctx, "")
	if err != nil {
		t.Fatalf("failed to list all projects: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all projects = %d, want 2", len(all))
	}
}

func TestGetProjectNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetProject(context.Background(), 999)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateTaskPositionsBeforeSiblings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	first := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "first"}
	if err := store.CreateTask(ctx, first); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	second := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "second"}
	if err := store.CreateTask(ctx, second); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if first.Position != 0 {
		t.Errorf("first position = %d, want 0", first.Position)
	}
	if second.Position != -1 {
		t.Errorf("second position = %d, want -1", second.Position)
	}
	if first.Depth != 2 || second.Depth != 2 {
		t.Errorf("depths = %d, %d, want 2, 2", first.Depth, second.Depth)
	}

	// Newest sibling lists first.
	tasks, err := store.ListProjectTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	var titles []string
	for _, task := range tasks {
		if !task.Root() {
			titles = append(titles, task.Title)
		}
	}
	if diff := cmp.Diff([]string{"second", "first"}, titles); diff != "" {
		t.Errorf("sibling order mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateTaskInvalidParent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p1 := createTestProject(t, store, "One")
	p2 := createTestProject(t, store, "Two")
	otherRoot := rootTask(t, store, p2.ID)

	err := store.CreateTask(ctx, &types.Task{ProjectID: p1.ID, ParentID: &otherRoot.ID, Title: "stray"})
	if !errors.Is(err, types.ErrInvalidParent) {
		t.Errorf("cross-project parent err = %v, want ErrInvalidParent", err)
	}

	missing := int64(9999)
	err = store.CreateTask(ctx, &types.Task{ProjectID: p1.ID, ParentID: &missing, Title: "orphan"})
	if !errors.Is(err, types.ErrInvalidParent) {
		t.Errorf("missing parent err = %v, want ErrInvalidParent", err)
	}
}

func TestCreateRecurringTaskInitializesLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Habits")
	root := rootTask(t, store, p.ID)

	habit := &types.Task{
		ProjectID: p.ID, ParentID: &root.ID, Title: "Meditate",
		Recurring: true, Recurrence: types.RecurrenceDaily, Objective: 3,
	}
	if err := store.CreateTask(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	got, err := store.GetTask(ctx, habit.ID)
	if err != nil {
		t.Fatalf("failed to get habit: %v", err)
	}
	if got.Counter != 0 {
		t.Errorf("counter = %d, want 0", got.Counter)
	}
	if got.LastReset == "" {
		t.Error("last_reset not initialized")
	}
	if _, err := time.Parse(types.DateLayout, got.LastReset); err != nil {
		t.Errorf("last_reset %q is not a date: %v", got.LastReset, err)
	}
}

func TestUpdateTaskCloseAndReopenTransitions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	task := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "do it"}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	done := true
	if err := store.UpdateTask(ctx, task.ID, types.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to close task: %v", err)
	}
	got, _ := store.GetTask(ctx, task.ID)
	if !got.Completed || got.State != types.TaskClosed || got.ClosedAt == nil {
		t.Errorf("after close: completed=%v state=%v closed_at=%v", got.Completed, got.State, got.ClosedAt)
	}

	// Re-sending completed=true must not move closed_at.
	firstClosed := *got.ClosedAt
	time.Sleep(10 * time.Millisecond)
	if err := store.UpdateTask(ctx, task.ID, types.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to re-close task: %v", err)
	}
	got, _ = store.GetTask(ctx, task.ID)
	if got.ClosedAt == nil || !got.ClosedAt.Equal(firstClosed) {
		t.Errorf("closed_at moved on idempotent close: %v -> %v", firstClosed, got.ClosedAt)
	}

	open := false
	if err := store.UpdateTask(ctx, task.ID, types.TaskPatch{Completed: &open}); err != nil {
		t.Fatalf("failed to reopen task: %v", err)
	}
	got, _ = store.GetTask(ctx, task.ID)
	if got.Completed || got.State != types.TaskOpen || got.ClosedAt != nil {
		t.Errorf("after reopen: completed=%v state=%v closed_at=%v", got.Completed, got.State, got.ClosedAt)
	}
}

func TestFixedClockStampsTimestamps(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	store, err := NewWithClock(":memory:", clock.Fixed{T: fixed})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	p := createTestProject(t, store, "Clockwork")
	root := rootTask(t, store, p.ID)
	if !root.CreatedAt.Equal(fixed) {
		t.Errorf("root created_at = %v, want %v", root.CreatedAt, fixed)
	}

	task := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "wind up"}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	done := true
	if err := store.UpdateTask(ctx, task.ID, types.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to close task: %v", err)
	}
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.ClosedAt == nil || !got.ClosedAt.Equal(fixed) {
		t.Errorf("closed_at = %v, want %v", got.ClosedAt, fixed)
	}

	habit := &types.Task{
		ProjectID: p.ID, ParentID: &root.ID, Title: "tick",
		Recurring: true, Recurrence: types.RecurrenceDaily, Objective: 1,
	}
	if err := store.CreateTask(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	if _, err := store.IncrementHabit(ctx, habit.ID); err != nil {
		t.Fatalf("failed to increment: %v", err)
	}
	logs, err := store.ListHabitLogs(ctx, habit.ID, time.Time{})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if !logs[0].Date.Equal(fixed) || !logs[0].CreatedAt.Equal(fixed) {
		t.Errorf("log stamped %v / %v, want %v", logs[0].Date, logs[0].CreatedAt, fixed)
	}
}

func TestReparentTaskShiftsSubtreeDepth(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	a := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "a"}
	b := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "b"}
	for _, task := range []*types.Task{a, b} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
	}
	child := &types.Task{ProjectID: p.ID, ParentID: &a.ID, Title: "child of a"}
	if err := store.CreateTask(ctx, child); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	grandchild := &types.Task{ProjectID: p.ID, ParentID: &child.ID, Title: "grandchild"}
	if err := store.CreateTask(ctx, grandchild); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	// Moving a under b pushes a's whole subtree one level down.
	if err := store.ReparentTask(ctx, a.ID, &b.ID); err != nil {
		t.Fatalf("failed to reparent: %v", err)
	}

	wantDepths := map[int64]int{a.ID: 3, child.ID: 4, grandchild.ID: 5}
	for id, want := range wantDepths {
		got, err := store.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("failed to get task %d: %v", id, err)
		}
		if got.Depth != want {
			t.Errorf("task %q depth = %d, want %d", got.Title, got.Depth, want)
		}
	}
}

func TestReparentTaskErrors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	a := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "a"}
	if err := store.CreateTask(ctx, a); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	child := &types.Task{ProjectID: p.ID, ParentID: &a.ID, Title: "child"}
	if err := store.CreateTask(ctx, child); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if err := store.ReparentTask(ctx, a.ID, &a.ID); !errors.Is(err, types.ErrSelfParent) {
		t.Errorf("self parent err = %v, want ErrSelfParent", err)
	}
	if err := store.ReparentTask(ctx, a.ID, &child.ID); !errors.Is(err, types.ErrCyclicMove) {
		t.Errorf("cyclic move err = %v, want ErrCyclicMove", err)
	}
	missing := int64(9999)
	if err := store.ReparentTask(ctx, a.ID, &missing); !errors.Is(err, types.ErrInvalidParent) {
		t.Errorf("missing parent err = %v, want ErrInvalidParent", err)
	}
}

func TestDeleteTaskRecursive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	if _, err := store.DeleteTaskRecursive(ctx, root.ID); !errors.Is(err, types.ErrRootDeletion) {
		t.Errorf("root delete err = %v, want ErrRootDeletion", err)
	}

	a := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "a"}
	if err := store.CreateTask(ctx, a); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	child := &types.Task{ProjectID: p.ID, ParentID: &a.ID, Title: "child"}
	if err := store.CreateTask(ctx, child); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	keep := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "keep"}
	if err := store.CreateTask(ctx, keep); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	ids, err := store.DeleteTaskRecursive(ctx, a.ID)
	if err != nil {
		t.Fatalf("failed to delete subtree: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("deleted %d tasks, want 2", len(ids))
	}
	if _, err := store.GetTask(ctx, child.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleted child still readable, err = %v", err)
	}
	if _, err := store.GetTask(ctx, keep.ID); err != nil {
		t.Errorf("sibling was deleted too: %v", err)
	}
}

func TestCloseTaskRecursiveSharesTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	a := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "a"}
	if err := store.CreateTask(ctx, a); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	child := &types.Task{ProjectID: p.ID, ParentID: &a.ID, Title: "child"}
	if err := store.CreateTask(ctx, child); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	n, err := store.CloseTaskRecursive(ctx, a.ID)
	if err != nil {
		t.Fatalf("failed to close subtree: %v", err)
	}
	if n != 2 {
		t.Errorf("closed %d tasks, want 2", n)
	}

	gotA, _ := store.GetTask(ctx, a.ID)
	gotChild, _ := store.GetTask(ctx, child.ID)
	if gotA.ClosedAt == nil || gotChild.ClosedAt == nil {
		t.Fatal("closed_at not set on subtree")
	}
	if !gotA.ClosedAt.Equal(*gotChild.ClosedAt) {
		t.Errorf("closed_at differs across subtree: %v vs %v", gotA.ClosedAt, gotChild.ClosedAt)
	}
}

func TestIncrementHabitLogsEachCompletion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Habits")
	root := rootTask(t, store, p.ID)

	habit := &types.Task{
		ProjectID: p.ID, ParentID: &root.ID, Title: "Run",
		Recurring: true, Recurrence: types.RecurrenceWeekly, Objective: 2,
	}
	if err := store.CreateTask(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	for i := 1; i <= 3; i++ {
		got, err := store.IncrementHabit(ctx, habit.ID)
		if err != nil {
			t.Fatalf("failed to increment: %v", err)
		}
		if got.Counter != i {
			t.Errorf("counter = %d, want %d", got.Counter, i)
		}
	}

	logs, err := store.ListHabitLogs(ctx, habit.ID, time.Time{})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3", len(logs))
	}
	for _, l := range logs {
		if l.CounterValue != 1 {
			t.Errorf("log counter_value = %d, want 1", l.CounterValue)
		}
	}

	task := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "plain"}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if _, err := store.IncrementHabit(ctx, task.ID); !errors.Is(err, types.ErrValidation) {
		t.Errorf("increment on plain task err = %v, want ErrValidation", err)
	}
}

func TestResetHabitArchivesOnceOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Habits")
	root := rootTask(t, store, p.ID)

	habit := &types.Task{
		ProjectID: p.ID, ParentID: &root.ID, Title: "Stretch",
		Recurring: true, Recurrence: types.RecurrenceDaily, Objective: 2,
	}
	if err := store.CreateTask(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.IncrementHabit(ctx, habit.ID); err != nil {
			t.Fatalf("failed to increment: %v", err)
		}
	}

	today := "2026-03-02"
	if err := store.ResetHabit(ctx, habit.ID, today); err != nil {
		t.Fatalf("failed to reset: %v", err)
	}
	got, _ := store.GetTask(ctx, habit.ID)
	if got.Counter != 0 || got.LastReset != today {
		t.Errorf("after reset: counter=%d last_reset=%q", got.Counter, got.LastReset)
	}

	logs, _ := store.ListHabitLogs(ctx, habit.ID, time.Time{})
	archived := 0
	for _, l := range logs {
		if l.CounterValue == 2 {
			archived++
		}
	}
	if archived != 1 {
		t.Errorf("archived %d period logs, want 1", archived)
	}

	// A second reset of an already-zero counter must not log again.
	if err := store.ResetHabit(ctx, habit.ID, today); err != nil {
		t.Fatalf("failed to re-reset: %v", err)
	}
	logsAfter, _ := store.ListHabitLogs(ctx, habit.ID, time.Time{})
	if len(logsAfter) != len(logs) {
		t.Errorf("idempotent reset added logs: %d -> %d", len(logs), len(logsAfter))
	}
}

func TestListRecurringTasksHonorsOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Habits")
	root := rootTask(t, store, p.ID)

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		h := &types.Task{
			ProjectID: p.ID, ParentID: &root.ID, Title: title,
			Recurring: true, Recurrence: types.RecurrenceDaily, Objective: 1,
		}
		if err := store.CreateTask(ctx, h); err != nil {
			t.Fatalf("failed to create habit: %v", err)
		}
		ids = append(ids, h.ID)
	}

	if err := store.SetHabitsTaskOrder(ctx, p.ID, []int64{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("failed to reorder: %v", err)
	}

	habits, err := store.ListRecurringTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to list habits: %v", err)
	}
	var titles []string
	for _, h := range habits {
		titles = append(titles, h.Title)
	}
	if diff := cmp.Diff([]string{"three", "one", "two"}, titles); diff != "" {
		t.Errorf("habit order mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionLifecycleAndStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")

	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	sess, err := store.StartSession(ctx, p.ID, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session has empty id")
	}
	if err := store.EndSession(ctx, sess.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("failed to end session: %v", err)
	}
	if err := store.EndSession(ctx, sess.ID, now); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("double end err = %v, want ErrNotFound", err)
	}

	ends, err := store.LastSessionEnds(ctx, []int64{p.ID})
	if err != nil {
		t.Fatalf("failed to get last ends: %v", err)
	}
	if got := ends[p.ID]; !got.Equal(now.Add(-time.Hour)) {
		t.Errorf("last end = %v, want %v", got, now.Add(-time.Hour))
	}

	stats, err := store.SessionTimeStats(ctx, []int64{p.ID}, now)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	ts := stats[p.ID]
	if ts.Today < 0.99 || ts.Today > 1.01 {
		t.Errorf("today hours = %v, want ~1", ts.Today)
	}
	if ts.Total < 0.99 || ts.Total > 1.01 {
		t.Errorf("total hours = %v, want ~1", ts.Total)
	}
}

func TestQueuePersistence(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.GetQueue(ctx, "default")
	if err != nil {
		t.Fatalf("failed to get absent queue: %v", err)
	}
	if got != nil {
		t.Fatalf("absent queue = %+v, want nil", got)
	}

	q := &types.Queue{Name: "default", ProjectIDs: []int64{3, 1, 2}}
	if err := store.SaveQueue(ctx, q); err != nil {
		t.Fatalf("failed to save queue: %v", err)
	}
	q.ProjectIDs = []int64{1, 2, 3}
	if err := store.SaveQueue(ctx, q); err != nil {
		t.Fatalf("failed to upsert queue: %v", err)
	}

	got, err = store.GetQueue(ctx, "default")
	if err != nil {
		t.Fatalf("failed to get queue: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, got.ProjectIDs); diff != "" {
		t.Errorf("queue order mismatch (-want +got):\n%s", diff)
	}

	queues, err := store.ListQueues(ctx)
	if err != nil {
		t.Fatalf("failed to list queues: %v", err)
	}
	if len(queues) != 1 {
		t.Errorf("got %d queues, want 1", len(queues))
	}

	if err := store.DeleteQueue(ctx, "default"); err != nil {
		t.Fatalf("failed to delete queue: %v", err)
	}
	if err := store.DeleteQueue(ctx, "default"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestLatestIndicators(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")

	first := []types.IndicatorValue{
		{Indicator: types.IndicatorCalmer, Value: 1},
		{Indicator: types.IndicatorProgressed, Value: 2},
		{Indicator: types.IndicatorMotivated, Value: 3},
	}
	if err := store.SaveIndicators(ctx, p.ID, first); err != nil {
		t.Fatalf("failed to save indicators: %v", err)
	}
	second := []types.IndicatorValue{{Indicator: types.IndicatorCalmer, Value: 3}}
	if err := store.SaveIndicators(ctx, p.ID, second); err != nil {
		t.Fatalf("failed to save indicators: %v", err)
	}

	latest, err := store.LatestIndicators(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to get indicators: %v", err)
	}
	want := map[int]int{
		types.IndicatorCalmer:     3,
		types.IndicatorProgressed: 2,
		types.IndicatorMotivated:  3,
	}
	if diff := cmp.Diff(want, latest); diff != "" {
		t.Errorf("latest indicators mismatch (-want +got):\n%s", diff)
	}

	bad := []types.IndicatorValue{{Indicator: 5, Value: 1}}
	if err := store.SaveIndicators(ctx, p.ID, bad); !errors.Is(err, types.ErrValidation) {
		t.Errorf("invalid indicator err = %v, want ErrValidation", err)
	}
}

func TestProjectTaskStatsExcludesRootAndHabits(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Project")
	root := rootTask(t, store, p.ID)

	done := true
	for i, closed := range []bool{true, false, false} {
		task := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "t"}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("failed to create task %d: %v", i, err)
		}
		if closed {
			if err := store.UpdateTask(ctx, task.ID, types.TaskPatch{Completed: &done}); err != nil {
				t.Fatalf("failed to close task: %v", err)
			}
		}
	}
	habit := &types.Task{
		ProjectID: p.ID, ParentID: &root.ID, Title: "habit",
		Recurring: true, Recurrence: types.RecurrenceDaily, Objective: 1,
	}
	if err := store.CreateTask(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	stats, err := store.ProjectTaskStats(ctx, []int64{p.ID})
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	got := stats[p.ID]
	if got.Open != 2 || got.Closed != 1 {
		t.Errorf("stats = %+v, want open=2 closed=1", got)
	}
	if got.Percent != 33 {
		t.Errorf("percent = %d, want 33", got.Percent)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, store, "Doomed")
	root := rootTask(t, store, p.ID)

	task := &types.Task{ProjectID: p.ID, ParentID: &root.ID, Title: "t"}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if _, err := store.StartSession(ctx, p.ID, time.Now()); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	if err := store.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("failed to delete project: %v", err)
	}
	if _, err := store.GetProject(ctx, p.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleted project still readable, err = %v", err)
	}
	tasks, err := store.ListProjectTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("deleted project still has %d tasks", len(tasks))
	}
	sessions, err := store.ListSessions(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("deleted project still has %d sessions", len(sessions))
	}
}
