package scheduler

import (
	"testing"

	"github.com/dmgomes/nextup/internal/tasktree"
	"github.com/dmgomes/nextup/internal/types"
)

func ptr(v int64) *int64 { return &v }

func TestSelectTodoSkipsCompletedBranch(t *testing.T) {
	// Root → done branch (with done subtasks), then an open branch whose
	// only actionable work is a grandchild.
	tasks := []*types.Task{
		{ID: 1, Title: "root", Depth: 1},
		{ID: 2, ParentID: ptr(1), Title: "done branch", Position: 0, Depth: 2, Completed: true},
		{ID: 3, ParentID: ptr(2), Title: "done leaf", Position: 0, Depth: 3, Completed: true},
		{ID: 4, ParentID: ptr(1), Title: "open branch", Position: 1, Depth: 2},
		{ID: 5, ParentID: ptr(4), Title: "open child", Position: 0, Depth: 3},
		{ID: 6, ParentID: ptr(5), Title: "open grandchild", Position: 0, Depth: 4},
	}

	todo := SelectTodo(tasktree.NewIndex(tasks))
	if todo == nil {
		t.Fatal("no todo selected")
	}
	if todo.Task.ID != 6 {
		t.Errorf("selected task %d (%q), want 6", todo.Task.ID, todo.Task.Title)
	}
	if todo.Breadcrumb != "open branch → open child" {
		t.Errorf("breadcrumb = %q, want %q", todo.Breadcrumb, "open branch → open child")
	}
}

func TestSelectTodoPrefersLowestPosition(t *testing.T) {
	tasks := []*types.Task{
		{ID: 1, Title: "root", Depth: 1},
		{ID: 2, ParentID: ptr(1), Title: "second", Position: 5, Depth: 2},
		{ID: 3, ParentID: ptr(1), Title: "first", Position: -1, Depth: 2},
	}

	todo := SelectTodo(tasktree.NewIndex(tasks))
	if todo == nil || todo.Task.ID != 3 {
		t.Fatalf("selected %+v, want task 3 (lowest position)", todo)
	}
	if todo.Breadcrumb != "" {
		t.Errorf("direct child breadcrumb = %q, want empty", todo.Breadcrumb)
	}
}

func TestSelectTodoSkipsRecurringTasks(t *testing.T) {
	tasks := []*types.Task{
		{ID: 1, Title: "root", Depth: 1},
		{ID: 2, ParentID: ptr(1), Title: "habit", Position: 0, Depth: 2, Recurring: true, Objective: 3},
		{ID: 3, ParentID: ptr(1), Title: "plain", Position: 1, Depth: 2},
	}

	todo := SelectTodo(tasktree.NewIndex(tasks))
	if todo == nil || todo.Task.ID != 3 {
		t.Fatalf("selected %+v, want the non-recurring task", todo)
	}
}

func TestSelectTodoParentWithDoneSubtasks(t *testing.T) {
	// When every subtask is effectively done the parent itself becomes
	// the next action; a recurring subtask counts as done once its
	// counter meets the objective.
	tasks := []*types.Task{
		{ID: 1, Title: "root", Depth: 1},
		{ID: 2, ParentID: ptr(1), Title: "wrap up", Position: 0, Depth: 2},
		{ID: 3, ParentID: ptr(2), Title: "done leaf", Position: 0, Depth: 3, Completed: true},
		{ID: 4, ParentID: ptr(2), Title: "met habit", Position: 1, Depth: 3, Recurring: true, Objective: 2, Counter: 2},
	}

	todo := SelectTodo(tasktree.NewIndex(tasks))
	if todo == nil || todo.Task.ID != 2 {
		t.Fatalf("selected %+v, want the parent task 2", todo)
	}
}

func TestSelectTodoNothingActionable(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*types.Task
	}{
		{"only root", []*types.Task{{ID: 1, Title: "root", Depth: 1}}},
		{"all completed", []*types.Task{
			{ID: 1, Title: "root", Depth: 1},
			{ID: 2, ParentID: ptr(1), Title: "done", Depth: 2, Completed: true},
		}},
		{"only unmet habits", []*types.Task{
			{ID: 1, Title: "root", Depth: 1},
			{ID: 2, ParentID: ptr(1), Title: "habit", Depth: 2, Recurring: true, Objective: 3, Counter: 1},
		}},
		{"empty tree", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if todo := SelectTodo(tasktree.NewIndex(tt.tasks)); todo != nil {
				t.Errorf("selected %+v, want nil", todo)
			}
		})
	}
}
