package tasktree

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dmgomes/nextup/internal/types"
)

func pid(id int64) *int64 { return &id }

// tree builds the shared fixture:
//
//	1 root
//	├── 2 (pos 0)
//	│   ├── 4
//	│   └── 5
//	└── 3 (pos 1)
//	    └── 6
func testTasks() []*types.Task {
	return []*types.Task{
		{ID: 1, ProjectID: 10, Title: "root", Kind: types.KindTask, State: types.TaskOpen, Depth: 1},
		{ID: 2, ProjectID: 10, ParentID: pid(1), Title: "a", Kind: types.KindTask, State: types.TaskOpen, Depth: 2, Position: 0},
		{ID: 3, ProjectID: 10, ParentID: pid(1), Title: "b", Kind: types.KindTask, State: types.TaskOpen, Depth: 2, Position: 1},
		{ID: 4, ProjectID: 10, ParentID: pid(2), Title: "a1", Kind: types.KindTask, State: types.TaskOpen, Depth: 3, Position: 0},
		{ID: 5, ProjectID: 10, ParentID: pid(2), Title: "a2", Kind: types.KindTask, State: types.TaskOpen, Depth: 3, Position: 1},
		{ID: 6, ProjectID: 10, ParentID: pid(3), Title: "b1", Kind: types.KindTask, State: types.TaskOpen, Depth: 3, Position: 0},
	}
}

func TestDescendants(t *testing.T) {
	ix := NewIndex(testTasks())

	got := ix.Descendants(2)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{4, 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Descendants(2) mismatch (-want +got):\n%s", diff)
	}

	got = ix.Descendants(1)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want = []int64{2, 3, 4, 5, 6}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Descendants(1) mismatch (-want +got):\n%s", diff)
	}

	if got := ix.Descendants(6); len(got) != 0 {
		t.Errorf("Descendants(6) = %v, want empty", got)
	}
}

func TestIsDescendant(t *testing.T) {
	ix := NewIndex(testTasks())

	if !ix.IsDescendant(4, 1) {
		t.Error("4 should be a descendant of 1")
	}
	if !ix.IsDescendant(4, 2) {
		t.Error("4 should be a descendant of 2")
	}
	if ix.IsDescendant(4, 3) {
		t.Error("4 is not a descendant of 3")
	}
	if ix.IsDescendant(2, 2) {
		t.Error("a task is not its own descendant")
	}
	if ix.IsDescendant(1, 4) {
		t.Error("ancestry must not be inverted")
	}
}

func TestChildrenOrderedByPosition(t *testing.T) {
	tasks := testTasks()
	// Surface task 3 before task 2.
	tasks[2].Position = -1
	ix := NewIndex(tasks)

	kids := ix.Children(1)
	if len(kids) != 2 || kids[0].ID != 3 || kids[1].ID != 2 {
		t.Errorf("Children(1) order = %v, want [3 2]", []int64{kids[0].ID, kids[1].ID})
	}
}

func TestBuildRollup(t *testing.T) {
	tasks := testTasks()
	// Close 4 and make 5 a finished habit: both direct subtasks of 2 done.
	tasks[3].Completed = true
	tasks[3].State = types.TaskClosed
	tasks[4].Recurring = true
	tasks[4].Recurrence = types.RecurrenceDaily
	tasks[4].Objective = 2
	tasks[4].Counter = 2

	ix := NewIndex(tasks)
	tree := ix.Build(1)
	if tree == nil {
		t.Fatal("Build(1) = nil")
	}

	a := tree.Subtasks[0]
	if a.ID != 2 {
		t.Fatalf("first child = %d, want 2", a.ID)
	}
	// Task 2: itself open + two done subtasks -> 2/3 -> 67%.
	if a.PercentClosed != 67 {
		t.Errorf("task 2 percent = %d, want 67", a.PercentClosed)
	}

	// Habit 5: counter at objective -> 100%.
	if a.Subtasks[1].PercentClosed != 100 {
		t.Errorf("habit percent = %d, want 100", a.Subtasks[1].PercentClosed)
	}

	// Root: subtasks 2 (not done) and 3 (not done) plus itself -> 0/3.
	if tree.PercentClosed != 0 {
		t.Errorf("root percent = %d, want 0", tree.PercentClosed)
	}
}

func TestBuildSubtree(t *testing.T) {
	ix := NewIndex(testTasks())
	sub := ix.Build(2)
	if sub == nil || sub.ID != 2 {
		t.Fatal("Build(2) did not return subtree rooted at 2")
	}
	if len(sub.Subtasks) != 2 {
		t.Errorf("subtree children = %d, want 2", len(sub.Subtasks))
	}
	if ix.Build(99) != nil {
		t.Error("Build(99) should return nil for unknown id")
	}
}

func TestHabitPercentUncapped(t *testing.T) {
	tasks := []*types.Task{
		{ID: 1, Title: "root", Kind: types.KindTask, State: types.TaskOpen, Depth: 1},
		{ID: 2, ParentID: pid(1), Title: "run", Kind: types.KindTask, State: types.TaskOpen, Depth: 2,
			Recurring: true, Recurrence: types.RecurrenceWeekly, Objective: 2, Counter: 5},
	}
	ix := NewIndex(tasks)
	tree := ix.Build(1)
	if got := tree.Subtasks[0].PercentClosed; got != 250 {
		t.Errorf("over-achieved habit percent = %d, want 250", got)
	}
}

func TestFlatten(t *testing.T) {
	ix := NewIndex(testTasks())
	nodes := Flatten(ix.Build(1))
	var ids []int64
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	want := []int64{1, 2, 4, 5, 3, 6}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Flatten order mismatch (-want +got):\n%s", diff)
	}
}
