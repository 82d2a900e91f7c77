package scheduler

import (
	"strings"

	"github.com/dmgomes/nextup/internal/tasktree"
	"github.com/dmgomes/nextup/internal/types"
)

// Todo is one actionable task picked from a project's tree, with the
// ancestor titles between the project root and the task joined into a
// display breadcrumb.
type Todo struct {
	Task       *types.Task `json:"task"`
	Breadcrumb string      `json:"breadcrumb"`
}

// SelectTodo walks a project's task tree and returns the next task to
// work on: the shallowest, left-most open non-recurring task with no
// remaining open work beneath it. Siblings are visited in position
// order. Returns nil when the project has nothing actionable — the root
// itself is never selected.
func SelectTodo(ix *tasktree.Index) *Todo {
	root := ix.Root()
	if root == nil {
		return nil
	}
	return selectFrom(ix, root.ID, nil)
}

func selectFrom(ix *tasktree.Index, parentID int64, trail []string) *Todo {
	for _, task := range ix.Children(parentID) {
		if task.Recurring || task.Done() {
			continue
		}
		if subtasksDone(ix, task.ID) {
			return &Todo{Task: task, Breadcrumb: strings.Join(trail, " → ")}
		}
		if todo := selectFrom(ix, task.ID, append(trail, task.Title)); todo != nil {
			return todo
		}
	}
	return nil
}

func subtasksDone(ix *tasktree.Index, id int64) bool {
	for _, sub := range ix.Children(id) {
		if !sub.Done() {
			return false
		}
	}
	return true
}
