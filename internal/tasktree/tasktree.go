// Package tasktree holds the pure, in-memory logic for one project's task
// hierarchy: a parent-indexed adjacency structure, transitive descendant
// collection, depth arithmetic for reparenting, and construction of the
// rolled-up tree returned to callers.
//
// The index is built once per operation from the project's full task list
// and then traversed by parent id, so structural operations never rescan
// the flat list per recursion level.
package tasktree

import (
	"math"
	"sort"

	"github.com/dmgomes/nextup/internal/types"
)

// Index is an adjacency view over one project's tasks.
type Index struct {
	byID     map[int64]*types.Task
	children map[int64][]*types.Task
	root     *types.Task
}

// NewIndex builds the adjacency index. Children are ordered by position
// (lower first), ties broken by id for determinism.
func NewIndex(tasks []*types.Task) *Index {
	ix := &Index{
		byID:     make(map[int64]*types.Task, len(tasks)),
		children: make(map[int64][]*types.Task),
	}
	for _, t := range tasks {
		ix.byID[t.ID] = t
		if t.ParentID == nil {
			ix.root = t
		} else {
			ix.children[*t.ParentID] = append(ix.children[*t.ParentID], t)
		}
	}
	for _, siblings := range ix.children {
		sort.SliceStable(siblings, func(i, j int) bool {
			if siblings[i].Position != siblings[j].Position {
				return siblings[i].Position < siblings[j].Position
			}
			return siblings[i].ID < siblings[j].ID
		})
	}
	return ix
}

// Task returns the task with the given id, or nil.
func (ix *Index) Task(id int64) *types.Task {
	return ix.byID[id]
}

// Root returns the project's root task, or nil if the list had none.
func (ix *Index) Root() *types.Task {
	return ix.root
}

// Children returns the direct children of id, ordered by position.
func (ix *Index) Children(id int64) []*types.Task {
	return ix.children[id]
}

// Descendants returns the ids of every transitive child of id, not
// including id itself.
func (ix *Index) Descendants(id int64) []int64 {
	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range ix.children[cur] {
			out = append(out, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return out
}

// IsDescendant reports whether candidate lies in the subtree rooted at
// ancestor (candidate == ancestor does not count).
func (ix *Index) IsDescendant(candidate, ancestor int64) bool {
	for _, id := range ix.Descendants(ancestor) {
		if id == candidate {
			return true
		}
	}
	return false
}

// Build assembles the rolled-up tree for the subtree rooted at rootID.
// Returns nil if rootID is unknown.
func (ix *Index) Build(rootID int64) *types.TaskNode {
	root := ix.byID[rootID]
	if root == nil {
		return nil
	}
	return ix.buildNode(root)
}

func (ix *Index) buildNode(t *types.Task) *types.TaskNode {
	node := &types.TaskNode{Task: *t}
	for _, child := range ix.children[t.ID] {
		node.Subtasks = append(node.Subtasks, ix.buildNode(child))
	}
	node.PercentClosed = rollupPercent(t, node.Subtasks)
	return node
}

// rollupPercent computes the display completion percentage. A recurring
// task reports counter/objective (uncapped, so over-achieving shows as
// >100). A plain task reports closed count over {itself + direct
// subtasks}, where a recurring subtask counts as closed once its counter
// reached its objective.
func rollupPercent(t *types.Task, subtasks []*types.TaskNode) int {
	if t.Recurring {
		if t.Objective <= 0 {
			return 0
		}
		return int(math.Round(float64(t.Counter) / float64(t.Objective) * 100))
	}
	total := len(subtasks) + 1
	closed := 0
	for _, st := range subtasks {
		if st.Task.Done() {
			closed++
		}
	}
	if t.Completed {
		closed++
	}
	return int(math.Round(float64(closed) / float64(total) * 100))
}

// Flatten returns every node of the tree in depth-first order.
func Flatten(node *types.TaskNode) []*types.TaskNode {
	if node == nil {
		return nil
	}
	out := []*types.TaskNode{node}
	for _, st := range node.Subtasks {
		out = append(out, Flatten(st)...)
	}
	return out
}
