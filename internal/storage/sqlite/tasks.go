package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmgomes/nextup/internal/tasktree"
	"github.com/dmgomes/nextup/internal/types"
)

const taskColumns = `id, project_id, parent_id, title, type, completed, state, position, depth,
	closed_at, is_recurring, recurrence_type, objective, current_counter, last_reset,
	habits_order, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var parentID sql.NullInt64
	var closedAt sql.NullTime
	var recurrence sql.NullString
	var objective, counter sql.NullInt64
	var lastReset sql.NullString

	err := row.Scan(
		&t.ID, &t.ProjectID, &parentID, &t.Title, &t.Kind, &t.Completed, &t.State,
		&t.Position, &t.Depth, &closedAt, &t.Recurring, &recurrence, &objective,
		&counter, &lastReset, &t.HabitsOrder, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if closedAt.Valid {
		t.ClosedAt = &closedAt.Time
	}
	if recurrence.Valid {
		t.Recurrence = types.Recurrence(recurrence.String)
	}
	if objective.Valid {
		t.Objective = int(objective.Int64)
	}
	if counter.Valid {
		t.Counter = int(counter.Int64)
	}
	if lastReset.Valid {
		t.LastReset = lastReset.String
	}
	return &t, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListProjectTasks returns every task of a project ordered by position.
func (s *Store) ListProjectTasks(ctx context.Context, projectID int64) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY position ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a task. The parent, when given, must exist in the
// same project. New tasks are positioned before all current siblings so
// they surface first.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if task.Kind == "" {
		task.Kind = types.KindTask
	}
	if task.State == "" {
		task.State = types.TaskOpen
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ProjectID == 0 {
		return fmt.Errorf("%w: project id is required", types.ErrValidation)
	}

	now := s.clk.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	task.Depth = 1
	if task.ParentID != nil {
		var parentProject int64
		var parentDepth int
		err := tx.QueryRowContext(ctx, `SELECT project_id, depth FROM tasks WHERE id = ?`, *task.ParentID).
			Scan(&parentProject, &parentDepth)
		if err == sql.ErrNoRows {
			return fmt.Errorf("parent task %d: %w", *task.ParentID, types.ErrInvalidParent)
		}
		if err != nil {
			return fmt.Errorf("failed to get parent task: %w", err)
		}
		if parentProject != task.ProjectID {
			return fmt.Errorf("parent task %d belongs to project %d: %w", *task.ParentID, parentProject, types.ErrInvalidParent)
		}
		task.Depth = parentDepth + 1
	}

	// New tasks sort before all current siblings.
	var minPos sql.NullInt64
	if task.ParentID != nil {
		err = tx.QueryRowContext(ctx, `
			SELECT MIN(position) FROM tasks WHERE project_id = ? AND parent_id = ?
		`, task.ProjectID, *task.ParentID).Scan(&minPos)
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT MIN(position) FROM tasks WHERE project_id = ? AND parent_id IS NULL
		`, task.ProjectID).Scan(&minPos)
	}
	if err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}
	task.Position = 0
	if minPos.Valid {
		task.Position = int(minPos.Int64) - 1
	}

	var parentArg interface{}
	if task.ParentID != nil {
		parentArg = *task.ParentID
	}
	var recurrenceArg, lastResetArg interface{}
	var objectiveArg, counterArg interface{}
	if task.Recurring {
		recurrenceArg = string(task.Recurrence)
		objectiveArg = task.Objective
		task.Counter = 0
		counterArg = 0
		if task.LastReset == "" {
			task.LastReset = now.Format(types.DateLayout)
		}
		lastResetArg = task.LastReset
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (project_id, parent_id, title, type, completed, state, position, depth,
			is_recurring, recurrence_type, objective, current_counter, last_reset, habits_order,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ProjectID, parentArg, task.Title, task.Kind, task.Completed, task.State,
		task.Position, task.Depth, task.Recurring, recurrenceArg, objectiveArg,
		counterArg, lastResetArg, task.HabitsOrder, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get task id: %w", err)
	}
	task.ID = id

	return tx.Commit()
}

// UpdateTask applies a partial update. For non-recurring tasks the close
// and reopen side effects fire on value transitions: completing an open
// task stamps closed_at and closes its state unless the caller supplied
// those fields, and reopening a closed task clears them.
func (s *Store) UpdateTask(ctx context.Context, id int64, patch types.TaskPatch) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.clk.Now().UTC()
	setClauses := []string{"updated_at = ?"}
	args := []interface{}{now}

	set := func(col string, val interface{}) {
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return fmt.Errorf("%w: task title is required", types.ErrValidation)
		}
		set("title", *patch.Title)
	}
	if patch.Kind != nil {
		switch *patch.Kind {
		case types.KindTask, types.KindVision, types.KindGoal:
		default:
			return fmt.Errorf("%w: invalid task kind %q", types.ErrValidation, *patch.Kind)
		}
		set("type", *patch.Kind)
	}
	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}
	if patch.State != nil {
		switch *patch.State {
		case types.TaskOpen, types.TaskClosed:
		default:
			return fmt.Errorf("%w: invalid task state %q", types.ErrValidation, *patch.State)
		}
		set("state", *patch.State)
	}
	if patch.Position != nil {
		set("position", *patch.Position)
	}
	if patch.ClosedAt != nil {
		set("closed_at", *patch.ClosedAt)
	}
	if patch.Objective != nil {
		if task.Recurring && *patch.Objective <= 0 {
			return fmt.Errorf("%w: recurring task requires a positive objective", types.ErrValidation)
		}
		set("objective", *patch.Objective)
	}
	if patch.HabitsOrder != nil {
		set("habits_order", *patch.HabitsOrder)
	}

	// Close/reopen transitions apply only to non-recurring tasks; habit
	// completion is governed by the counter alone.
	if !task.Recurring {
		willClose := (patch.Completed != nil && !task.Completed && *patch.Completed) ||
			(patch.State != nil && task.State != types.TaskClosed && *patch.State == types.TaskClosed)
		willReopen := (patch.Completed != nil && task.Completed && !*patch.Completed) ||
			(patch.State != nil && task.State == types.TaskClosed && *patch.State != types.TaskClosed)

		if willClose {
			if patch.ClosedAt == nil {
				set("closed_at", now)
			}
			if patch.State == nil {
				set("state", types.TaskClosed)
			}
			if patch.Completed == nil {
				set("completed", true)
			}
		} else if willReopen {
			if patch.ClosedAt == nil {
				set("closed_at", nil)
			}
			if patch.State == nil {
				set("state", types.TaskOpen)
			}
			if patch.Completed == nil {
				set("completed", false)
			}
		}
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - controlled column names
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// ReparentTask moves a task under a new parent, shifting the depth of
// the whole subtree by the same delta in one transaction.
func (s *Store) ReparentTask(ctx context.Context, id int64, newParentID *int64) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if newParentID != nil && *newParentID == id {
		return fmt.Errorf("task %d: %w", id, types.ErrSelfParent)
	}

	all, err := s.ListProjectTasks(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	ix := tasktree.NewIndex(all)

	newDepth := 1
	if newParentID != nil {
		parent := ix.Task(*newParentID)
		if parent == nil {
			return fmt.Errorf("parent task %d: %w", *newParentID, types.ErrInvalidParent)
		}
		if ix.IsDescendant(*newParentID, id) {
			return fmt.Errorf("task %d into %d: %w", id, *newParentID, types.ErrCyclicMove)
		}
		newDepth = parent.Depth + 1
	}
	depthDelta := newDepth - task.Depth
	descendants := ix.Descendants(id)

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	var parentArg interface{}
	if newParentID != nil {
		parentArg = *newParentID
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET parent_id = ?, depth = ?, updated_at = ? WHERE id = ?
	`, parentArg, newDepth, now, id); err != nil {
		return fmt.Errorf("failed to reparent task: %w", err)
	}

	if depthDelta != 0 && len(descendants) > 0 {
		inClause, args := int64InClause(descendants)
		args = append([]interface{}{depthDelta, now}, args...)
		// #nosec G201 - placeholders only
		query := fmt.Sprintf(`UPDATE tasks SET depth = depth + ?, updated_at = ? WHERE id IN (%s)`, inClause)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to shift subtree depth: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteTaskRecursive deletes a task and its whole subtree, returning
// the deleted ids. The project root cannot be deleted.
func (s *Store) DeleteTaskRecursive(ctx context.Context, id int64) ([]int64, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Root() {
		return nil, fmt.Errorf("task %d: %w", id, types.ErrRootDeletion)
	}

	all, err := s.ListProjectTasks(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	ids := append(tasktree.NewIndex(all).Descendants(id), id)

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	inClause, args := int64InClause(ids)
	// Detach first: rows inside the subtree reference each other.
	// #nosec G201 - placeholders only
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET parent_id = NULL WHERE id IN (%s)`, inClause), args...); err != nil {
		return nil, fmt.Errorf("failed to detach subtree: %w", err)
	}
	// #nosec G201 - placeholders only
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM tasks WHERE id IN (%s)`, inClause), args...); err != nil {
		return nil, fmt.Errorf("failed to delete subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CloseTaskRecursive closes a task and its whole subtree with a single
// shared closed_at timestamp. Returns the number of tasks closed.
func (s *Store) CloseTaskRecursive(ctx context.Context, id int64) (int, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}

	all, err := s.ListProjectTasks(ctx, task.ProjectID)
	if err != nil {
		return 0, err
	}
	ids := append(tasktree.NewIndex(all).Descendants(id), id)

	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	inClause, args := int64InClause(ids)
	args = append([]interface{}{now, now}, args...)
	// #nosec G201 - placeholders only
	query := fmt.Sprintf(`
		UPDATE tasks SET completed = 1, state = 'closed', closed_at = ?, updated_at = ?
		WHERE id IN (%s)
	`, inClause)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to close subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func int64InClause(ids []int64) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
