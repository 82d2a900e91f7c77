package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmgomes/nextup/internal/types"
)

// IncrementHabit adds one completion to a recurring task's counter and
// records a habit log entry for it. Returns the updated task.
func (s *Store) IncrementHabit(ctx context.Context, id int64) (*types.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.Recurring {
		return nil, fmt.Errorf("%w: task %d is not recurring", types.ErrValidation, id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET current_counter = current_counter + 1, updated_at = ? WHERE id = ?
	`, now, id); err != nil {
		return nil, fmt.Errorf("failed to increment habit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO habit_logs (task_id, date, counter_value, objective, created_at)
		VALUES (?, ?, 1, ?, ?)
	`, id, now, task.Objective, now); err != nil {
		return nil, fmt.Errorf("failed to log habit completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	task.Counter++
	task.UpdatedAt = now
	return task, nil
}

// ResetHabit archives the counter accumulated over the previous period
// and starts a fresh one stamped with today's date. Resetting an
// already-reset habit is a no-op on the log: a zero counter leaves
// nothing to archive.
func (s *Store) ResetHabit(ctx context.Context, id int64, today string) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !task.Recurring {
		return fmt.Errorf("%w: task %d is not recurring", types.ErrValidation, id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	if task.LastReset != "" && task.Counter > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO habit_logs (task_id, date, counter_value, objective, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, now, task.Counter, task.Objective, now); err != nil {
			return fmt.Errorf("failed to archive habit counter: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET current_counter = 0, last_reset = ?, updated_at = ? WHERE id = ?
	`, today, now, id); err != nil {
		return fmt.Errorf("failed to reset habit: %w", err)
	}

	return tx.Commit()
}

// ListRecurringTasks returns a project's recurring tasks in habit
// display order. A zero projectID returns recurring tasks across all
// projects, ordered by their project's habit order first.
func (s *Store) ListRecurringTasks(ctx context.Context, projectID int64) ([]*types.Task, error) {
	var rows *sql.Rows
	var err error
	if projectID != 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE project_id = ? AND is_recurring = 1
			ORDER BY habits_order ASC, id ASC
		`, projectID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT t.id, t.project_id, t.parent_id, t.title, t.type, t.completed, t.state,
				t.position, t.depth, t.closed_at, t.is_recurring, t.recurrence_type, t.objective,
				t.current_counter, t.last_reset, t.habits_order, t.created_at, t.updated_at
			FROM tasks t
			JOIN projects p ON p.id = t.project_id
			WHERE t.is_recurring = 1 AND p.state = 'active'
			ORDER BY p.habits_order ASC, p.id ASC, t.habits_order ASC, t.id ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring tasks: %w", err)
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

// SetHabitsTaskOrder persists a new habit display order within one
// project, assigning each task its index in the given slice.
func (s *Store) SetHabitsTaskOrder(ctx context.Context, projectID int64, taskIDs []int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	for i, id := range taskIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET habits_order = ?, updated_at = ? WHERE id = ? AND project_id = ?
		`, i, now, id, projectID); err != nil {
			return fmt.Errorf("failed to reorder habit %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListHabitLogs returns a task's habit log entries at or after since,
// newest first.
func (s *Store) ListHabitLogs(ctx context.Context, taskID int64, since time.Time) ([]*types.HabitLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, date, counter_value, objective, created_at FROM habit_logs
		WHERE task_id = ? AND date >= ?
		ORDER BY date DESC, id DESC
	`, taskID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list habit logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*types.HabitLog
	for rows.Next() {
		var l types.HabitLog
		var objective sql.NullInt64
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Date, &l.CounterValue, &objective, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan habit log: %w", err)
		}
		if objective.Valid {
			l.Objective = int(objective.Int64)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
