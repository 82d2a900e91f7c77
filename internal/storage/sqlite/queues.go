package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmgomes/nextup/internal/types"
)

// GetQueue retrieves a queue by name. Returns nil without error when no
// queue has been persisted under that name yet.
func (s *Store) GetQueue(ctx context.Context, name string) (*types.Queue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, project_ids, created_at, updated_at FROM queues WHERE name = ?
	`, name)
	q, err := scanQueue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return q, nil
}

// SaveQueue upserts a queue's project ordering under its name.
func (s *Store) SaveQueue(ctx context.Context, queue *types.Queue) error {
	if queue.Name == "" {
		return fmt.Errorf("%w: queue name is required", types.ErrValidation)
	}
	ids, err := json.Marshal(queue.ProjectIDs)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}

	now := s.clk.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queues (name, project_ids, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET project_ids = excluded.project_ids, updated_at = excluded.updated_at
	`, queue.Name, string(ids), now, now)
	if err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	if queue.ID == 0 {
		if id, err := res.LastInsertId(); err == nil {
			queue.ID = id
		}
	}
	queue.UpdatedAt = now
	return nil
}

// ListQueues returns all persisted queues ordered by name.
func (s *Store) ListQueues(ctx context.Context) ([]*types.Queue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, project_ids, created_at, updated_at FROM queues ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var queues []*types.Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue: %w", err)
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

// DeleteQueue removes a queue by name.
func (s *Store) DeleteQueue(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queues WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check queue delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("queue %q: %w", name, types.ErrNotFound)
	}
	return nil
}

func scanQueue(row rowScanner) (*types.Queue, error) {
	var q types.Queue
	var ids string
	if err := row.Scan(&q.ID, &q.Name, &ids, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &q.ProjectIDs); err != nil {
		return nil, fmt.Errorf("corrupt queue %q: %w", q.Name, err)
	}
	return &q, nil
}
