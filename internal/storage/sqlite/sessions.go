package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmgomes/nextup/internal/types"
)

// StartSession opens a new work session for a project.
func (s *Store) StartSession(ctx context.Context, projectID int64, startedAt time.Time) (*types.Session, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	session := &types.Session{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		StartedAt: startedAt.UTC(),
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO project_sessions (id, project_id, started_at) VALUES (?, ?, ?)
	`, session.ID, session.ProjectID, session.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return session, nil
}

// EndSession stamps an open session's end time.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE project_sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, endedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("open session %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListSessions returns a project's sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, started_at, ended_at FROM project_sessions
		WHERE project_id = ?
		ORDER BY started_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*types.Session
	for rows.Next() {
		var sess types.Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if ended.Valid {
			sess.EndedAt = &ended.Time
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// LastSessionEnds returns, per project, the end time of its most
// recently finished session. Projects with no finished session are
// absent from the map.
func (s *Store) LastSessionEnds(ctx context.Context, projectIDs []int64) (map[int64]time.Time, error) {
	ends := make(map[int64]time.Time, len(projectIDs))
	if len(projectIDs) == 0 {
		return ends, nil
	}

	inClause, args := int64InClause(projectIDs)
	// #nosec G201 - placeholders only
	query := fmt.Sprintf(`
		SELECT project_id, MAX(ended_at) FROM project_sessions
		WHERE project_id IN (%s) AND ended_at IS NOT NULL
		GROUP BY project_id
	`, inClause)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var projectID int64
		var ended time.Time
		if err := rows.Scan(&projectID, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan last session: %w", err)
		}
		ends[projectID] = ended
	}
	return ends, rows.Err()
}

// SessionTimeStats aggregates finished session hours per project for
// today, the current calendar week (Monday start), the current month,
// and all time, relative to now.
func (s *Store) SessionTimeStats(ctx context.Context, projectIDs []int64, now time.Time) (map[int64]types.TimeStats, error) {
	stats := make(map[int64]types.TimeStats, len(projectIDs))
	if len(projectIDs) == 0 {
		return stats, nil
	}

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	weekStart := dayStart.AddDate(0, 0, -(weekday - 1))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	inClause, args := int64InClause(projectIDs)
	args = append([]interface{}{dayStart, weekStart, monthStart}, args...)
	// #nosec G201 - placeholders only
	query := fmt.Sprintf(`
		SELECT project_id,
			SUM(CASE WHEN started_at >= ? THEN julianday(ended_at) - julianday(started_at) ELSE 0 END) * 24,
			SUM(CASE WHEN started_at >= ? THEN julianday(ended_at) - julianday(started_at) ELSE 0 END) * 24,
			SUM(CASE WHEN started_at >= ? THEN julianday(ended_at) - julianday(started_at) ELSE 0 END) * 24,
			SUM(julianday(ended_at) - julianday(started_at)) * 24
		FROM project_sessions
		WHERE project_id IN (%s) AND ended_at IS NOT NULL
		GROUP BY project_id
	`, inClause)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var projectID int64
		var ts types.TimeStats
		if err := rows.Scan(&projectID, &ts.Today, &ts.Week, &ts.Month, &ts.Total); err != nil {
			return nil, fmt.Errorf("failed to scan session stats: %w", err)
		}
		stats[projectID] = ts
	}
	return stats, rows.Err()
}
