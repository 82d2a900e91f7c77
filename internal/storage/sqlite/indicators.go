package sqlite

import (
	"context"
	"fmt"

	"github.com/dmgomes/nextup/internal/types"
)

// SaveIndicators appends a batch of emotional indicator readings for a
// project. Each value must be on the 1..3 scale.
func (s *Store) SaveIndicators(ctx context.Context, projectID int64, values []types.IndicatorValue) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}
	for _, v := range values {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_emotional_indicators (project_id, indicator, value, created_at)
			VALUES (?, ?, ?, ?)
		`, projectID, v.Indicator, v.Value, now); err != nil {
			return fmt.Errorf("failed to save indicator: %w", err)
		}
	}
	return tx.Commit()
}

// LatestIndicators returns a project's most recent reading per
// indicator. Indicators never recorded are absent from the map.
func (s *Store) LatestIndicators(ctx context.Context, projectID int64) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.indicator, i.value
		FROM project_emotional_indicators i
		JOIN (
			SELECT indicator, MAX(id) AS max_id
			FROM project_emotional_indicators
			WHERE project_id = ?
			GROUP BY indicator
		) latest ON latest.max_id = i.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := make(map[int]int)
	for rows.Next() {
		var indicatorID, value int
		if err := rows.Scan(&indicatorID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		latest[indicatorID] = value
	}
	return latest, rows.Err()
}

// ProjectTaskStats counts open and closed non-recurring tasks per
// project, excluding each project's root task.
func (s *Store) ProjectTaskStats(ctx context.Context, projectIDs []int64) (map[int64]types.TaskStats, error) {
	stats := make(map[int64]types.TaskStats, len(projectIDs))
	if len(projectIDs) == 0 {
		return stats, nil
	}

	inClause, args := int64InClause(projectIDs)
	// #nosec G201 - placeholders only
	query := fmt.Sprintf(`
		SELECT project_id,
			SUM(CASE WHEN completed = 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END)
		FROM tasks
		WHERE project_id IN (%s) AND parent_id IS NOT NULL AND is_recurring = 0
		GROUP BY project_id
	`, inClause)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var projectID int64
		var ts types.TaskStats
		if err := rows.Scan(&projectID, &ts.Open, &ts.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan task stats: %w", err)
		}
		if total := ts.Open + ts.Closed; total > 0 {
			ts.Percent = int(float64(ts.Closed)/float64(total)*100 + 0.5)
		}
		stats[projectID] = ts
	}
	return stats, rows.Err()
}
