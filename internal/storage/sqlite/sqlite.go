// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/types"
)

// Store implements the storage.Storage interface on SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	clk    clock.Clock
	closed atomic.Bool
}

// setupWASMCache configures WASM compilation caching so the embedded
// SQLite build is compiled once and reloaded from ~/.cache/nextup/wasm/
// on subsequent starts. Falls back to an in-memory cache if the
// directory cannot be created.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "nextup", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// New opens (and if necessary initializes) a nextup SQLite database.
func New(path string) (*Store, error) {
	return NewWithClock(path, clock.System{})
}

// NewWithClock is New with an explicit time source, so row timestamps
// (created_at, closed_at, habit log dates) are deterministic under test.
func NewWithClock(path string, clk clock.Clock) (*Store, error) {
	// For :memory: databases, use a named shared-cache database so every
	// pooled connection sees the same data. WAL does not work for shared
	// in-memory databases, so those use DELETE journaling.
	var connStr string
	switch {
	case path == ":memory:":
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
		}
	default:
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases are per-connection by default; force a single
	// connection so the pool cannot split state.
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &Store{db: db, dbPath: absPath, clk: clk}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

// Path returns the path this store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// IsClosed reports whether Close has been called.
func (s *Store) IsClosed() bool {
	return s.closed.Load()
}

// begin starts a transaction that rolls back unless committed.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateProject inserts the project and its root task atomically. The
// root task carries the project's name and depth 1.
func (s *Store) CreateProject(ctx context.Context, project *types.Project) error {
	if project.State == "" {
		project.State = types.ProjectActive
	}
	if err := project.Validate(); err != nil {
		return err
	}

	now := s.clk.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO projects (name, state, habits_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, project.Name, project.State, project.HabitsOrder, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project id: %w", err)
	}
	project.ID = id

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (project_id, parent_id, title, type, completed, state, position, depth, created_at, updated_at)
		VALUES (?, NULL, ?, ?, 0, 'open', 0, 1, ?, ?)
	`, id, project.Name, types.KindTask, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert root task: %w", err)
	}

	return tx.Commit()
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	var p types.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, state, habits_order, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.State, &p.HabitsOrder, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns projects, optionally filtered by state.
func (s *Store) ListProjects(ctx context.Context, state types.ProjectState) ([]*types.Project, error) {
	query := `SELECT id, name, state, habits_order, created_at, updated_at FROM projects`
	args := []interface{}{}
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, state)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.State, &p.HabitsOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// UpdateProject updates the name and/or state of a project.
func (s *Store) UpdateProject(ctx context.Context, id int64, name *string, state *types.ProjectState) error {
	setClauses := []string{"updated_at = ?"}
	args := []interface{}{s.clk.Now().UTC()}

	if name != nil {
		if *name == "" {
			return fmt.Errorf("%w: project name is required", types.ErrValidation)
		}
		setClauses = append(setClauses, "name = ?")
		args = append(args, *name)
	}
	if state != nil {
		p := types.Project{Name: "x", State: *state}
		if err := p.Validate(); err != nil {
			return err
		}
		setClauses = append(setClauses, "state = ?")
		args = append(args, *state)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - controlled column names
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project and everything hanging off it.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Self-referencing parent FK: clear it before deleting the rows.
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET parent_id = NULL WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_sessions WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_emotional_indicators WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete indicators: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, types.ErrNotFound)
	}

	return tx.Commit()
}

// SetHabitsProjectOrder persists the habits-view ordering of projects:
// each project's habits_order becomes its index in projectIDs.
func (s *Store) SetHabitsProjectOrder(ctx context.Context, projectIDs []int64) error {
	if len(projectIDs) == 0 {
		return fmt.Errorf("%w: project ids are required", types.ErrValidation)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()
	for i, id := range projectIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET habits_order = ?, updated_at = ? WHERE id = ?
		`, i, now, id); err != nil {
			return fmt.Errorf("failed to update habits order: %w", err)
		}
	}
	return tx.Commit()
}
