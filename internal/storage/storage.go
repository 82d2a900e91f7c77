// Package storage defines the persistence interface consumed by the
// scheduling engine. Implementations must make the multi-statement
// structural operations (recursive delete/close, reparent, habit reset)
// atomic: a failed operation leaves no partial writes behind.
package storage

import (
	"context"
	"time"

	"github.com/dmgomes/nextup/internal/types"
)

// Storage is the persistence boundary for all nextup state.
type Storage interface {
	// Projects. CreateProject also creates the project's root task (same
	// title, depth 1) in the same transaction.
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	ListProjects(ctx context.Context, state types.ProjectState) ([]*types.Project, error)
	UpdateProject(ctx context.Context, id int64, name *string, state *types.ProjectState) error
	// DeleteProject removes the project with its tasks, sessions and
	// emotional indicators in one transaction.
	DeleteProject(ctx context.Context, id int64) error
	SetHabitsProjectOrder(ctx context.Context, projectIDs []int64) error

	// Tasks.
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id int64) (*types.Task, error)
	ListProjectTasks(ctx context.Context, projectID int64) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id int64, patch types.TaskPatch) error
	ReparentTask(ctx context.Context, id int64, newParentID *int64) error
	DeleteTaskRecursive(ctx context.Context, id int64) ([]int64, error)
	CloseTaskRecursive(ctx context.Context, id int64) (int, error)

	// Habits.
	IncrementHabit(ctx context.Context, id int64) (*types.Task, error)
	// ResetHabit zeroes the counter and stamps last_reset with today. When
	// the task had a previous reset date and a positive counter, the prior
	// counter value is logged first, in the same transaction.
	ResetHabit(ctx context.Context, id int64, today string) error
	ListRecurringTasks(ctx context.Context, projectID int64) ([]*types.Task, error)
	SetHabitsTaskOrder(ctx context.Context, projectID int64, taskIDs []int64) error
	ListHabitLogs(ctx context.Context, taskID int64, since time.Time) ([]*types.HabitLog, error)

	// Sessions.
	StartSession(ctx context.Context, projectID int64, startedAt time.Time) (*types.Session, error)
	EndSession(ctx context.Context, id string, endedAt time.Time) error
	ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error)
	// LastSessionEnds returns, per project, the latest ended_at among
	// completed sessions. Projects with no completed session are absent.
	LastSessionEnds(ctx context.Context, projectIDs []int64) (map[int64]time.Time, error)
	SessionTimeStats(ctx context.Context, projectIDs []int64, now time.Time) (map[int64]types.TimeStats, error)

	// Queues.
	GetQueue(ctx context.Context, name string) (*types.Queue, error)
	SaveQueue(ctx context.Context, queue *types.Queue) error
	ListQueues(ctx context.Context) ([]*types.Queue, error)
	DeleteQueue(ctx context.Context, name string) error

	// Emotional indicators.
	SaveIndicators(ctx context.Context, projectID int64, values []types.IndicatorValue) error
	LatestIndicators(ctx context.Context, projectID int64) (map[int]int, error)

	// Aggregates over non-recurring tasks.
	ProjectTaskStats(ctx context.Context, projectIDs []int64) (map[int64]types.TaskStats, error)

	Close() error
}
