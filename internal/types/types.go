// Package types defines the core data structures shared across nextup.
package types

import (
	"fmt"
	"time"
)

// ProjectState represents the lifecycle state of a project.
type ProjectState string

const (
	ProjectActive    ProjectState = "active"
	ProjectPaused    ProjectState = "paused"
	ProjectInactive  ProjectState = "inactive"
	ProjectCompleted ProjectState = "completed"
	ProjectArchived  ProjectState = "archived"
)

// ValidProjectStates lists the accepted project states.
var ValidProjectStates = []ProjectState{
	ProjectActive, ProjectPaused, ProjectInactive, ProjectCompleted, ProjectArchived,
}

// TaskKind distinguishes ordinary tasks from vision/goal markers.
type TaskKind string

const (
	KindTask   TaskKind = "TASK"
	KindVision TaskKind = "VISION"
	KindGoal   TaskKind = "GOAL"
)

// TaskState represents whether a task is open or closed.
type TaskState string

const (
	TaskOpen   TaskState = "open"
	TaskClosed TaskState = "closed"
)

// Recurrence is the calendar cadence of a recurring task.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// DateLayout is the storage format for habit reset dates.
const DateLayout = "2006-01-02"

// Project is a top-level unit of work owning one task tree.
type Project struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	State       ProjectState `json:"state"`
	HabitsOrder int          `json:"habits_order"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Validate checks project fields before persistence.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: project name is required", ErrValidation)
	}
	for _, s := range ValidProjectStates {
		if p.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid project state %q", ErrValidation, p.State)
}

// Task is one node in a project's task tree. The root task has a nil
// ParentID and depth 1; every other task's depth is parent depth + 1.
type Task struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	ParentID  *int64    `json:"parent_id"`
	Title     string    `json:"title"`
	Kind      TaskKind  `json:"type"`
	Completed bool      `json:"completed"`
	State     TaskState `json:"state"`
	Position  int       `json:"position"`
	Depth     int       `json:"depth"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	Recurring   bool       `json:"is_recurring"`
	Recurrence  Recurrence `json:"recurrence_type,omitempty"`
	Objective   int        `json:"objective,omitempty"`
	Counter     int        `json:"current_counter"`
	LastReset   string     `json:"last_reset,omitempty"` // DateLayout, empty = never reset
	HabitsOrder int        `json:"habits_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Root reports whether this is the project's root task.
func (t *Task) Root() bool {
	return t.ParentID == nil
}

// Done reports the effective completion state: the completed flag for
// ordinary tasks, counter >= objective for recurring ones.
func (t *Task) Done() bool {
	if t.Recurring {
		return t.Objective > 0 && t.Counter >= t.Objective
	}
	return t.Completed
}

// Validate checks task fields before persistence.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	switch t.Kind {
	case KindTask, KindVision, KindGoal:
	default:
		return fmt.Errorf("%w: invalid task kind %q", ErrValidation, t.Kind)
	}
	switch t.State {
	case TaskOpen, TaskClosed:
	default:
		return fmt.Errorf("%w: invalid task state %q", ErrValidation, t.State)
	}
	if t.Recurring {
		switch t.Recurrence {
		case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		default:
			return fmt.Errorf("%w: recurring task requires recurrence_type (daily, weekly or monthly)", ErrValidation)
		}
		if t.Objective <= 0 {
			return fmt.Errorf("%w: recurring task requires a positive objective", ErrValidation)
		}
	}
	return nil
}

// TaskPatch is a partial update for a task. Nil fields are left untouched.
// Close/reopen side effects are driven by value transitions, not by which
// fields the caller happened to set.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Kind        *TaskKind  `json:"type,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	State       *TaskState `json:"state,omitempty"`
	Position    *int       `json:"position,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Objective   *int       `json:"objective,omitempty"`
	HabitsOrder *int       `json:"habits_order,omitempty"`
}

// HabitLog is one immutable record of habit progress: either the counter
// reached at a period boundary, or 1 for a single manual increment.
type HabitLog struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"task_id"`
	Date         time.Time `json:"date"`
	CounterValue int       `json:"counter_value"`
	Objective    int       `json:"objective"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one continuous focus interval on a project. EndedAt is nil
// while the session is still running.
type Session struct {
	ID        string     `json:"id"`
	ProjectID int64      `json:"project_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Queue is a named, persisted ordering of project ids.
type Queue struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ProjectIDs []int64   `json:"project_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Emotional indicator identifiers for the fixed three-question instrument.
const (
	IndicatorCalmer     = 1
	IndicatorProgressed = 2
	IndicatorMotivated  = 3
)

// IndicatorValue is one answer (1-3) to one of the three indicators.
type IndicatorValue struct {
	Indicator int `json:"indicator"`
	Value     int `json:"value"`
}

// Validate checks that both the indicator and its value are in range.
func (iv IndicatorValue) Validate() error {
	if iv.Indicator < IndicatorCalmer || iv.Indicator > IndicatorMotivated {
		return fmt.Errorf("%w: indicator must be 1, 2 or 3", ErrValidation)
	}
	if iv.Value < 1 || iv.Value > 3 {
		return fmt.Errorf("%w: indicator value must be 1, 2 or 3", ErrValidation)
	}
	return nil
}

// TaskStats aggregates non-recurring task counts for one project.
type TaskStats struct {
	Open    int `json:"open"`
	Closed  int `json:"closed"`
	Percent int `json:"percent"`
}

// TimeStats aggregates completed session hours for one project.
type TimeStats struct {
	Today float64 `json:"time_today"`
	Week  float64 `json:"time_week"`
	Month float64 `json:"time_month"`
	Total float64 `json:"time_total"`
}

// TaskNode is a task with its rolled-up subtree, as returned by the task
// tree read operation.
type TaskNode struct {
	Task
	PercentClosed int         `json:"percent_closed"`
	Subtasks      []*TaskNode `json:"subtasks"`
}
