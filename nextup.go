// Package nextup provides a minimal public API for building custom
// tooling on top of a nextup database.
//
// Most integrations should go through the CLI or the daemon socket.
// This package exports only the types and entry points needed for
// Go programs that want to drive the scheduling engine directly.
package nextup

import (
	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/scheduler"
	"github.com/dmgomes/nextup/internal/storage"
	"github.com/dmgomes/nextup/internal/storage/sqlite"
	"github.com/dmgomes/nextup/internal/types"
)

// Storage is the persistence interface backing the engine.
type Storage = storage.Storage

// Service exposes the scheduling operations: queue materialization and
// ranking, todo selection, habit lifecycle, sessions and mood capture.
type Service = scheduler.Service

// QueueView is the fully computed queue, one entry per active project.
type (
	QueueView    = scheduler.QueueView
	ProjectEntry = scheduler.ProjectEntry
	Todo         = scheduler.Todo
)

// Core types.
type (
	Project        = types.Project
	Task           = types.Task
	TaskNode       = types.TaskNode
	TaskPatch      = types.TaskPatch
	HabitLog       = types.HabitLog
	Session        = types.Session
	Queue          = types.Queue
	IndicatorValue = types.IndicatorValue
	TaskStats      = types.TaskStats
	TimeStats      = types.TimeStats
)

// Project state constants.
const (
	ProjectActive   = types.ProjectActive
	ProjectPaused   = types.ProjectPaused
	ProjectArchived = types.ProjectArchived
)

// Recurrence constants.
const (
	RecurrenceDaily   = types.RecurrenceDaily
	RecurrenceWeekly  = types.RecurrenceWeekly
	RecurrenceMonthly = types.RecurrenceMonthly
)

// Emotional indicator identifiers.
const (
	IndicatorCalmer     = types.IndicatorCalmer
	IndicatorProgressed = types.IndicatorProgressed
	IndicatorMotivated  = types.IndicatorMotivated
)

// DefaultQueue is the queue name used when none is configured.
const DefaultQueue = scheduler.DefaultQueue

// OpenStorage opens (creating if necessary) a nextup SQLite database.
func OpenStorage(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}

// NewService builds a Service over an open store. The returned service
// uses the system clock and a private notification hub; callers that
// need event delivery should run the daemon instead.
func NewService(store Storage) *Service {
	return scheduler.NewService(store, clock.System{}, notify.NewHub(0))
}
