package rpc

import (
	"encoding/json"
	"errors"

	"github.com/dmgomes/nextup/internal/types"
)

// Operation constants for all nextup commands
const (
	OpPing     = "ping"
	OpStatus   = "status"
	OpShutdown = "shutdown"

	OpProjectCreate = "project_create"
	OpProjectList   = "project_list"
	OpProjectUpdate = "project_update"
	OpProjectDelete = "project_delete"

	OpTaskCreate   = "task_create"
	OpTaskUpdate   = "task_update"
	OpTaskDelete   = "task_delete"
	OpTaskClose    = "task_close"
	OpTaskReparent = "task_reparent"
	OpTaskTree     = "task_tree"

	OpHabitIncrement      = "habit_increment"
	OpHabitList           = "habit_list"
	OpHabitReorder        = "habit_reorder"
	OpHabitProjectReorder = "habit_project_reorder"
	OpHabitLogs           = "habit_logs"

	OpQueueGet     = "queue_get"
	OpQueueReorder = "queue_reorder"
	OpQueueList    = "queue_list"
	OpQueueDelete  = "queue_delete"

	OpMoodRecord = "mood_record"

	OpSessionStart = "session_start"
	OpSessionEnd   = "session_end"
	OpSessionList  = "session_list"

	OpSubscribe = "subscribe"
)

// Error codes carried in responses so clients can recover the error
// category across the wire.
const (
	CodeValidation    = "validation"
	CodeNotFound      = "not_found"
	CodeInvalidParent = "invalid_parent"
	CodeSelfParent    = "self_parent"
	CodeCyclicMove    = "cyclic_move"
	CodeRootDeletion  = "root_deletion"
	CodeInternal      = "internal"
)

// Request is one RPC request from client to server.
type Request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Response is one RPC response from server to client.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// errorCode maps a service error onto its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return CodeValidation
	case errors.Is(err, types.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, types.ErrInvalidParent):
		return CodeInvalidParent
	case errors.Is(err, types.ErrSelfParent):
		return CodeSelfParent
	case errors.Is(err, types.ErrCyclicMove):
		return CodeCyclicMove
	case errors.Is(err, types.ErrRootDeletion):
		return CodeRootDeletion
	}
	return CodeInternal
}

// sentinelForCode is the inverse mapping used client-side.
func sentinelForCode(code string) error {
	switch code {
	case CodeValidation:
		return types.ErrValidation
	case CodeNotFound:
		return types.ErrNotFound
	case CodeInvalidParent:
		return types.ErrInvalidParent
	case CodeSelfParent:
		return types.ErrSelfParent
	case CodeCyclicMove:
		return types.ErrCyclicMove
	case CodeRootDeletion:
		return types.ErrRootDeletion
	}
	return nil
}

// ProjectCreateArgs are arguments for the project_create operation.
type ProjectCreateArgs struct {
	Name string `json:"name"`
}

// ProjectListArgs are arguments for the project_list operation.
type ProjectListArgs struct {
	State string `json:"state,omitempty"`
}

// ProjectUpdateArgs are arguments for the project_update operation.
type ProjectUpdateArgs struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name,omitempty"`
	State *string `json:"state,omitempty"`
}

// ProjectDeleteArgs are arguments for the project_delete operation.
type ProjectDeleteArgs struct {
	ID int64 `json:"id"`
}

// TaskCreateArgs are arguments for the task_create operation.
type TaskCreateArgs struct {
	ProjectID  int64  `json:"project_id"`
	ParentID   *int64 `json:"parent_id,omitempty"`
	Title      string `json:"title"`
	Kind       string `json:"type,omitempty"`
	Recurring  bool   `json:"is_recurring,omitempty"`
	Recurrence string `json:"recurrence_type,omitempty"`
	Objective  int    `json:"objective,omitempty"`
}

// TaskUpdateArgs are arguments for the task_update operation.
type TaskUpdateArgs struct {
	ID    int64           `json:"id"`
	Patch types.TaskPatch `json:"patch"`
}

// TaskIDArgs identify a single task (delete, close, increment).
type TaskIDArgs struct {
	ID int64 `json:"id"`
}

// TaskReparentArgs are arguments for the task_reparent operation.
type TaskReparentArgs struct {
	ID          int64  `json:"id"`
	NewParentID *int64 `json:"new_parent_id,omitempty"`
}

// TaskTreeArgs are arguments for the task_tree operation.
type TaskTreeArgs struct {
	ProjectID  int64 `json:"project_id"`
	RootTaskID int64 `json:"root_task_id,omitempty"`
}

// HabitListArgs are arguments for the habit_list operation. A zero
// ProjectID lists habits across all active projects.
type HabitListArgs struct {
	ProjectID int64 `json:"project_id,omitempty"`
}

// HabitReorderArgs are arguments for the habit_reorder operation.
type HabitReorderArgs struct {
	ProjectID int64   `json:"project_id"`
	TaskIDs   []int64 `json:"task_ids"`
}

// HabitProjectReorderArgs are arguments for habit_project_reorder.
type HabitProjectReorderArgs struct {
	ProjectIDs []int64 `json:"project_ids"`
}

// HabitLogsArgs are arguments for the habit_logs operation.
type HabitLogsArgs struct {
	TaskID int64  `json:"task_id"`
	Since  string `json:"since,omitempty"` // YYYY-MM-DD
}

// QueueArgs name a queue (get, reorder, delete).
type QueueArgs struct {
	Name string `json:"name,omitempty"`
}

// MoodRecordArgs are arguments for the mood_record operation.
type MoodRecordArgs struct {
	ProjectID int64                  `json:"project_id"`
	Values    []types.IndicatorValue `json:"values"`
}

// SessionStartArgs are arguments for the session_start operation.
type SessionStartArgs struct {
	ProjectID int64 `json:"project_id"`
}

// SessionEndArgs are arguments for the session_end operation.
type SessionEndArgs struct {
	ID        string `json:"id"`
	ProjectID int64  `json:"project_id"`
}

// SessionListArgs are arguments for the session_list operation.
type SessionListArgs struct {
	ProjectID int64 `json:"project_id"`
}

// SubscribeArgs are arguments for the subscribe operation. Empty topics
// means all topics.
type SubscribeArgs struct {
	Topics []string `json:"topics,omitempty"`
}

// PingResponse is the response for a ping operation.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// StatusResponse is the server status metadata.
type StatusResponse struct {
	Version       string  `json:"version"`
	DatabasePath  string  `json:"database_path"`
	SocketPath    string  `json:"socket_path"`
	PID           int     `json:"pid"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// DeleteResponse reports what a recursive delete removed.
type DeleteResponse struct {
	DeletedIDs []int64 `json:"deleted_ids"`
}

// CloseResponse reports how many tasks a recursive close touched.
type CloseResponse struct {
	Closed int `json:"closed"`
}
