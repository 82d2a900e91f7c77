package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/config"
	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/rpc"
	"github.com/dmgomes/nextup/internal/scheduler"
	"github.com/dmgomes/nextup/internal/storage/sqlite"
	"github.com/dmgomes/nextup/internal/types"
)

// api is the surface the CLI commands talk to. When a daemon is running
// on the socket, calls go over RPC; otherwise they hit storage directly.
type api interface {
	CreateProject(ctx context.Context, name string) (*types.Project, error)
	ListProjects(ctx context.Context, state string) ([]*types.Project, error)
	UpdateProject(ctx context.Context, id int64, name, state *string) error
	DeleteProject(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, args rpc.TaskCreateArgs) (*types.Task, error)
	UpdateTask(ctx context.Context, id int64, patch types.TaskPatch) (*types.Task, error)
	DeleteTask(ctx context.Context, id int64) ([]int64, error)
	CloseTask(ctx context.Context, id int64) (int, error)
	ReparentTask(ctx context.Context, id int64, newParentID *int64) error
	TaskTree(ctx context.Context, projectID, rootTaskID int64) (*types.TaskNode, error)

	IncrementHabit(ctx context.Context, id int64) (*types.Task, error)
	Habits(ctx context.Context, projectID int64) ([]*types.Task, error)
	ReorderHabits(ctx context.Context, projectID int64, taskIDs []int64) error
	ReorderHabitProjects(ctx context.Context, projectIDs []int64) error
	HabitLogs(ctx context.Context, taskID int64, since string) ([]*types.HabitLog, error)

	Queue(ctx context.Context, name string) (*scheduler.QueueView, error)
	ReorderQueue(ctx context.Context, name string) ([]int64, error)
	ListQueues(ctx context.Context) ([]*types.Queue, error)
	DeleteQueue(ctx context.Context, name string) error

	RecordMood(ctx context.Context, projectID int64, values []types.IndicatorValue) error

	StartSession(ctx context.Context, projectID int64) (*types.Session, error)
	EndSession(ctx context.Context, id string, projectID int64) error
	ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error)

	Close() error
}

// newAPI prefers the daemon when one is listening, unless --no-daemon
// forces direct storage access.
func newAPI() (api, error) {
	if !noDaemon && socketPath != "" {
		client, err := rpc.TryConnect(socketPath)
		if err == nil && client != nil {
			return &rpcAPI{client: client}, nil
		}
	}
	return newDirectAPI()
}

type directAPI struct {
	store *sqlite.Store
	svc   *scheduler.Service
	hub   *notify.Hub
}

func newDirectAPI() (*directAPI, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("no database path configured")
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	hub := notify.NewHub(0)
	svc := scheduler.NewService(store, clock.System{}, hub)
	svc.SetWeights(configuredWeights())
	return &directAPI{
		store: store,
		svc:   svc,
		hub:   hub,
	}, nil
}

func configuredWeights() scheduler.Weights {
	return scheduler.Weights{
		Calmer:     config.GetFloat("ranking.weight-calmer"),
		Motivated:  config.GetFloat("ranking.weight-motivated"),
		Progressed: config.GetFloat("ranking.weight-progressed"),
		Emotional:  config.GetFloat("ranking.weight-emotional"),
		Stability:  config.GetFloat("ranking.weight-stability"),
	}
}

func (d *directAPI) Close() error {
	d.hub.Close()
	return d.store.Close()
}

func (d *directAPI) CreateProject(ctx context.Context, name string) (*types.Project, error) {
	project := &types.Project{Name: name, State: types.ProjectActive}
	if err := d.svc.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (d *directAPI) ListProjects(ctx context.Context, state string) ([]*types.Project, error) {
	return d.svc.ListProjects(ctx, types.ProjectState(state))
}

func (d *directAPI) UpdateProject(ctx context.Context, id int64, name, state *string) error {
	var ps *types.ProjectState
	if state != nil {
		v := types.ProjectState(*state)
		ps = &v
	}
	return d.svc.UpdateProject(ctx, id, name, ps)
}

func (d *directAPI) DeleteProject(ctx context.Context, id int64) error {
	return d.svc.DeleteProject(ctx, id)
}

func (d *directAPI) CreateTask(ctx context.Context, args rpc.TaskCreateArgs) (*types.Task, error) {
	task := &types.Task{
		ProjectID:  args.ProjectID,
		ParentID:   args.ParentID,
		Title:      args.Title,
		Kind:       types.TaskKind(args.Kind),
		Recurring:  args.Recurring,
		Recurrence: types.Recurrence(args.Recurrence),
		Objective:  args.Objective,
	}
	if err := d.svc.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (d *directAPI) UpdateTask(ctx context.Context, id int64, patch types.TaskPatch) (*types.Task, error) {
	return d.svc.UpdateTask(ctx, id, patch)
}

func (d *directAPI) DeleteTask(ctx context.Context, id int64) ([]int64, error) {
	return d.svc.DeleteTaskRecursive(ctx, id)
}

func (d *directAPI) CloseTask(ctx context.Context, id int64) (int, error) {
	return d.svc.CloseTaskRecursive(ctx, id)
}

func (d *directAPI) ReparentTask(ctx context.Context, id int64, newParentID *int64) error {
	return d.svc.ReparentTask(ctx, id, newParentID)
}

func (d *directAPI) TaskTree(ctx context.Context, projectID, rootTaskID int64) (*types.TaskNode, error) {
	return d.svc.GetTaskTree(ctx, projectID, rootTaskID)
}

func (d *directAPI) IncrementHabit(ctx context.Context, id int64) (*types.Task, error) {
	return d.svc.IncrementHabit(ctx, id)
}

func (d *directAPI) Habits(ctx context.Context, projectID int64) ([]*types.Task, error) {
	return d.svc.Habits(ctx, projectID)
}

func (d *directAPI) ReorderHabits(ctx context.Context, projectID int64, taskIDs []int64) error {
	return d.svc.ReorderHabits(ctx, projectID, taskIDs)
}

func (d *directAPI) ReorderHabitProjects(ctx context.Context, projectIDs []int64) error {
	return d.svc.ReorderHabitProjects(ctx, projectIDs)
}

func (d *directAPI) HabitLogs(ctx context.Context, taskID int64, since string) ([]*types.HabitLog, error) {
	var from time.Time
	if since != "" {
		t, err := time.Parse(types.DateLayout, since)
		if err != nil {
			return nil, fmt.Errorf("invalid since date %q: %w", since, err)
		}
		from = t
	}
	return d.svc.HabitLogs(ctx, taskID, from)
}

func (d *directAPI) Queue(ctx context.Context, name string) (*scheduler.QueueView, error) {
	return d.svc.GetQueue(ctx, name)
}

func (d *directAPI) ReorderQueue(ctx context.Context, name string) ([]int64, error) {
	return d.svc.ReorderQueue(ctx, name)
}

func (d *directAPI) ListQueues(ctx context.Context) ([]*types.Queue, error) {
	return d.svc.ListQueues(ctx)
}

func (d *directAPI) DeleteQueue(ctx context.Context, name string) error {
	return d.svc.DeleteQueue(ctx, name)
}

func (d *directAPI) RecordMood(ctx context.Context, projectID int64, values []types.IndicatorValue) error {
	return d.svc.RecordMood(ctx, projectID, values)
}

func (d *directAPI) StartSession(ctx context.Context, projectID int64) (*types.Session, error) {
	return d.svc.StartSession(ctx, projectID)
}

func (d *directAPI) EndSession(ctx context.Context, id string, projectID int64) error {
	return d.svc.EndSession(ctx, id, projectID)
}

func (d *directAPI) ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error) {
	return d.svc.ListSessions(ctx, projectID)
}

type rpcAPI struct {
	client *rpc.Client
}

func (r *rpcAPI) Close() error { return r.client.Close() }

func (r *rpcAPI) CreateProject(_ context.Context, name string) (*types.Project, error) {
	var project types.Project
	if err := r.client.Call(rpc.OpProjectCreate, rpc.ProjectCreateArgs{Name: name}, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *rpcAPI) ListProjects(_ context.Context, state string) ([]*types.Project, error) {
	var projects []*types.Project
	if err := r.client.Call(rpc.OpProjectList, rpc.ProjectListArgs{State: state}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *rpcAPI) UpdateProject(_ context.Context, id int64, name, state *string) error {
	return r.client.Call(rpc.OpProjectUpdate, rpc.ProjectUpdateArgs{ID: id, Name: name, State: state}, nil)
}

func (r *rpcAPI) DeleteProject(_ context.Context, id int64) error {
	return r.client.Call(rpc.OpProjectDelete, rpc.ProjectDeleteArgs{ID: id}, nil)
}

func (r *rpcAPI) CreateTask(_ context.Context, args rpc.TaskCreateArgs) (*types.Task, error) {
	var task types.Task
	if err := r.client.Call(rpc.OpTaskCreate, args, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *rpcAPI) UpdateTask(_ context.Context, id int64, patch types.TaskPatch) (*types.Task, error) {
	var task types.Task
	if err := r.client.Call(rpc.OpTaskUpdate, rpc.TaskUpdateArgs{ID: id, Patch: patch}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *rpcAPI) DeleteTask(_ context.Context, id int64) ([]int64, error) {
	var resp rpc.DeleteResponse
	if err := r.client.Call(rpc.OpTaskDelete, rpc.TaskIDArgs{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.DeletedIDs, nil
}

func (r *rpcAPI) CloseTask(_ context.Context, id int64) (int, error) {
	var resp rpc.CloseResponse
	if err := r.client.Call(rpc.OpTaskClose, rpc.TaskIDArgs{ID: id}, &resp); err != nil {
		return 0, err
	}
	return resp.Closed, nil
}

func (r *rpcAPI) ReparentTask(_ context.Context, id int64, newParentID *int64) error {
	return r.client.Call(rpc.OpTaskReparent, rpc.TaskReparentArgs{ID: id, NewParentID: newParentID}, nil)
}

func (r *rpcAPI) TaskTree(_ context.Context, projectID, rootTaskID int64) (*types.TaskNode, error) {
	var tree types.TaskNode
	if err := r.client.Call(rpc.OpTaskTree, rpc.TaskTreeArgs{ProjectID: projectID, RootTaskID: rootTaskID}, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (r *rpcAPI) IncrementHabit(_ context.Context, id int64) (*types.Task, error) {
	var task types.Task
	if err := r.client.Call(rpc.OpHabitIncrement, rpc.TaskIDArgs{ID: id}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *rpcAPI) Habits(_ context.Context, projectID int64) ([]*types.Task, error) {
	var tasks []*types.Task
	if err := r.client.Call(rpc.OpHabitList, rpc.HabitListArgs{ProjectID: projectID}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *rpcAPI) ReorderHabits(_ context.Context, projectID int64, taskIDs []int64) error {
	return r.client.Call(rpc.OpHabitReorder, rpc.HabitReorderArgs{ProjectID: projectID, TaskIDs: taskIDs}, nil)
}

func (r *rpcAPI) ReorderHabitProjects(_ context.Context, projectIDs []int64) error {
	return r.client.Call(rpc.OpHabitProjectReorder, rpc.HabitProjectReorderArgs{ProjectIDs: projectIDs}, nil)
}

func (r *rpcAPI) HabitLogs(_ context.Context, taskID int64, since string) ([]*types.HabitLog, error) {
	var logs []*types.HabitLog
	if err := r.client.Call(rpc.OpHabitLogs, rpc.HabitLogsArgs{TaskID: taskID, Since: since}, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *rpcAPI) Queue(_ context.Context, name string) (*scheduler.QueueView, error) {
	var view scheduler.QueueView
	if err := r.client.Call(rpc.OpQueueGet, rpc.QueueArgs{Name: name}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *rpcAPI) ReorderQueue(_ context.Context, name string) ([]int64, error) {
	var ordered []int64
	if err := r.client.Call(rpc.OpQueueReorder, rpc.QueueArgs{Name: name}, &ordered); err != nil {
		return nil, err
	}
	return ordered, nil
}

func (r *rpcAPI) ListQueues(_ context.Context) ([]*types.Queue, error) {
	var queues []*types.Queue
	if err := r.client.Call(rpc.OpQueueList, nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

func (r *rpcAPI) DeleteQueue(_ context.Context, name string) error {
	return r.client.Call(rpc.OpQueueDelete, rpc.QueueArgs{Name: name}, nil)
}

func (r *rpcAPI) RecordMood(_ context.Context, projectID int64, values []types.IndicatorValue) error {
	return r.client.Call(rpc.OpMoodRecord, rpc.MoodRecordArgs{ProjectID: projectID, Values: values}, nil)
}

func (r *rpcAPI) StartSession(_ context.Context, projectID int64) (*types.Session, error) {
	var session types.Session
	if err := r.client.Call(rpc.OpSessionStart, rpc.SessionStartArgs{ProjectID: projectID}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *rpcAPI) EndSession(_ context.Context, id string, projectID int64) error {
	return r.client.Call(rpc.OpSessionEnd, rpc.SessionEndArgs{ID: id, ProjectID: projectID}, nil)
}

func (r *rpcAPI) ListSessions(_ context.Context, projectID int64) ([]*types.Session, error) {
	var sessions []*types.Session
	if err := r.client.Call(rpc.OpSessionList, rpc.SessionListArgs{ProjectID: projectID}, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
