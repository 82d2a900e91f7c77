// Package scheduler assembles the work queue: it reconciles queue
// membership with the active project set, scores and orders projects,
// and picks the next actionable task from each project's tree.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/habits"
	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/storage"
	"github.com/dmgomes/nextup/internal/tasktree"
	"github.com/dmgomes/nextup/internal/types"
)

// DefaultQueue is the queue name used when the caller does not name one.
const DefaultQueue = "main"

// Service wires storage, the habit lifecycle and the notification hub
// into the operations clients call.
type Service struct {
	store   storage.Storage
	clock   clock.Clock
	hub     *notify.Hub
	habits  *habits.Lifecycle
	weights Weights
}

func NewService(store storage.Storage, clk clock.Clock, hub *notify.Hub) *Service {
	return &Service{
		store:   store,
		clock:   clk,
		hub:     hub,
		habits:  habits.New(store, clk),
		weights: DefaultWeights(),
	}
}

// SetWeights overrides the scoring weights. Call before serving
// requests; the service does not lock around them.
func (s *Service) SetWeights(w Weights) {
	s.weights = w
}

// ProjectEntry is one project's slot in a materialized queue view.
type ProjectEntry struct {
	Project *types.Project  `json:"project"`
	Ranking RankedProject   `json:"ranking"`
	Tasks   types.TaskStats `json:"tasks"`
	Time    types.TimeStats `json:"time"`
	Todo    *Todo           `json:"todo,omitempty"`
}

// QueueView is the assembled answer to "what should I work on".
type QueueView struct {
	Name        string          `json:"name"`
	GeneratedAt time.Time       `json:"generated_at"`
	Projects    []*ProjectEntry `json:"projects"`
}

// GetQueue materializes the named queue, runs the habit lifecycle over
// its projects, ranks them and picks a todo per project. A failure
// confined to one project degrades that project's entry instead of
// failing the whole queue.
func (s *Service) GetQueue(ctx context.Context, name string) (*QueueView, error) {
	if name == "" {
		name = DefaultQueue
	}
	ids, err := Materialize(ctx, s.store, name)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	// Per-project habit sweeps run best-effort: a stuck habit must not
	// blank the queue.
	for _, id := range ids {
		_, _ = s.habits.Sweep(ctx, id)
	}

	taskStats, err := s.store.ProjectTaskStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	sessionEnds, err := s.store.LastSessionEnds(ctx, ids)
	if err != nil {
		return nil, err
	}
	timeStats, err := s.store.SessionTimeStats(ctx, ids, now)
	if err != nil {
		return nil, err
	}

	projects := make(map[int64]*types.Project, len(ids))
	inputs := make([]RankingInput, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.GetProject(ctx, id)
		if err != nil {
			continue
		}
		projects[id] = p

		latest, err := s.store.LatestIndicators(ctx, id)
		if err != nil {
			latest = nil
		}
		in := RankingInput{
			ProjectID:      id,
			Completion:     completionPercent(taskStats[id]),
			EmotionalScore: s.weights.EmotionalScore(latest),
			CreatedAt:      p.CreatedAt,
		}
		if end, ok := sessionEnds[id]; ok {
			in.LastSessionEnd = &end
		}
		inputs = append(inputs, in)
	}

	view := &QueueView{Name: name, GeneratedAt: now}
	for _, ranked := range s.weights.Rank(inputs, now) {
		entry := &ProjectEntry{
			Project: projects[ranked.ProjectID],
			Ranking: ranked,
			Tasks:   taskStats[ranked.ProjectID],
			Time:    timeStats[ranked.ProjectID],
		}
		if tasks, err := s.store.ListProjectTasks(ctx, ranked.ProjectID); err == nil {
			entry.Todo = SelectTodo(tasktree.NewIndex(tasks))
		}
		view.Projects = append(view.Projects, entry)
	}
	return view, nil
}

// completionPercent computes the unrounded completion percentage the
// ranking runs on. Display code rounds; scoring must not.
func completionPercent(stats types.TaskStats) float64 {
	total := stats.Open + stats.Closed
	if total == 0 {
		return 0
	}
	return float64(stats.Closed) / float64(total) * 100
}

// ReorderQueue recomputes the ranking and persists the resulting order
// as the queue's new project list.
func (s *Service) ReorderQueue(ctx context.Context, name string) ([]int64, error) {
	if name == "" {
		name = DefaultQueue
	}
	view, err := s.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}

	ordered := make([]int64, 0, len(view.Projects))
	for _, entry := range view.Projects {
		ordered = append(ordered, entry.Ranking.ProjectID)
	}
	queue, err := s.store.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		queue = &types.Queue{Name: name}
	}
	queue.ProjectIDs = ordered
	if err := s.store.SaveQueue(ctx, queue); err != nil {
		return nil, err
	}
	s.hub.Publish(notify.TopicQueueUpdate, map[string]interface{}{"queue": name})
	return ordered, nil
}

// GetTaskTree runs the habit lifecycle over the project and returns its
// rolled-up tree. A zero rootTaskID means the project root.
func (s *Service) GetTaskTree(ctx context.Context, projectID, rootTaskID int64) (*types.TaskNode, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	_, _ = s.habits.Sweep(ctx, projectID)

	tasks, err := s.store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ix := tasktree.NewIndex(tasks)
	if rootTaskID == 0 {
		root := ix.Root()
		if root == nil {
			return nil, fmt.Errorf("project %d has no root task: %w", projectID, types.ErrNotFound)
		}
		rootTaskID = root.ID
	}
	node := ix.Build(rootTaskID)
	if node == nil {
		return nil, fmt.Errorf("task %d: %w", rootTaskID, types.ErrNotFound)
	}
	return node, nil
}

// Habits runs the lifecycle sweep and returns the project's recurring
// tasks in display order. A zero projectID returns habits across all
// active projects.
func (s *Service) Habits(ctx context.Context, projectID int64) ([]*types.Task, error) {
	_, _ = s.habits.Sweep(ctx, projectID)
	return s.store.ListRecurringTasks(ctx, projectID)
}

// HabitLogs returns a habit's log entries at or after since.
func (s *Service) HabitLogs(ctx context.Context, taskID int64, since time.Time) ([]*types.HabitLog, error) {
	return s.store.ListHabitLogs(ctx, taskID, since)
}

// ListQueues returns every persisted queue.
func (s *Service) ListQueues(ctx context.Context) ([]*types.Queue, error) {
	return s.store.ListQueues(ctx)
}

// DeleteQueue removes a persisted queue. The next read under that name
// will materialize it fresh from the active project set.
func (s *Service) DeleteQueue(ctx context.Context, name string) error {
	if name == "" {
		name = DefaultQueue
	}
	if err := s.store.DeleteQueue(ctx, name); err != nil {
		return err
	}
	s.hub.Publish(notify.TopicQueueUpdate, map[string]interface{}{"queue": name})
	return nil
}

// Project operations.

func (s *Service) ListProjects(ctx context.Context, state types.ProjectState) ([]*types.Project, error) {
	return s.store.ListProjects(ctx, state)
}

func (s *Service) CreateProject(ctx context.Context, project *types.Project) error {
	if err := s.store.CreateProject(ctx, project); err != nil {
		return err
	}
	s.hub.Publish(notify.TopicQueueUpdate, map[string]interface{}{"project_id": project.ID})
	return nil
}

func (s *Service) UpdateProject(ctx context.Context, id int64, name *string, state *types.ProjectState) error {
	if err := s.store.UpdateProject(ctx, id, name, state); err != nil {
		return err
	}
	s.hub.Publish(notify.TopicQueueUpdate, map[string]interface{}{"project_id": id})
	return nil
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.hub.Publish(notify.TopicQueueUpdate, map[string]interface{}{"project_id": id})
	return nil
}

// Task mutations. Each publishes a stats notification so clients
// refresh their views.

func (s *Service) CreateTask(ctx context.Context, task *types.Task) error {
	if task.Recurring && task.LastReset == "" {
		task.LastReset = s.clock.Now().Format(types.DateLayout)
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return err
	}
	s.publishStats(task.ProjectID)
	return nil
}

func (s *Service) UpdateTask(ctx context.Context, id int64, patch types.TaskPatch) (*types.Task, error) {
	if err := s.store.UpdateTask(ctx, id, patch); err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStats(task.ProjectID)
	return task, nil
}

func (s *Service) DeleteTaskRecursive(ctx context.Context, id int64) ([]int64, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.DeleteTaskRecursive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStats(task.ProjectID)
	return ids, nil
}

func (s *Service) CloseTaskRecursive(ctx context.Context, id int64) (int, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := s.store.CloseTaskRecursive(ctx, id)
	if err != nil {
		return 0, err
	}
	s.publishStats(task.ProjectID)
	return n, nil
}

func (s *Service) ReparentTask(ctx context.Context, id int64, newParentID *int64) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.ReparentTask(ctx, id, newParentID); err != nil {
		return err
	}
	s.publishStats(task.ProjectID)
	return nil
}

func (s *Service) IncrementHabit(ctx context.Context, id int64) (*types.Task, error) {
	task, err := s.store.IncrementHabit(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStats(task.ProjectID)
	return task, nil
}

func (s *Service) ReorderHabits(ctx context.Context, projectID int64, taskIDs []int64) error {
	if err := s.store.SetHabitsTaskOrder(ctx, projectID, taskIDs); err != nil {
		return err
	}
	s.publishStats(projectID)
	return nil
}

func (s *Service) ReorderHabitProjects(ctx context.Context, projectIDs []int64) error {
	if err := s.store.SetHabitsProjectOrder(ctx, projectIDs); err != nil {
		return err
	}
	s.hub.Publish(notify.TopicStatsUpdate, nil)
	return nil
}

// Mood and sessions.

func (s *Service) RecordMood(ctx context.Context, projectID int64, values []types.IndicatorValue) error {
	if err := s.store.SaveIndicators(ctx, projectID, values); err != nil {
		return err
	}
	s.publishStats(projectID)
	return nil
}

func (s *Service) StartSession(ctx context.Context, projectID int64) (*types.Session, error) {
	session, err := s.store.StartSession(ctx, projectID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.publishStats(projectID)
	return session, nil
}

func (s *Service) EndSession(ctx context.Context, id string, projectID int64) error {
	if err := s.store.EndSession(ctx, id, s.clock.Now()); err != nil {
		return err
	}
	s.publishStats(projectID)
	return nil
}

func (s *Service) ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error) {
	return s.store.ListSessions(ctx, projectID)
}

func (s *Service) publishStats(projectID int64) {
	s.hub.Publish(notify.TopicStatsUpdate, map[string]interface{}{"project_id": projectID})
}
