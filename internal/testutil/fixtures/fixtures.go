// Package fixtures generates realistic nextup data for tests and
// benchmarks: projects with deep task trees, habits with history, and
// enough sessions and mood readings to make the ranking math non-trivial.
package fixtures

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dmgomes/nextup/internal/storage"
	"github.com/dmgomes/nextup/internal/types"
)

var projectNames = []string{
	"Home Recording Studio",
	"Spanish Fluency",
	"Garden Overhaul",
	"Side Business Launch",
	"Marathon Training",
	"Family Photo Archive",
	"Woodworking Bench",
	"Open Source Contributions",
}

var branchTitles = []string{
	"Research",
	"Planning",
	"First Milestone",
	"Infrastructure",
	"Polish",
	"Documentation",
}

var leafTitles = []string{
	"Collect references",
	"Draft outline",
	"Buy materials",
	"Set up workspace",
	"Review progress",
	"Fix the broken part",
	"Write summary",
	"Schedule follow-up",
}

var habitTitles = []string{
	"Practice 20 minutes",
	"Review flashcards",
	"Stretch",
	"Write one paragraph",
	"Inbox zero",
}

// DataConfig controls the shape and volume of generated data.
type DataConfig struct {
	Projects        int     // number of projects
	BranchesPerRoot int     // first-level subtrees per project
	LeavesPerBranch int     // tasks under each branch
	HabitsPerRoot   int     // recurring tasks directly under each root
	CompletedRatio  float64 // fraction of leaves marked completed
	SessionsPerProj int     // completed focus sessions per project
	MaxIdleDays     int     // spread of last-session ages across projects
	RandSeed        int64   // seed for reproducibility
}

// DefaultConfig returns a medium dataset: enough hierarchy depth and
// history for selector and ranking behavior to be observable.
func DefaultConfig() DataConfig {
	return DataConfig{
		Projects:        8,
		BranchesPerRoot: 4,
		LeavesPerBranch: 6,
		HabitsPerRoot:   3,
		CompletedRatio:  0.4,
		SessionsPerProj: 10,
		MaxIdleDays:     14,
		RandSeed:        42,
	}
}

// LargeConfig returns a dataset big enough to surface query and
// materialization costs.
func LargeConfig() DataConfig {
	return DataConfig{
		Projects:        50,
		BranchesPerRoot: 8,
		LeavesPerBranch: 12,
		HabitsPerRoot:   5,
		CompletedRatio:  0.5,
		SessionsPerProj: 40,
		MaxIdleDays:     60,
		RandSeed:        43,
	}
}

// Populate fills the store according to cfg. It returns the created
// project ids in creation order.
func Populate(ctx context.Context, store storage.Storage, cfg DataConfig) ([]int64, error) {
	rng := rand.New(rand.NewSource(cfg.RandSeed)) // #nosec G404 - deterministic fixtures, not crypto

	recurrences := []types.Recurrence{
		types.RecurrenceDaily, types.RecurrenceWeekly, types.RecurrenceMonthly,
	}

	projectIDs := make([]int64, 0, cfg.Projects)
	for i := 0; i < cfg.Projects; i++ {
		project := &types.Project{
			Name:  fmt.Sprintf("%s %d", projectNames[i%len(projectNames)], i+1),
			State: types.ProjectActive,
		}
		if err := store.CreateProject(ctx, project); err != nil {
			return nil, fmt.Errorf("failed to create project: %w", err)
		}
		projectIDs = append(projectIDs, project.ID)

		root, err := rootTask(ctx, store, project.ID)
		if err != nil {
			return nil, err
		}

		for b := 0; b < cfg.BranchesPerRoot; b++ {
			branch := &types.Task{
				ProjectID: project.ID,
				ParentID:  &root.ID,
				Title:     branchTitles[b%len(branchTitles)],
				Kind:      types.KindTask,
				State:     types.TaskOpen,
			}
			if err := store.CreateTask(ctx, branch); err != nil {
				return nil, fmt.Errorf("failed to create branch task: %w", err)
			}

			for l := 0; l < cfg.LeavesPerBranch; l++ {
				leaf := &types.Task{
					ProjectID: project.ID,
					ParentID:  &branch.ID,
					Title:     leafTitles[rng.Intn(len(leafTitles))],
					Kind:      types.KindTask,
					State:     types.TaskOpen,
				}
				if err := store.CreateTask(ctx, leaf); err != nil {
					return nil, fmt.Errorf("failed to create leaf task: %w", err)
				}
				if rng.Float64() < cfg.CompletedRatio {
					completed := true
					if err := store.UpdateTask(ctx, leaf.ID, types.TaskPatch{Completed: &completed}); err != nil {
						return nil, fmt.Errorf("failed to complete leaf task: %w", err)
					}
				}
			}
		}

		for h := 0; h < cfg.HabitsPerRoot; h++ {
			habit := &types.Task{
				ProjectID:  project.ID,
				ParentID:   &root.ID,
				Title:      habitTitles[h%len(habitTitles)],
				Kind:       types.KindTask,
				State:      types.TaskOpen,
				Recurring:  true,
				Recurrence: recurrences[h%len(recurrences)],
				Objective:  rng.Intn(5) + 1,
			}
			if err := store.CreateTask(ctx, habit); err != nil {
				return nil, fmt.Errorf("failed to create habit: %w", err)
			}
			for n := rng.Intn(habit.Objective + 1); n > 0; n-- {
				if _, err := store.IncrementHabit(ctx, habit.ID); err != nil {
					return nil, fmt.Errorf("failed to increment habit: %w", err)
				}
			}
		}

		if err := seedHistory(ctx, store, rng, project.ID, cfg); err != nil {
			return nil, err
		}
	}
	return projectIDs, nil
}

// seedHistory records sessions and mood readings with ages spread over
// MaxIdleDays so projects end up at distinct idle times and scores.
func seedHistory(ctx context.Context, store storage.Storage, rng *rand.Rand, projectID int64, cfg DataConfig) error {
	for s := 0; s < cfg.SessionsPerProj; s++ {
		age := time.Duration(rng.Intn(cfg.MaxIdleDays*24)) * time.Hour
		started := time.Now().UTC().Add(-age)
		session, err := store.StartSession(ctx, projectID, started)
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		ended := started.Add(time.Duration(rng.Intn(150)+30) * time.Minute)
		if err := store.EndSession(ctx, session.ID, ended); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
	}

	values := []types.IndicatorValue{
		{Indicator: types.IndicatorCalmer, Value: rng.Intn(3) + 1},
		{Indicator: types.IndicatorProgressed, Value: rng.Intn(3) + 1},
		{Indicator: types.IndicatorMotivated, Value: rng.Intn(3) + 1},
	}
	if err := store.SaveIndicators(ctx, projectID, values); err != nil {
		return fmt.Errorf("failed to save indicators: %w", err)
	}
	return nil
}

func rootTask(ctx context.Context, store storage.Storage, projectID int64) (*types.Task, error) {
	tasks, err := store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.Root() {
			return t, nil
		}
	}
	return nil, fmt.Errorf("project %d has no root task", projectID)
}
