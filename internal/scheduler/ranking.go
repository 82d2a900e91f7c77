package scheduler

import (
	"sort"
	"time"

	"github.com/dmgomes/nextup/internal/types"
)

const (
	// Neutral reading assumed for indicators never recorded.
	defaultIndicatorValue = 2

	// A project with no finished session idles at most this many hours
	// since its creation, so brand-new projects don't dominate.
	maxFallbackIdleHours = 24
)

// Weights tune the scoring. The emotional trio must sum to 1, as must
// the velocity pair; DefaultWeights is the calibrated baseline.
type Weights struct {
	Calmer     float64 // ES weight on "calmer after working"
	Motivated  float64 // ES weight on "motivated to continue"
	Progressed float64 // ES weight on "made progress"

	// Velocity blends normalized emotional score with how far the
	// project lags the group's mean completion.
	Emotional float64
	Stability float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Calmer:     0.5,
		Motivated:  0.35,
		Progressed: 0.15,
		Emotional:  0.7,
		Stability:  0.3,
	}
}

// RankingInput is one project's raw scoring signals.
type RankingInput struct {
	ProjectID      int64
	Completion     float64 // closed / (closed+open) × 100 over plain tasks
	EmotionalScore float64 // 1..3
	LastSessionEnd *time.Time
	CreatedAt      time.Time
}

// RankedProject is one project's scoring breakdown and final position.
type RankedProject struct {
	ProjectID      int64   `json:"project_id"`
	Rank           int     `json:"rank"`
	Completion     float64 `json:"completion"`
	EmotionalScore float64 `json:"emotional_score"`
	ESNorm         float64 `json:"es_norm"`
	StabilityForce float64 `json:"stability_force"`
	Velocity       float64 `json:"velocity"`
	IdleHours      float64 `json:"idle_hours"`
	Potential      float64 `json:"potential"`
}

// EmotionalScore folds the latest indicator readings into a single 1..3
// score using the default weights. Missing indicators default to the
// neutral middle value.
func EmotionalScore(latest map[int]int) float64 {
	return DefaultWeights().EmotionalScore(latest)
}

// EmotionalScore is the weighted form of the package-level function.
func (w Weights) EmotionalScore(latest map[int]int) float64 {
	read := func(indicator int) float64 {
		if v, ok := latest[indicator]; ok {
			return float64(v)
		}
		return defaultIndicatorValue
	}
	return w.Calmer*read(types.IndicatorCalmer) +
		w.Motivated*read(types.IndicatorMotivated) +
		w.Progressed*read(types.IndicatorProgressed)
}

// Rank orders projects by descending potential using DefaultWeights.
func Rank(inputs []RankingInput, now time.Time) []RankedProject {
	return DefaultWeights().Rank(inputs, now)
}

// Rank orders projects by descending potential: the product of how long
// a project has sat idle and its velocity. It is a pure function of its
// inputs. Equal potentials break by ascending project id so the order
// is deterministic.
func (w Weights) Rank(inputs []RankingInput, now time.Time) []RankedProject {
	if len(inputs) == 0 {
		return nil
	}

	var meanCompletion float64
	for _, in := range inputs {
		meanCompletion += in.Completion
	}
	meanCompletion /= float64(len(inputs))

	ranked := make([]RankedProject, 0, len(inputs))
	for _, in := range inputs {
		esNorm := in.EmotionalScore / 3 * 100
		stability := meanCompletion - in.Completion
		velocity := w.Emotional*esNorm + w.Stability*stability

		var idle float64
		if in.LastSessionEnd != nil {
			idle = now.Sub(*in.LastSessionEnd).Hours()
		} else {
			idle = now.Sub(in.CreatedAt).Hours()
			if idle > maxFallbackIdleHours {
				idle = maxFallbackIdleHours
			}
		}
		if idle < 0 {
			idle = 0
		}

		ranked = append(ranked, RankedProject{
			ProjectID:      in.ProjectID,
			Completion:     in.Completion,
			EmotionalScore: in.EmotionalScore,
			ESNorm:         esNorm,
			StabilityForce: stability,
			Velocity:       velocity,
			IdleHours:      idle,
			Potential:      idle * velocity,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Potential != ranked[j].Potential {
			return ranked[i].Potential > ranked[j].Potential
		}
		return ranked[i].ProjectID < ranked[j].ProjectID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
