// Package simulate previews the effect of hypothetical interventions on a
// readiness profile without persisting anything.
package simulate

import (
	"context"

	"github.com/placementhub/readiness/internal/catalog"
	apperrors "github.com/placementhub/readiness/internal/errors"
	"github.com/placementhub/readiness/internal/readiness"
)

// factorBumps maps intervention types to the tracked factor they lift and the
// bonus applied to that factor's score. This bonus is independent of the
// catalog's composite delta; both are applied on purpose to match the
// established behavior of the score breakdown, even though the pair can
// double-count one action.
var factorBumps = map[catalog.InterventionType]struct {
	label readiness.FactorLabel
	bonus float64
}{
	catalog.ResumeImprovement:     {readiness.FactorResumeQuality, 15},
	catalog.MockInterview:         {readiness.FactorInterviewPerformance, 20},
	catalog.AttendanceImprovement: {readiness.FactorAttendance, 10},
}

// AppliedIntervention is one requested type that was found in the catalog,
// with the composite delta it contributed.
type AppliedIntervention struct {
	Type  catalog.InterventionType `json:"type"`
	Delta int                      `json:"delta"`
}

// Result is a purely ephemeral simulation outcome, constructed fresh on every
// call and never persisted.
type Result struct {
	SubjectID          string                         `json:"subject_id"`
	BaselineComposite  int                            `json:"baseline_composite"`
	ProjectedComposite int                            `json:"projected_composite"`
	PRSIncrease        int                            `json:"prs_increase"`
	Applied            []AppliedIntervention          `json:"applied"`
	TopFactors         []readiness.ContributingFactor `json:"top_factors"`
}

// Engine computes hypothetical profiles from the current persisted one
type Engine struct {
	store   readiness.ProfileStore
	catalog *catalog.Catalog
}

// NewEngine creates a simulation engine
func NewEngine(store readiness.ProfileStore, cat *catalog.Catalog) *Engine {
	return &Engine{store: store, catalog: cat}
}

// Simulate applies the requested intervention types to the subject's current
// profile and returns the hypothetical outcome. The profile must have been
// computed at least once; otherwise NotFound. Unknown types are silently
// skipped since callers may pass speculative types. Nothing is written.
func (e *Engine) Simulate(ctx context.Context, subjectID string, types []catalog.InterventionType) (*Result, error) {
	profile, err := e.store.Profile(ctx, subjectID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read profile for subject %s", subjectID)
	}
	if profile == nil {
		return nil, apperrors.NewNotFoundError("readiness profile", subjectID)
	}

	factors := make([]readiness.ContributingFactor, len(profile.Factors))
	copy(factors, profile.Factors)

	applied := make([]AppliedIntervention, 0, len(types))
	projected := profile.Composite

	for _, t := range types {
		def, ok := e.catalog.Lookup(t)
		if !ok {
			continue
		}

		projected += def.ScoreDelta
		applied = append(applied, AppliedIntervention{Type: t, Delta: def.ScoreDelta})

		if bump, ok := factorBumps[t]; ok {
			for i, f := range factors {
				if f.Label != bump.label {
					continue
				}
				score := f.Score + bump.bonus
				if score > 100 {
					score = 100
				}
				factors[i] = f.WithScore(score)
				break
			}
		}
	}

	// The composite is clamped only after all deltas are summed, not
	// per-step.
	if projected > 100 {
		projected = 100
	}
	if projected < 0 {
		projected = 0
	}

	return &Result{
		SubjectID:          subjectID,
		BaselineComposite:  profile.Composite,
		ProjectedComposite: projected,
		PRSIncrease:        projected - profile.Composite,
		Applied:            applied,
		TopFactors:         readiness.TopFactors(factors, 3),
	}, nil
}
