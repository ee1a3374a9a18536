// Package recommend turns a computed readiness profile into a prioritized
// list of candidate interventions.
package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/placementhub/readiness/internal/catalog"
	apperrors "github.com/placementhub/readiness/internal/errors"
	"github.com/placementhub/readiness/internal/readiness"
)

// Priority orders candidates; high sorts before medium before low
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// Candidate is one recommended intervention with its projected effect
type Candidate struct {
	InterventionType   catalog.InterventionType `json:"intervention_type"`
	Priority           Priority                 `json:"priority"`
	CurrentScore       float64                  `json:"current_score"`
	Delta              int                      `json:"prs_delta"`
	ProjectedComposite int                      `json:"projected_prs"`
	Description        string                   `json:"description"`
	EstimatedTime      string                   `json:"estimated_time"`
}

// Thresholds for the per-factor candidate rules
const (
	factorCandidateThreshold = 80.0
	factorHighThreshold      = 70.0
	attendanceMediumCutoff   = 75.0
	minScoredSessions        = 3
	minProjects              = 3
	compositeNudgeThreshold  = 90
	compositeHighThreshold   = 70
)

// Engine inspects a profile and the catalog and emits candidates
type Engine struct {
	scores     *readiness.Engine
	catalog    *catalog.Catalog
	resumes    readiness.ResumeQualityProvider
	interviews readiness.InterviewHistoryProvider
	maxAge     time.Duration
}

// NewEngine creates a recommendation engine. maxAge bounds how old a persisted
// profile may be before Recommend forces a recompute.
func NewEngine(
	scores *readiness.Engine,
	cat *catalog.Catalog,
	resumes readiness.ResumeQualityProvider,
	interviews readiness.InterviewHistoryProvider,
	maxAge time.Duration,
) *Engine {
	return &Engine{
		scores:     scores,
		catalog:    cat,
		resumes:    resumes,
		interviews: interviews,
		maxAge:     maxAge,
	}
}

// Recommend returns the ordered candidate list for a subject. It never
// returns an empty list: when no rule fires, two generic candidates are
// emitted so the caller always has a next step.
func (e *Engine) Recommend(ctx context.Context, subjectID string) ([]Candidate, error) {
	profile, err := e.scores.FreshProfile(ctx, subjectID, e.maxAge)
	if err != nil {
		return nil, err
	}

	sessionCount, err := e.interviews.ScoredSessionCount(ctx, subjectID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to count interview sessions for subject %s", subjectID)
	}

	projectCount := 0
	if snapshot, err := e.resumes.Resume(ctx, subjectID); err != nil {
		return nil, apperrors.WrapError(err, "failed to fetch resume for subject %s", subjectID)
	} else if snapshot != nil {
		projectCount = snapshot.Sections.ProjectCount()
	}

	candidates := make([]Candidate, 0, 6)
	add := func(t catalog.InterventionType, priority Priority, currentScore float64) {
		def, ok := e.catalog.Lookup(t)
		if !ok {
			return
		}
		projected := profile.Composite + def.ScoreDelta
		if projected > 100 {
			projected = 100
		}
		candidates = append(candidates, Candidate{
			InterventionType:   t,
			Priority:           priority,
			CurrentScore:       currentScore,
			Delta:              def.ScoreDelta,
			ProjectedComposite: projected,
			Description:        def.Description,
			EstimatedTime:      def.EstimatedTime,
		})
	}

	if f, ok := profile.Factor(readiness.FactorAcademic); ok && f.Score < factorCandidateThreshold {
		priority := PriorityMedium
		if f.Score < factorHighThreshold {
			priority = PriorityHigh
		}
		add(catalog.AcademicImprovement, priority, f.Score)
	}

	if f, ok := profile.Factor(readiness.FactorResumeQuality); ok && f.Score < factorCandidateThreshold {
		priority := PriorityMedium
		if f.Score < factorHighThreshold {
			priority = PriorityHigh
		}
		add(catalog.ResumeImprovement, priority, f.Score)
	}

	if f, ok := profile.Factor(readiness.FactorInterviewPerformance); ok &&
		(f.Score < factorCandidateThreshold || sessionCount < minScoredSessions) {
		priority := PriorityMedium
		if f.Score < factorHighThreshold || sessionCount == 0 {
			priority = PriorityHigh
		}
		add(catalog.MockInterview, priority, f.Score)
	}

	if f, ok := profile.Factor(readiness.FactorAttendance); ok && f.Score < factorCandidateThreshold {
		priority := PriorityLow
		if f.Score < attendanceMediumCutoff {
			priority = PriorityMedium
		}
		add(catalog.AttendanceImprovement, priority, f.Score)
	}

	// Projects are a derived signal, not a scored factor.
	if projectCount < minProjects {
		priority := PriorityLow
		if projectCount < 2 {
			priority = PriorityMedium
		}
		add(catalog.ProjectAddition, priority, float64(projectCount))
	}

	// Default-positive nudge: always suggest skill training below 90.
	if profile.Composite < compositeNudgeThreshold {
		priority := PriorityMedium
		if profile.Composite < compositeHighThreshold {
			priority = PriorityHigh
		}
		add(catalog.SkillTraining, priority, float64(profile.Composite))
	}

	// Fallback guarantee: a deliberate UX contract, not an algorithmic
	// necessity.
	if len(candidates) == 0 {
		add(catalog.SkillTraining, PriorityLow, float64(profile.Composite))
		add(catalog.ProjectAddition, PriorityLow, float64(projectCount))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if priorityRank[candidates[i].Priority] != priorityRank[candidates[j].Priority] {
			return priorityRank[candidates[i].Priority] > priorityRank[candidates[j].Priority]
		}
		return candidates[i].Delta > candidates[j].Delta
	})

	return candidates, nil
}
