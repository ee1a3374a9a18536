package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	apperrors "github.com/placementhub/readiness/internal/errors"
)

// Documented defaults for the input-missing case. These are legitimate
// substitutes, distinct from the invalid-data case which is a hard
// ComputationError.
const (
	defaultAcademicScore   = 50.0
	defaultResumeScore     = 0.0
	defaultInterviewScore  = 50.0
	defaultAttendanceScore = 75.0

	resumeAIWeight           = 0.7
	resumeCompletenessWeight = 0.3

	// InterviewSessionLimit caps how many recent scored sessions feed the
	// interview factor.
	InterviewSessionLimit = 5
)

// StudentDirectory answers whether a subject exists and is eligible for scoring
type StudentDirectory interface {
	Eligible(ctx context.Context, subjectID string) (bool, error)
}

// AcademicRecordProvider supplies term scores on a 0-10 scale, oldest first.
// An empty slice means no data.
type AcademicRecordProvider interface {
	TermScores(ctx context.Context, subjectID string) ([]float64, error)
}

// ResumeQualityProvider supplies the subject's resume snapshot, nil when no
// resume exists.
type ResumeQualityProvider interface {
	Resume(ctx context.Context, subjectID string) (*ResumeSnapshot, error)
}

// InterviewSession is one interview attempt; Score is nil when no score was
// recorded.
type InterviewSession struct {
	Score       *float64  `json:"score,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// InterviewHistoryProvider supplies completed sessions most-recent-first
type InterviewHistoryProvider interface {
	RecentSessions(ctx context.Context, subjectID string, limit int) ([]InterviewSession, error)
	ScoredSessionCount(ctx context.Context, subjectID string) (int, error)
}

// AttendanceProvider supplies the stored attendance percentage, nil when unset
type AttendanceProvider interface {
	Percentage(ctx context.Context, subjectID string) (*float64, error)
}

// ProfileStore persists readiness profiles, one per subject, upserted
type ProfileStore interface {
	Profile(ctx context.Context, subjectID string) (*ReadinessProfile, error)
	UpsertProfile(ctx context.Context, profile *ReadinessProfile) error
}

// Engine computes composite readiness scores. Each compute run is a pure
// function of freshly-read provider data; runs for the same subject are
// serialized by a per-subject lock.
type Engine struct {
	directory  StudentDirectory
	academics  AcademicRecordProvider
	resumes    ResumeQualityProvider
	interviews InterviewHistoryProvider
	attendance AttendanceProvider
	store      ProfileStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a score engine over the four providers and the profile store
func NewEngine(
	directory StudentDirectory,
	academics AcademicRecordProvider,
	resumes ResumeQualityProvider,
	interviews InterviewHistoryProvider,
	attendance AttendanceProvider,
	store ProfileStore,
) *Engine {
	return &Engine{
		directory:  directory,
		academics:  academics,
		resumes:    resumes,
		interviews: interviews,
		attendance: attendance,
		store:      store,
		locks:      make(map[string]*sync.Mutex),
	}
}

// subjectLock returns the mutex serializing writes for one subject
func (e *Engine) subjectLock(subjectID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[subjectID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[subjectID] = lock
	}
	return lock
}

// Compute re-reads all four providers, derives the weighted composite and
// upserts the subject's ReadinessProfile. On any provider failure or
// non-finite input it aborts with no partial write; the prior profile stays
// authoritative.
func (e *Engine) Compute(ctx context.Context, subjectID string) (*ReadinessProfile, error) {
	lock := e.subjectLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	return e.compute(ctx, subjectID)
}

// RecomputeDelta reads the last persisted composite as the stable
// pre-baseline, forces a fresh compute and returns both. The pair is atomic
// under the subject lock so no other profile write can interleave.
func (e *Engine) RecomputeDelta(ctx context.Context, subjectID string) (before int, after *ReadinessProfile, err error) {
	lock := e.subjectLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := e.store.Profile(ctx, subjectID)
	if err != nil {
		return 0, nil, apperrors.WrapError(err, "failed to read profile for subject %s", subjectID)
	}
	if prior == nil {
		return 0, nil, apperrors.NewNotFoundError("readiness profile", subjectID)
	}

	after, err = e.compute(ctx, subjectID)
	if err != nil {
		return 0, nil, err
	}
	return prior.Composite, after, nil
}

// FreshProfile returns the persisted profile, recomputing first when it is
// older than maxAge. A missing profile is NotFound; computing one is an
// explicit, separate, write-carrying operation.
func (e *Engine) FreshProfile(ctx context.Context, subjectID string, maxAge time.Duration) (*ReadinessProfile, error) {
	profile, err := e.store.Profile(ctx, subjectID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read profile for subject %s", subjectID)
	}
	if profile == nil {
		return nil, apperrors.NewNotFoundError("readiness profile", subjectID)
	}
	if maxAge > 0 && time.Since(profile.ComputedAt) > maxAge {
		return e.Compute(ctx, subjectID)
	}
	return profile, nil
}

func (e *Engine) compute(ctx context.Context, subjectID string) (*ReadinessProfile, error) {
	eligible, err := e.directory.Eligible(ctx, subjectID)
	if err != nil {
		return nil, apperrors.NewComputationError(subjectID, "subject", "failed to resolve subject", err)
	}
	if !eligible {
		return nil, apperrors.NewNotFoundError("student", subjectID)
	}

	academic, err := e.academicFactor(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	resume, err := e.resumeFactor(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	interview, err := e.interviewFactor(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	attendance, err := e.attendanceFactor(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	factors := []ContributingFactor{academic, resume, interview, attendance}

	weighted := 0.0
	for _, f := range factors {
		weighted += f.Impact
	}
	composite := int(clamp(math.Round(weighted), 0, 100))

	profile := &ReadinessProfile{
		SubjectID:  subjectID,
		Composite:  composite,
		Factors:    factors,
		ComputedAt: time.Now(),
	}

	if err := e.store.UpsertProfile(ctx, profile); err != nil {
		return nil, apperrors.WrapError(err, "failed to persist profile for subject %s", subjectID)
	}

	slog.Info("Readiness profile computed",
		"subject_id", subjectID,
		"composite", composite,
	)

	return profile, nil
}

func (e *Engine) academicFactor(ctx context.Context, subjectID string) (ContributingFactor, error) {
	terms, err := e.academics.TermScores(ctx, subjectID)
	if err != nil {
		return ContributingFactor{}, apperrors.NewComputationError(subjectID, "academic", "failed to fetch term scores", err)
	}

	if len(terms) == 0 {
		return NewFactor(FactorAcademic, defaultAcademicScore, "No term scores recorded"), nil
	}

	sum := 0.0
	for _, t := range terms {
		if err := validScoreInput(subjectID, "academic", t, 0, 10); err != nil {
			return ContributingFactor{}, err
		}
		sum += t
	}
	avg := sum / float64(len(terms))
	score := clamp(math.Min(avg*10, 100), 0, 100)

	detail := fmt.Sprintf("Average term score: %.1f/10 over %d terms", avg, len(terms))
	return NewFactor(FactorAcademic, score, detail), nil
}

func (e *Engine) resumeFactor(ctx context.Context, subjectID string) (ContributingFactor, error) {
	snapshot, err := e.resumes.Resume(ctx, subjectID)
	if err != nil {
		return ContributingFactor{}, apperrors.NewComputationError(subjectID, "resume_quality", "failed to fetch resume", err)
	}

	if snapshot == nil {
		return NewFactor(FactorResumeQuality, defaultResumeScore, "No resume on file"), nil
	}

	if err := validScoreInput(subjectID, "resume_quality", snapshot.AIScore, 0, 100); err != nil {
		return ContributingFactor{}, err
	}

	completeness := snapshot.Sections.Completeness()
	score := clamp(snapshot.AIScore*resumeAIWeight+completeness*resumeCompletenessWeight, 0, 100)

	detail := fmt.Sprintf("AI quality %.0f/100, completeness %.0f%%", snapshot.AIScore, completeness)
	return NewFactor(FactorResumeQuality, score, detail), nil
}

func (e *Engine) interviewFactor(ctx context.Context, subjectID string) (ContributingFactor, error) {
	sessions, err := e.interviews.RecentSessions(ctx, subjectID, InterviewSessionLimit)
	if err != nil {
		return ContributingFactor{}, apperrors.NewComputationError(subjectID, "interview_performance", "failed to fetch interview sessions", err)
	}

	// Sessions with no recorded score are excluded from both numerator and
	// denominator.
	sum := 0.0
	count := 0
	for _, s := range sessions {
		if s.Score == nil {
			continue
		}
		if err := validScoreInput(subjectID, "interview_performance", *s.Score, 0, 100); err != nil {
			return ContributingFactor{}, err
		}
		sum += *s.Score
		count++
	}

	if count == 0 {
		return NewFactor(FactorInterviewPerformance, defaultInterviewScore, "No scored interview sessions"), nil
	}

	score := clamp(sum/float64(count), 0, 100)
	detail := fmt.Sprintf("Average of last %d interview scores", count)
	return NewFactor(FactorInterviewPerformance, score, detail), nil
}

func (e *Engine) attendanceFactor(ctx context.Context, subjectID string) (ContributingFactor, error) {
	pct, err := e.attendance.Percentage(ctx, subjectID)
	if err != nil {
		return ContributingFactor{}, apperrors.NewComputationError(subjectID, "attendance", "failed to fetch attendance", err)
	}

	if pct == nil {
		return NewFactor(FactorAttendance, defaultAttendanceScore, "Attendance not recorded, assumed 75%"), nil
	}

	if err := validScoreInput(subjectID, "attendance", *pct, 0, 100); err != nil {
		return ContributingFactor{}, err
	}

	score := clamp(*pct, 0, 100)
	detail := fmt.Sprintf("Attendance: %.1f%%", score)
	return NewFactor(FactorAttendance, score, detail), nil
}

// validScoreInput rejects NaN, infinities and grossly out-of-range raw input.
// These are hard errors, never silently coerced to a default.
func validScoreInput(subjectID, field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.NewComputationError(subjectID, field,
			fmt.Sprintf("non-finite value %v for %s", v, field), nil)
	}
	if v < lo || v > hi {
		return apperrors.NewComputationError(subjectID, field,
			fmt.Sprintf("value %.2f for %s outside [%.0f, %.0f]", v, field, lo, hi), nil)
	}
	return nil
}
