package readiness

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/placementhub/readiness/internal/errors"
)

// fakeSources implements all five provider interfaces with settable data
type fakeSources struct {
	eligible   bool
	terms      []float64
	resume     *ResumeSnapshot
	sessions   []InterviewSession
	scored     int
	attendance *float64

	lastSessionLimit int
}

func (f *fakeSources) Eligible(ctx context.Context, subjectID string) (bool, error) {
	return f.eligible, nil
}

func (f *fakeSources) TermScores(ctx context.Context, subjectID string) ([]float64, error) {
	return f.terms, nil
}

func (f *fakeSources) Resume(ctx context.Context, subjectID string) (*ResumeSnapshot, error) {
	return f.resume, nil
}

func (f *fakeSources) RecentSessions(ctx context.Context, subjectID string, limit int) ([]InterviewSession, error) {
	f.lastSessionLimit = limit
	if len(f.sessions) > limit {
		return f.sessions[:limit], nil
	}
	return f.sessions, nil
}

func (f *fakeSources) ScoredSessionCount(ctx context.Context, subjectID string) (int, error) {
	return f.scored, nil
}

func (f *fakeSources) Percentage(ctx context.Context, subjectID string) (*float64, error) {
	return f.attendance, nil
}

// memStore is an in-memory ProfileStore tracking write counts
type memStore struct {
	mu       sync.Mutex
	profiles map[string]*ReadinessProfile
	upserts  int
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[string]*ReadinessProfile)}
}

func (s *memStore) Profile(ctx context.Context, subjectID string) (*ReadinessProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[subjectID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) UpsertProfile(ctx context.Context, profile *ReadinessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.SubjectID] = &cp
	s.upserts++
	return nil
}

func newTestEngine(sources *fakeSources, store *memStore) *Engine {
	return NewEngine(sources, sources, sources, sources, sources, store)
}

func floatPtr(v float64) *float64 { return &v }

func scoredSessions(scores ...float64) []InterviewSession {
	sessions := make([]InterviewSession, len(scores))
	for i, s := range scores {
		v := s
		sessions[i] = InterviewSession{Score: &v, CompletedAt: time.Now().Add(-time.Duration(i) * time.Hour)}
	}
	return sessions
}

func TestComputeWeightedComposite(t *testing.T) {
	sources := &fakeSources{
		eligible: true,
		terms:    []float64{8, 8},
		resume: &ResumeSnapshot{
			// 60*0.7 + 60*0.3 = 60
			AIScore: 60,
			Sections: ResumeSections{
				PersonalInfo:   PersonalInfo{Name: "Asha Rao", Email: "asha@example.com"},
				Education:      []EducationEntry{{Institution: "NIT Trichy"}},
				Experience:     []ExperienceEntry{{Company: "Acme"}},
				Certifications: []string{"AWS Cloud Practitioner"},
			},
		},
		sessions:   scoredSessions(70, 74),
		attendance: floatPtr(90),
	}
	store := newMemStore()
	engine := newTestEngine(sources, store)

	profile, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	// 80*0.30 + 60*0.25 + 72*0.25 + 90*0.20 = 75
	assert.Equal(t, 75, profile.Composite)
	require.Len(t, profile.Factors, 4)

	academic, _ := profile.Factor(FactorAcademic)
	assert.InDelta(t, 80.0, academic.Score, 1e-9)
	resume, _ := profile.Factor(FactorResumeQuality)
	assert.InDelta(t, 60.0, resume.Score, 1e-9)
	interview, _ := profile.Factor(FactorInterviewPerformance)
	assert.InDelta(t, 72.0, interview.Score, 1e-9)
	attendance, _ := profile.Factor(FactorAttendance)
	assert.InDelta(t, 90.0, attendance.Score, 1e-9)

	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, InterviewSessionLimit, sources.lastSessionLimit)
}

func TestComputeIsDeterministic(t *testing.T) {
	sources := &fakeSources{
		eligible:   true,
		terms:      []float64{7.5, 8.2, 6.9},
		sessions:   scoredSessions(65, 80, 71),
		attendance: floatPtr(82.5),
	}
	store := newMemStore()
	engine := newTestEngine(sources, store)

	first, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		next, err := engine.Compute(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, first.Composite, next.Composite)
		assert.Equal(t, first.Factors, next.Factors)
	}
}

func TestComputeDefaults(t *testing.T) {
	// No data anywhere: academic 50, resume 0, interview 50, attendance 75.
	sources := &fakeSources{eligible: true}
	engine := newTestEngine(sources, newMemStore())

	profile, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	// 50*0.30 + 0*0.25 + 50*0.25 + 75*0.20 = 42.5, rounds to 43
	assert.Equal(t, 43, profile.Composite)

	resume, _ := profile.Factor(FactorResumeQuality)
	assert.Equal(t, "No resume on file", resume.Detail)
	attendance, _ := profile.Factor(FactorAttendance)
	assert.InDelta(t, 75.0, attendance.Score, 1e-9)
}

func TestCompositeBounds(t *testing.T) {
	tests := []struct {
		name      string
		sources   *fakeSources
		composite int
	}{
		{
			name: "all signals at maximum",
			sources: &fakeSources{
				eligible: true,
				terms:    []float64{10, 10},
				resume: &ResumeSnapshot{
					AIScore: 100,
					Sections: ResumeSections{
						PersonalInfo:   PersonalInfo{Name: "A", Email: "a@b.c"},
						Summary:        "A summary easily past twenty characters",
						Education:      []EducationEntry{{Institution: "X"}},
						Experience:     []ExperienceEntry{{Company: "Y"}},
						Skills:         []string{"Go"},
						Projects:       []Project{{Name: "P"}},
						Certifications: []string{"C"},
					},
				},
				sessions:   scoredSessions(100),
				attendance: floatPtr(100),
			},
			composite: 100,
		},
		{
			name: "all signals at minimum",
			sources: &fakeSources{
				eligible:   true,
				terms:      []float64{0},
				resume:     &ResumeSnapshot{AIScore: 0},
				sessions:   scoredSessions(0),
				attendance: floatPtr(0),
			},
			composite: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.sources, newMemStore())
			profile, err := engine.Compute(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.composite, profile.Composite)
		})
	}
}

func TestComputeUnknownSubject(t *testing.T) {
	sources := &fakeSources{eligible: false}
	engine := newTestEngine(sources, newMemStore())

	_, err := engine.Compute(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fakeSources)
	}{
		{"NaN term score", func(s *fakeSources) { s.terms = []float64{8, math.NaN()} }},
		{"infinite term score", func(s *fakeSources) { s.terms = []float64{math.Inf(1)} }},
		{"term score above scale", func(s *fakeSources) { s.terms = []float64{11} }},
		{"negative attendance", func(s *fakeSources) { s.attendance = floatPtr(-1) }},
		{"interview score above 100", func(s *fakeSources) { s.sessions = scoredSessions(120) }},
		{"resume AI score above 100", func(s *fakeSources) { s.resume = &ResumeSnapshot{AIScore: 140} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := &fakeSources{eligible: true, terms: []float64{8}, attendance: floatPtr(90)}
			tt.mutate(sources)
			store := newMemStore()
			engine := newTestEngine(sources, store)

			_, err := engine.Compute(context.Background(), "s1")
			require.Error(t, err)
			assert.True(t, apperrors.IsComputation(err))
			// No partial write happened.
			assert.Equal(t, 0, store.upserts)
		})
	}
}

func TestComputeFailureKeepsPriorProfile(t *testing.T) {
	sources := &fakeSources{eligible: true, terms: []float64{8}}
	store := newMemStore()
	engine := newTestEngine(sources, store)

	first, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	sources.terms = []float64{math.NaN()}
	_, err = engine.Compute(context.Background(), "s1")
	require.Error(t, err)

	stored, err := store.Profile(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, first.Composite, stored.Composite)
}

func TestInterviewFactorSkipsUnscoredSessions(t *testing.T) {
	sessions := scoredSessions(80, 90)
	sessions = append(sessions, InterviewSession{CompletedAt: time.Now()})

	sources := &fakeSources{eligible: true, sessions: sessions}
	engine := newTestEngine(sources, newMemStore())

	profile, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	interview, _ := profile.Factor(FactorInterviewPerformance)
	assert.InDelta(t, 85.0, interview.Score, 1e-9)
}

func TestRecomputeDelta(t *testing.T) {
	sources := &fakeSources{
		eligible:   true,
		terms:      []float64{8, 8},
		sessions:   scoredSessions(70, 74),
		attendance: floatPtr(90),
	}
	store := newMemStore()
	engine := newTestEngine(sources, store)

	first, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	// New interview result shifts the factor between the two reads.
	sources.sessions = scoredSessions(100, 70, 74)

	before, after, err := engine.RecomputeDelta(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, first.Composite, before)
	assert.NotEqual(t, before, after.Composite)
}

func TestRecomputeDeltaWithoutProfile(t *testing.T) {
	sources := &fakeSources{eligible: true}
	engine := newTestEngine(sources, newMemStore())

	_, _, err := engine.RecomputeDelta(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFreshProfile(t *testing.T) {
	sources := &fakeSources{eligible: true, terms: []float64{8}}
	store := newMemStore()
	engine := newTestEngine(sources, store)

	_, err := engine.FreshProfile(context.Background(), "s1", time.Minute)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	computed, err := engine.Compute(context.Background(), "s1")
	require.NoError(t, err)

	// Fresh enough: served from the store without a recompute.
	got, err := engine.FreshProfile(context.Background(), "s1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, computed.Composite, got.Composite)
	assert.Equal(t, 1, store.upserts)

	// Stale: recomputed and persisted again.
	store.mu.Lock()
	store.profiles["s1"].ComputedAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	_, err = engine.FreshProfile(context.Background(), "s1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, store.upserts)
}
