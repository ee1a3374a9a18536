package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementhub/readiness/internal/catalog"
	"github.com/placementhub/readiness/internal/lifecycle"
	"github.com/placementhub/readiness/internal/readiness"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func createStudent(t *testing.T, repo *Repository) *Student {
	t.Helper()
	student := NewStudent("Asha Rao", "asha@example.com")
	require.NoError(t, repo.CreateStudent(context.Background(), student))
	return student
}

func TestStudentRoundtrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := createStudent(t, repo)

	got, err := repo.Student(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, RoleStudent, got.Role)
}

func TestStudentMissing(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.Student(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTermScoresOrderedByTerm(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	// Inserted out of order; reads must come back term-ascending.
	require.NoError(t, repo.AddTermScore(ctx, NewTermRecord(student.ID, 2, 7.5)))
	require.NoError(t, repo.AddTermScore(ctx, NewTermRecord(student.ID, 1, 6.0)))
	require.NoError(t, repo.AddTermScore(ctx, NewTermRecord(student.ID, 3, 8.5)))

	scores, err := repo.TermScores(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{6.0, 7.5, 8.5}, scores)
}

func TestTermScoresEmpty(t *testing.T) {
	repo := setupRepo(t)
	student := createStudent(t, repo)

	scores, err := repo.TermScores(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestResumeRoundtrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	got, err := repo.Resume(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	snapshot := &readiness.ResumeSnapshot{
		AIScore: 72,
		Sections: readiness.ResumeSections{
			PersonalInfo: readiness.PersonalInfo{Name: "Asha Rao", Email: "asha@example.com"},
			Skills:       []string{"Go", "SQL"},
			Projects:     []readiness.Project{{Name: "Inventory API"}},
		},
	}
	require.NoError(t, repo.UpsertResume(ctx, student.ID, snapshot))

	got, err = repo.Resume(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 72.0, got.AIScore)
	assert.Equal(t, snapshot.Sections.Skills, got.Sections.Skills)
	assert.Equal(t, 1, got.Sections.ProjectCount())

	// Upsert replaces, never appends.
	snapshot.AIScore = 85
	require.NoError(t, repo.UpsertResume(ctx, student.ID, snapshot))

	got, err = repo.Resume(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.AIScore)
}

func TestRecentSessionsOrderAndLimit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	base := time.Now().Add(-10 * time.Hour).Truncate(time.Second)
	for i, score := range []float64{60, 65, 70, 75, 80, 85} {
		v := score
		row := NewInterviewSessionRow(student.ID, &v, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.AddInterviewSession(ctx, row))
	}

	sessions, err := repo.RecentSessions(ctx, student.ID, 5)
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	// Most recent first, oldest session dropped by the limit.
	require.NotNil(t, sessions[0].Score)
	assert.Equal(t, 85.0, *sessions[0].Score)
	assert.Equal(t, 65.0, *sessions[4].Score)
}

func TestRecentSessionsNullScore(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	require.NoError(t, repo.AddInterviewSession(ctx, NewInterviewSessionRow(student.ID, nil, time.Now())))

	sessions, err := repo.RecentSessions(ctx, student.ID, 5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].Score)
}

func TestScoredSessionCount(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	score := 70.0
	require.NoError(t, repo.AddInterviewSession(ctx, NewInterviewSessionRow(student.ID, &score, time.Now())))
	require.NoError(t, repo.AddInterviewSession(ctx, NewInterviewSessionRow(student.ID, nil, time.Now())))

	count, err := repo.ScoredSessionCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAttendanceUpsert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	pct, err := repo.Attendance(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, pct)

	require.NoError(t, repo.UpsertAttendance(ctx, student.ID, 82.5))
	require.NoError(t, repo.UpsertAttendance(ctx, student.ID, 91.0))

	pct, err = repo.Attendance(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, pct)
	assert.Equal(t, 91.0, *pct)
}

func TestProfileUpsert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	got, err := repo.Profile(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	profile := &readiness.ReadinessProfile{
		SubjectID: student.ID,
		Composite: 75,
		Factors: []readiness.ContributingFactor{
			readiness.NewFactor(readiness.FactorAcademic, 80, "Average term score: 8.0/10 over 2 terms"),
			readiness.NewFactor(readiness.FactorAttendance, 90, "Attendance: 90.0%"),
		},
		ComputedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, repo.UpsertProfile(ctx, profile))

	got, err = repo.Profile(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 75, got.Composite)
	require.Len(t, got.Factors, 2)
	assert.Equal(t, readiness.FactorAcademic, got.Factors[0].Label)
	assert.InDelta(t, 24.0, got.Factors[0].Impact, 1e-9)

	// Replace, not append.
	profile.Composite = 80
	require.NoError(t, repo.UpsertProfile(ctx, profile))

	got, err = repo.Profile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Composite)
}

func TestInterventionLifecyclePersistence(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	record := &lifecycle.InterventionRecord{
		ID:             "rec-1",
		SubjectID:      student.ID,
		Type:           catalog.MockInterview,
		Status:         lifecycle.StatusInProgress,
		ProjectedDelta: 12,
		CreatedAt:      time.Now().Truncate(time.Second),
	}
	require.NoError(t, repo.InsertIntervention(ctx, record))

	got, err := repo.Intervention(ctx, student.ID, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lifecycle.StatusInProgress, got.Status)
	assert.Nil(t, got.ActualDelta)
	assert.Nil(t, got.CompletedAt)

	actual := 6
	now := time.Now().Truncate(time.Second)
	record.Status = lifecycle.StatusCompleted
	record.ActualDelta = &actual
	record.CompletedAt = &now
	require.NoError(t, repo.UpdateIntervention(ctx, record))

	got, err = repo.Intervention(ctx, student.ID, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lifecycle.StatusCompleted, got.Status)
	require.NotNil(t, got.ActualDelta)
	assert.Equal(t, 6, *got.ActualDelta)
	require.NotNil(t, got.CompletedAt)
}

func TestInterventionScopedToSubject(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	record := &lifecycle.InterventionRecord{
		ID:             "rec-1",
		SubjectID:      student.ID,
		Type:           catalog.SkillTraining,
		Status:         lifecycle.StatusInProgress,
		ProjectedDelta: 8,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repo.InsertIntervention(ctx, record))

	got, err := repo.Intervention(ctx, "other-subject", "rec-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInterventionsBySubjectNewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	student := createStudent(t, repo)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i, id := range []string{"rec-a", "rec-b", "rec-c"} {
		record := &lifecycle.InterventionRecord{
			ID:             id,
			SubjectID:      student.ID,
			Type:           catalog.SkillTraining,
			Status:         lifecycle.StatusInProgress,
			ProjectedDelta: 8,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.InsertIntervention(ctx, record))
	}

	records, err := repo.InterventionsBySubject(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rec-c", records[0].ID)
	assert.Equal(t, "rec-a", records[2].ID)
}
