package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/placementhub/readiness/internal/catalog"
	"github.com/placementhub/readiness/internal/lifecycle"
	"github.com/placementhub/readiness/internal/readiness"
)

// Repository handles database operations for students, their raw signal data,
// readiness profiles and intervention records.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateStudent inserts a new student
func (r *Repository) CreateStudent(ctx context.Context, student *Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, student.ID, student.Name, student.Email, student.Role, student.CreatedAt, student.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// Student returns a student by id, nil when absent
func (r *Repository) Student(ctx context.Context, id string) (*Student, error) {
	var student Student
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at, updated_at
		FROM students WHERE id = ?
	`, id).Scan(
		&student.ID, &student.Name, &student.Email, &student.Role,
		&student.CreatedAt, &student.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query student: %w", err)
	}

	return &student, nil
}

// AddTermScore records one academic term score
func (r *Repository) AddTermScore(ctx context.Context, record *TermRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO term_records (id, student_id, term, score, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.StudentID, record.Term, record.Score, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to add term score: %w", err)
	}

	return nil
}

// TermScores returns all term scores for a student, oldest term first
func (r *Repository) TermScores(ctx context.Context, studentID string) ([]float64, error) {
	stmt, err := r.db.GetPreparedStatement("get_term_scores")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query term scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("failed to scan term score: %w", err)
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

// UpsertResume stores the current resume snapshot for a student
func (r *Repository) UpsertResume(ctx context.Context, studentID string, snapshot *readiness.ResumeSnapshot) error {
	sections, err := json.Marshal(snapshot.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal resume sections: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO resumes (student_id, ai_score, sections, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
		ai_score = excluded.ai_score,
		sections = excluded.sections,
		updated_at = excluded.updated_at
	`, studentID, snapshot.AIScore, string(sections), time.Now())

	if err != nil {
		return fmt.Errorf("failed to upsert resume: %w", err)
	}

	return nil
}

// Resume returns the stored resume snapshot, nil when no resume exists
func (r *Repository) Resume(ctx context.Context, studentID string) (*readiness.ResumeSnapshot, error) {
	var aiScore float64
	var sectionsJSON string

	err := r.db.QueryRowContext(ctx, `
		SELECT ai_score, sections FROM resumes WHERE student_id = ?
	`, studentID).Scan(&aiScore, &sectionsJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resume: %w", err)
	}

	var sections readiness.ResumeSections
	if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume sections: %w", err)
	}

	return &readiness.ResumeSnapshot{AIScore: aiScore, Sections: sections}, nil
}

// AddInterviewSession records one completed interview session
func (r *Repository) AddInterviewSession(ctx context.Context, row *InterviewSessionRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interview_sessions (id, student_id, score, completed_at)
		VALUES (?, ?, ?, ?)
	`, row.ID, row.StudentID, row.Score, row.CompletedAt)

	if err != nil {
		return fmt.Errorf("failed to add interview session: %w", err)
	}

	return nil
}

// RecentSessions returns up to limit sessions, most recent first
func (r *Repository) RecentSessions(ctx context.Context, studentID string, limit int) ([]readiness.InterviewSession, error) {
	stmt, err := r.db.GetPreparedStatement("get_recent_sessions")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interview sessions: %w", err)
	}
	defer rows.Close()

	var sessions []readiness.InterviewSession
	for rows.Next() {
		var score sql.NullFloat64
		var completedAt time.Time
		if err := rows.Scan(&score, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interview session: %w", err)
		}
		session := readiness.InterviewSession{CompletedAt: completedAt}
		if score.Valid {
			v := score.Float64
			session.Score = &v
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// ScoredSessionCount returns how many sessions have a recorded score
func (r *Repository) ScoredSessionCount(ctx context.Context, studentID string) (int, error) {
	stmt, err := r.db.GetPreparedStatement("count_scored_sessions")
	if err != nil {
		return 0, err
	}

	var count int
	if err := stmt.QueryRowContext(ctx, studentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interview sessions: %w", err)
	}

	return count, nil
}

// UpsertAttendance stores the current attendance percentage
func (r *Repository) UpsertAttendance(ctx context.Context, studentID string, percentage float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, percentage, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
		percentage = excluded.percentage,
		updated_at = excluded.updated_at
	`, studentID, percentage, time.Now())

	if err != nil {
		return fmt.Errorf("failed to upsert attendance: %w", err)
	}

	return nil
}

// Attendance returns the stored percentage, nil when unset
func (r *Repository) Attendance(ctx context.Context, studentID string) (*float64, error) {
	var pct float64
	err := r.db.QueryRowContext(ctx, `
		SELECT percentage FROM attendance WHERE student_id = ?
	`, studentID).Scan(&pct)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}

	return &pct, nil
}

// Profile returns the persisted readiness profile, nil when absent.
// Implements readiness.ProfileStore.
func (r *Repository) Profile(ctx context.Context, subjectID string) (*readiness.ReadinessProfile, error) {
	stmt, err := r.db.GetPreparedStatement("get_profile")
	if err != nil {
		return nil, err
	}

	var profile readiness.ReadinessProfile
	var factorsJSON string

	err = stmt.QueryRowContext(ctx, subjectID).Scan(
		&profile.SubjectID, &profile.Composite, &factorsJSON, &profile.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	if err := json.Unmarshal([]byte(factorsJSON), &profile.Factors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile factors: %w", err)
	}

	return &profile, nil
}

// UpsertProfile creates or replaces the subject's readiness profile.
// Implements readiness.ProfileStore.
func (r *Repository) UpsertProfile(ctx context.Context, profile *readiness.ReadinessProfile) error {
	factors, err := json.Marshal(profile.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal profile factors: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("upsert_profile")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, profile.SubjectID, profile.Composite, string(factors), profile.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// InsertIntervention stores a new intervention record.
// Implements lifecycle.RecordStore.
func (r *Repository) InsertIntervention(ctx context.Context, record *lifecycle.InterventionRecord) error {
	stmt, err := r.db.GetPreparedStatement("insert_intervention")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		record.ID, record.SubjectID, string(record.Type), string(record.Status),
		record.ProjectedDelta, record.ActualDelta, record.CreatedAt, record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert intervention: %w", err)
	}

	return nil
}

// Intervention returns one record scoped to its subject, nil when absent.
// Implements lifecycle.RecordStore.
func (r *Repository) Intervention(ctx context.Context, subjectID, recordID string) (*lifecycle.InterventionRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_intervention")
	if err != nil {
		return nil, err
	}

	record, err := scanIntervention(stmt.QueryRowContext(ctx, subjectID, recordID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query intervention: %w", err)
	}

	return record, nil
}

// UpdateIntervention persists a state transition.
// Implements lifecycle.RecordStore.
func (r *Repository) UpdateIntervention(ctx context.Context, record *lifecycle.InterventionRecord) error {
	stmt, err := r.db.GetPreparedStatement("update_intervention")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, string(record.Status), record.ActualDelta, record.CompletedAt, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update intervention: %w", err)
	}

	return nil
}

// InterventionsBySubject returns all records for a subject, newest first.
// Implements lifecycle.RecordStore.
func (r *Repository) InterventionsBySubject(ctx context.Context, subjectID string) ([]lifecycle.InterventionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, type, status, projected_delta, actual_delta, created_at, completed_at
		FROM interventions WHERE subject_id = ? ORDER BY created_at DESC
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interventions: %w", err)
	}
	defer rows.Close()

	var records []lifecycle.InterventionRecord
	for rows.Next() {
		record, err := scanIntervention(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intervention: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntervention(row rowScanner) (*lifecycle.InterventionRecord, error) {
	var record lifecycle.InterventionRecord
	var typ, status string
	var actualDelta sql.NullInt64
	var completedAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.SubjectID, &typ, &status,
		&record.ProjectedDelta, &actualDelta, &record.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Type = catalog.InterventionType(typ)
	record.Status = lifecycle.Status(status)
	if actualDelta.Valid {
		v := int(actualDelta.Int64)
		record.ActualDelta = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}

	return &record, nil
}
