package database

import (
	"time"

	"github.com/google/uuid"
)

// Student represents one scored subject
type Student struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RoleStudent is the only role eligible for readiness scoring
const RoleStudent = "student"

// NewStudent creates a new student with a generated ID
func NewStudent(name, email string) *Student {
	now := time.Now()
	return &Student{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TermRecord is one academic term score on a 0-10 scale
type TermRecord struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Term      int       `json:"term" db:"term"`
	Score     float64   `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewTermRecord creates a new term record with a generated ID
func NewTermRecord(studentID string, term int, score float64) *TermRecord {
	return &TermRecord{
		ID:        uuid.New().String(),
		StudentID: studentID,
		Term:      term,
		Score:     score,
		CreatedAt: time.Now(),
	}
}

// InterviewSessionRow is one interview attempt; Score is NULL when the
// session finished without a recorded score.
type InterviewSessionRow struct {
	ID          string    `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	Score       *float64  `json:"score,omitempty" db:"score"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// NewInterviewSessionRow creates a new session row with a generated ID
func NewInterviewSessionRow(studentID string, score *float64, completedAt time.Time) *InterviewSessionRow {
	return &InterviewSessionRow{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		Score:       score,
		CompletedAt: completedAt,
	}
}
