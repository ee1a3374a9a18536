// Package providers supplies the four upstream signal sources the score
// engine pulls from, backed by the relational store. Each provider
// distinguishes "no data" (a legitimate state handled by documented defaults)
// from a query failure.
package providers

import (
	"context"

	"github.com/placementhub/readiness/internal/database"
	"github.com/placementhub/readiness/internal/readiness"
)

// Directory answers subject existence and scoring eligibility
type Directory struct {
	repo *database.Repository
}

// NewDirectory creates a student directory over the repository
func NewDirectory(repo *database.Repository) *Directory {
	return &Directory{repo: repo}
}

// Eligible reports whether the subject exists and holds the student role
func (d *Directory) Eligible(ctx context.Context, subjectID string) (bool, error) {
	student, err := d.repo.Student(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return student != nil && student.Role == database.RoleStudent, nil
}

// Academic serves term scores on a 0-10 scale
type Academic struct {
	repo *database.Repository
}

// NewAcademic creates an academic record provider
func NewAcademic(repo *database.Repository) *Academic {
	return &Academic{repo: repo}
}

// TermScores returns all recorded term scores, oldest term first. An empty
// slice means no data.
func (a *Academic) TermScores(ctx context.Context, subjectID string) ([]float64, error) {
	return a.repo.TermScores(ctx, subjectID)
}

// Resumes serves the stored resume snapshot
type Resumes struct {
	repo *database.Repository
}

// NewResumes creates a resume quality provider
func NewResumes(repo *database.Repository) *Resumes {
	return &Resumes{repo: repo}
}

// Resume returns the subject's resume snapshot, nil when no resume exists
func (r *Resumes) Resume(ctx context.Context, subjectID string) (*readiness.ResumeSnapshot, error) {
	return r.repo.Resume(ctx, subjectID)
}

// Interviews serves completed interview sessions, most recent first
type Interviews struct {
	repo *database.Repository
}

// NewInterviews creates an interview history provider
func NewInterviews(repo *database.Repository) *Interviews {
	return &Interviews{repo: repo}
}

// RecentSessions returns up to limit sessions, most recent first
func (i *Interviews) RecentSessions(ctx context.Context, subjectID string, limit int) ([]readiness.InterviewSession, error) {
	return i.repo.RecentSessions(ctx, subjectID, limit)
}

// ScoredSessionCount returns how many sessions carry a recorded score
func (i *Interviews) ScoredSessionCount(ctx context.Context, subjectID string) (int, error) {
	return i.repo.ScoredSessionCount(ctx, subjectID)
}

// Attendance serves the stored attendance percentage
type Attendance struct {
	repo *database.Repository
}

// NewAttendance creates an attendance provider
func NewAttendance(repo *database.Repository) *Attendance {
	return &Attendance{repo: repo}
}

// Percentage returns the stored attendance percentage, nil when unset
func (a *Attendance) Percentage(ctx context.Context, subjectID string) (*float64, error) {
	return a.repo.Attendance(ctx, subjectID)
}
