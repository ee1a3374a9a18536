// Package lifecycle manages per-subject intervention records through a small
// state machine: in_progress -> completed | dismissed. The recommended state
// is virtual; a candidate only becomes a record once started.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/placementhub/readiness/internal/catalog"
	apperrors "github.com/placementhub/readiness/internal/errors"
	"github.com/placementhub/readiness/internal/readiness"
)

// Status is the persisted state of an intervention record
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDismissed  Status = "dismissed"
)

// terminal reports whether a status admits no further transitions
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusDismissed
}

// InterventionRecord is one attempted action for a subject. ProjectedDelta is
// copied from the catalog at creation; ActualDelta is measured on completion
// and the two are independent.
type InterventionRecord struct {
	ID             string                   `json:"id"`
	SubjectID      string                   `json:"subject_id"`
	Type           catalog.InterventionType `json:"type"`
	Status         Status                   `json:"status"`
	ProjectedDelta int                      `json:"projected_delta"`
	ActualDelta    *int                     `json:"actual_delta,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
}

// RecordStore persists intervention records
type RecordStore interface {
	InsertIntervention(ctx context.Context, record *InterventionRecord) error
	Intervention(ctx context.Context, subjectID, recordID string) (*InterventionRecord, error)
	UpdateIntervention(ctx context.Context, record *InterventionRecord) error
	InterventionsBySubject(ctx context.Context, subjectID string) ([]InterventionRecord, error)
}

// Manager drives intervention records through the state machine
type Manager struct {
	store     RecordStore
	catalog   *catalog.Catalog
	scores    *readiness.Engine
	directory readiness.StudentDirectory

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates an intervention lifecycle manager
func NewManager(store RecordStore, cat *catalog.Catalog, scores *readiness.Engine, directory readiness.StudentDirectory) *Manager {
	return &Manager{
		store:     store,
		catalog:   cat,
		scores:    scores,
		directory: directory,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) subjectLock(subjectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[subjectID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[subjectID] = lock
	}
	return lock
}

// Start commits a subject to an intervention. The type must exist in the
// catalog. Multiple interventions may run in parallel for one subject.
func (m *Manager) Start(ctx context.Context, subjectID string, t catalog.InterventionType) (*InterventionRecord, error) {
	def, ok := m.catalog.Lookup(t)
	if !ok {
		return nil, apperrors.NewInvalidArgumentError("type",
			fmt.Sprintf("unknown intervention type %q", t))
	}

	eligible, err := m.directory.Eligible(ctx, subjectID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to resolve subject %s", subjectID)
	}
	if !eligible {
		return nil, apperrors.NewNotFoundError("student", subjectID)
	}

	record := &InterventionRecord{
		ID:             uuid.New().String(),
		SubjectID:      subjectID,
		Type:           t,
		Status:         StatusInProgress,
		ProjectedDelta: def.ScoreDelta,
		CreatedAt:      time.Now(),
	}

	if err := m.store.InsertIntervention(ctx, record); err != nil {
		return nil, apperrors.WrapError(err, "failed to create intervention for subject %s", subjectID)
	}

	slog.Info("Intervention started",
		"subject_id", subjectID,
		"record_id", record.ID,
		"type", t,
		"projected_delta", def.ScoreDelta,
	)

	return record, nil
}

// Complete finishes an intervention and measures its actual effect: the last
// persisted composite is the stable pre-baseline, a forced recompute yields
// the post value, and actualDelta is their difference. Re-completing a
// terminal record is a conflict, never an idempotent no-op, because the delta
// must not be measured twice against a moved baseline. Completion is
// serialized per subject.
func (m *Manager) Complete(ctx context.Context, subjectID, recordID string) (*InterventionRecord, error) {
	lock := m.subjectLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	record, err := m.store.Intervention(ctx, subjectID, recordID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read intervention %s", recordID)
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("intervention", recordID)
	}
	if record.Status.terminal() {
		return nil, apperrors.NewConflictError("intervention", recordID,
			fmt.Sprintf("intervention already %s", record.Status))
	}

	before, after, err := m.scores.RecomputeDelta(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	actual := after.Composite - before
	now := time.Now()
	record.Status = StatusCompleted
	record.ActualDelta = &actual
	record.CompletedAt = &now

	if err := m.store.UpdateIntervention(ctx, record); err != nil {
		return nil, apperrors.WrapError(err, "failed to update intervention %s", recordID)
	}

	slog.Info("Intervention completed",
		"subject_id", subjectID,
		"record_id", recordID,
		"projected_delta", record.ProjectedDelta,
		"actual_delta", actual,
	)

	return record, nil
}

// Dismiss abandons an intervention without measuring any effect
func (m *Manager) Dismiss(ctx context.Context, subjectID, recordID string) (*InterventionRecord, error) {
	lock := m.subjectLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	record, err := m.store.Intervention(ctx, subjectID, recordID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read intervention %s", recordID)
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("intervention", recordID)
	}
	if record.Status.terminal() {
		return nil, apperrors.NewConflictError("intervention", recordID,
			fmt.Sprintf("intervention already %s", record.Status))
	}

	record.Status = StatusDismissed
	if err := m.store.UpdateIntervention(ctx, record); err != nil {
		return nil, apperrors.WrapError(err, "failed to update intervention %s", recordID)
	}

	slog.Info("Intervention dismissed", "subject_id", subjectID, "record_id", recordID)

	return record, nil
}

// List returns all intervention records for a subject, newest first
func (m *Manager) List(ctx context.Context, subjectID string) ([]InterventionRecord, error) {
	records, err := m.store.InterventionsBySubject(ctx, subjectID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list interventions for subject %s", subjectID)
	}
	return records, nil
}
