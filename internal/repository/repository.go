package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/leathercraft-class-submissions/internal/database"
	"github.com/leathercraft-class-submissions/internal/models"
)

var (
	// ErrNotFound is returned by updates that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateHandle is returned when a handle is already taken
	ErrDuplicateHandle = errors.New("handle already exists")
)

// SubmissionRepository defines the interface for class submission data operations
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.ClassSubmission) error
	GetByID(ctx context.Context, id string) (*models.ClassSubmission, error)
	GetByMetaobjectID(ctx context.Context, metaobjectID string) (*models.ClassSubmission, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	List(ctx context.Context, status models.Status, limit int) ([]*models.ClassSubmission, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	// UpdateModeration sets the workflow status and, when non-empty, the metaobject id
	UpdateModeration(ctx context.Context, id string, status models.Status, metaobjectID string) error
	MarkPublished(ctx context.Context, id string, at time.Time) error
	StreamAll(ctx context.Context, status models.Status, callback func(*models.ClassSubmission) error) error
}

// BatchRepository defines the interface for submission batch data operations
type BatchRepository interface {
	// CreateWithSubmissions writes the batch and all of its rows in one transaction
	CreateWithSubmissions(ctx context.Context, batch *models.SubmissionBatch, subs []*models.ClassSubmission) (int, error)
	GetByID(ctx context.Context, id string) (*models.SubmissionBatch, error)
	ListSubmissions(ctx context.Context, batchID string) ([]*models.ClassSubmission, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Submission SubmissionRepository
	Batch      BatchRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Submission: NewSubmissionRepo(db),
		Batch:      NewBatchRepo(db),
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
