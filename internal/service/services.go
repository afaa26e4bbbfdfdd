package service

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/normalize"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/validation"
)

// MetaobjectClient is the subset of the Admin API the services call
type MetaobjectClient interface {
	UpsertMetaobject(ctx context.Context, handle string, fields []models.MetaobjectField) (*models.Metaobject, error)
	UpdateMetaobjectFields(ctx context.Context, id string, fields []models.MetaobjectField) (*models.Metaobject, error)
	PublishMetaobject(ctx context.Context, id string) (*models.Metaobject, error)
	ListMetaobjects(ctx context.Context, first int) ([]models.Metaobject, error)
}

// SingleRequest is one public submission
type SingleRequest struct {
	Record    normalize.Record
	Challenge botfilter.Challenge
}

// SingleResult is returned for an accepted (or silently discarded) submission
type SingleResult struct {
	Discarded  bool
	ID         string
	CreatedAt  time.Time
	Submission *models.ClassSubmission
}

// Submitter is batch-level attribution
type Submitter struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s Submitter) intake() *models.SubmitterIntake {
	return &models.SubmitterIntake{
		Name:  strings.TrimSpace(s.Name),
		Email: strings.TrimSpace(s.Email),
	}
}

// BatchRequest is a JSON bulk submission
type BatchRequest struct {
	Submitter Submitter
	Rows      []normalize.Record
	Challenge botfilter.Challenge
}

// BatchResult is returned when a batch was persisted
type BatchResult struct {
	Discarded bool
	BatchID   string
	Count     int
}

// CSVImportRequest is an operator CSV upload
type CSVImportRequest struct {
	File      io.Reader
	Submitter Submitter
	// Sync upserts each imported row as a draft metaobject after the batch commits
	Sync bool
}

// CSVImportResult reports a CSV import. Errors are "Row N: ..." strings in file order.
type CSVImportResult struct {
	OK         bool     `json:"ok"`
	BatchID    string   `json:"batchId,omitempty"`
	Imported   int      `json:"imported"`
	Synced     int      `json:"synced"`
	Errors     []string `json:"errors"`
	SyncErrors []string `json:"syncErrors,omitempty"`
}

// IntakeService defines the interface for submission intake
type IntakeService interface {
	SubmitSingle(ctx context.Context, req *SingleRequest) (*SingleResult, error)
	SubmitBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error)
	ImportCSV(ctx context.Context, req *CSVImportRequest) (*CSVImportResult, error)
}

// ModerationService defines the interface for the review workflow
type ModerationService interface {
	ListPending(ctx context.Context, limit int) ([]*models.ClassSubmission, error)
	ListPendingMetaobjects(ctx context.Context) ([]models.ReviewEntry, error)
	Approve(ctx context.Context, id string, publish bool) (*models.ModerationResult, error)
	Publish(ctx context.Context, id string) (*models.ModerationResult, error)
	Reject(ctx context.Context, id string) (*models.ModerationResult, error)
	Sync(ctx context.Context, id string) (*models.ModerationResult, error)
	GetSubmission(ctx context.Context, id string) (*models.ClassSubmission, error)
	ListSubmissions(ctx context.Context, status models.Status, limit int) ([]*models.ClassSubmission, error)
	GetBatch(ctx context.Context, id string) (*models.BatchResponse, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamSubmissions(ctx context.Context, w http.ResponseWriter, format string, status models.Status) error
	GetCounts(ctx context.Context) (map[models.Status]int, error)
}

// Services holds all service interfaces
type Services struct {
	Intake     IntakeService
	Moderation ModerationService
	Export     ExportService
}

// NewServices creates all services. shop may be an unconfigured client; calls then
// fail with shopify.ErrNotConfigured.
func NewServices(repos *repository.Repositories, shop MetaobjectClient, filter *botfilter.Filter, cfg *config.Config, log zerolog.Logger) *Services {
	syncer := newMetaobjectSyncer(repos.Submission, shop, cfg.Shopify.StatusFieldKey, log)
	validator := validation.NewValidator()

	return &Services{
		Intake:     newIntakeService(repos, filter, validator, syncer, cfg, log),
		Moderation: newModerationService(repos, shop, syncer, cfg, log),
		Export:     newExportService(repos, log),
	}
}
