package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/normalize"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/validation"
)

const maxHandleAttempts = 5

// intakeService is the concrete implementation of IntakeService
type intakeService struct {
	repos       *repository.Repositories
	filter      *botfilter.Filter
	validator   *validation.Validator
	syncer      *metaobjectSyncer
	syncEnabled bool
	cfg         *config.Config
	log         zerolog.Logger
}

// newIntakeService creates a new IntakeService
func newIntakeService(repos *repository.Repositories, filter *botfilter.Filter, validator *validation.Validator, syncer *metaobjectSyncer, cfg *config.Config, log zerolog.Logger) *intakeService {
	return &intakeService{
		repos:       repos,
		filter:      filter,
		validator:   validator,
		syncer:      syncer,
		syncEnabled: cfg.Shopify.Enabled(),
		cfg:         cfg,
		log:         log.With().Str("service", "intake").Logger(),
	}
}

// SubmitSingle screens, validates and stores one pending submission
func (s *intakeService) SubmitSingle(ctx context.Context, req *SingleRequest) (*SingleResult, error) {
	switch d := s.filter.Check(ctx, req.Challenge); d.Action {
	case botfilter.Discard:
		return &SingleResult{Discarded: true}, nil
	case botfilter.Reject:
		return nil, &botfilter.Rejection{Reason: d.Reason, Details: d.Details}
	}

	in := normalize.FromRecord(req.Record)
	if errs := s.validator.Validate(&in); len(errs) > 0 {
		return nil, errs
	}

	var sub *models.ClassSubmission
	for attempt := 0; ; attempt++ {
		var err error
		sub, err = s.newSubmission(ctx, in, map[string]bool{}, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		err = s.repos.Submission.Create(ctx, sub)
		if err == nil {
			break
		}
		// A concurrent insert can take the handle between the check and the write
		if errors.Is(err, repository.ErrDuplicateHandle) && attempt == 0 {
			s.log.Warn().Str("handle", sub.Handle).Msg("Handle taken during insert, retrying")
			continue
		}
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("handle", sub.Handle).
		Msg("Submission received")

	return &SingleResult{ID: sub.ID, CreatedAt: sub.CreatedAt, Submission: sub}, nil
}

// SubmitBatch stores all rows of a JSON batch or none of them
func (s *intakeService) SubmitBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	switch d := s.filter.Check(ctx, req.Challenge); d.Action {
	case botfilter.Discard:
		return &BatchResult{Discarded: true}, nil
	case botfilter.Reject:
		return nil, &botfilter.Rejection{Reason: d.Reason, Details: d.Details}
	}

	if errs := s.validator.ValidateSubmitter(req.Submitter.intake()); len(errs) > 0 {
		return nil, errs
	}
	if err := validation.CheckBatchSize(len(req.Rows), s.cfg.Intake.MinBatchRows, s.cfg.Intake.MaxBatchRows); err != nil {
		return nil, err
	}

	intakes := make([]models.ClassIntake, 0, len(req.Rows))
	var rowErrors []models.RowError
	for i, rec := range req.Rows {
		in := normalize.WithSubmitter(normalize.FromRecord(rec), req.Submitter.Name, req.Submitter.Email)
		if errs := s.validator.Validate(&in); len(errs) > 0 {
			rowErrors = append(rowErrors, models.RowError{Row: i + 1, Errors: errs.Map()})
			continue
		}
		intakes = append(intakes, in)
	}
	if len(rowErrors) > 0 {
		s.log.Info().
			Int("rows", len(req.Rows)).
			Int("invalid_rows", len(rowErrors)).
			Msg("Batch rejected")
		return nil, &BatchValidationError{RowErrors: rowErrors}
	}

	batch, subs, err := s.buildBatch(ctx, intakes, req.Submitter, models.BatchSourceAPI)
	if err != nil {
		return nil, err
	}

	count, err := s.repos.Batch.CreateWithSubmissions(ctx, batch, subs)
	if err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	s.log.Info().
		Str("batch_id", batch.ID).
		Int("count", count).
		Msg("Batch received")

	return &BatchResult{BatchID: batch.ID, Count: count}, nil
}

// buildBatch assigns ids and unique handles. Attribution falls back to the first row.
func (s *intakeService) buildBatch(ctx context.Context, intakes []models.ClassIntake, submitter Submitter, source models.BatchSource) (*models.SubmissionBatch, []*models.ClassSubmission, error) {
	now := time.Now().UTC()
	batch := &models.SubmissionBatch{
		ID:               uuid.New().String(),
		SubmittedByName:  strings.TrimSpace(submitter.Name),
		SubmittedByEmail: strings.TrimSpace(submitter.Email),
		Source:           source,
		Status:           models.StatusPending,
		CreatedAt:        now,
	}
	if batch.SubmittedByName == "" || batch.SubmittedByEmail == "" {
		batch.SubmittedByName = intakes[0].SubmittedByName
		batch.SubmittedByEmail = intakes[0].SubmittedByEmail
	}

	taken := make(map[string]bool, len(intakes))
	subs := make([]*models.ClassSubmission, 0, len(intakes))
	for _, in := range intakes {
		sub, err := s.newSubmission(ctx, in, taken, now)
		if err != nil {
			return nil, nil, err
		}
		sub.BatchID = &batch.ID
		subs = append(subs, sub)
	}
	return batch, subs, nil
}

// newSubmission turns a validated intake record into a pending submission
func (s *intakeService) newSubmission(ctx context.Context, in models.ClassIntake, taken map[string]bool, now time.Time) (*models.ClassSubmission, error) {
	start, err := time.Parse(time.RFC3339, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start date %q passed validation but did not parse: %w", in.StartDate, err)
	}

	handle, err := s.uniqueHandle(ctx, in, taken)
	if err != nil {
		return nil, err
	}

	return &models.ClassSubmission{
		ID:               uuid.New().String(),
		Handle:           handle,
		SubmittedByName:  in.SubmittedByName,
		SubmittedByEmail: in.SubmittedByEmail,
		Title:            in.Title,
		URL:              in.URL,
		Description:      in.Description,
		InstructorName:   in.InstructorName,
		Format:           in.Format,
		Topic:            in.Topic,
		City:             in.City,
		State:            in.State,
		Cost:             in.Cost,
		StartDate:        start.UTC(),
		Status:           models.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// uniqueHandle picks a handle not used in the store or earlier in the same batch.
// Supplied external ids get a random suffix on collision; derived handles are rebuilt.
func (s *intakeService) uniqueHandle(ctx context.Context, in models.ClassIntake, taken map[string]bool) (string, error) {
	maxLen := s.cfg.Intake.HandleMaxLength
	handle := normalize.Handle(in, maxLen)
	base := handle

	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		if !taken[handle] {
			exists, err := s.repos.Submission.HandleExists(ctx, handle)
			if err != nil {
				return "", fmt.Errorf("failed to check handle: %w", err)
			}
			if !exists {
				taken[handle] = true
				return handle, nil
			}
		}

		if in.ExternalID != "" {
			handle = suffixed(base, maxLen)
		} else {
			handle = normalize.Handle(in, maxLen)
		}
	}
	return "", fmt.Errorf("could not allocate a unique handle for %q", base)
}

func suffixed(base string, maxLen int) string {
	if limit := maxLen - normalize.SuffixLength - 1; limit > 0 && len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return normalize.WithSuffix(base)
}
