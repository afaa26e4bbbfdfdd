package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/normalize"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/shopify"
)

// moderationService is the concrete implementation of ModerationService.
// The store owns workflow status and publish time; the metaobject mirrors them.
// Every external call happens before the matching store write, so a user error
// from the Admin API leaves the stored state untouched.
type moderationService struct {
	repos       *repository.Repositories
	shop        MetaobjectClient
	syncer      *metaobjectSyncer
	shopEnabled bool
	statusKey   string
	pageSize    int
	log         zerolog.Logger
}

// newModerationService creates a new ModerationService
func newModerationService(repos *repository.Repositories, shop MetaobjectClient, syncer *metaobjectSyncer, cfg *config.Config, log zerolog.Logger) *moderationService {
	return &moderationService{
		repos:       repos,
		shop:        shop,
		syncer:      syncer,
		shopEnabled: cfg.Shopify.Enabled(),
		statusKey:   cfg.Shopify.StatusFieldKey,
		pageSize:    cfg.Shopify.ListPageSize,
		log:         log.With().Str("service", "moderation").Logger(),
	}
}

// ListPending returns pending submissions from the store, oldest first
func (s *moderationService) ListPending(ctx context.Context, limit int) ([]*models.ClassSubmission, error) {
	return s.repos.Submission.List(ctx, models.StatusPending, limit)
}

// ListPendingMetaobjects fetches one page of metaobjects and keeps those whose status
// field reads pending. The API cannot filter on field values, so this happens here.
func (s *moderationService) ListPendingMetaobjects(ctx context.Context) ([]models.ReviewEntry, error) {
	if !s.shopEnabled {
		return nil, shopify.ErrNotConfigured
	}

	objects, err := s.shop.ListMetaobjects(ctx, s.pageSize)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ReviewEntry, 0, len(objects))
	for i := range objects {
		m := &objects[i]
		status, _ := models.ParseStatus(m.Field(s.statusKey))
		if status != models.StatusPending {
			continue
		}

		entry := reviewEntry(m, status)
		sub, err := s.repos.Submission.GetByMetaobjectID(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up metaobject %s: %w", m.ID, err)
		}
		if sub != nil {
			entry.SubmissionID = sub.ID
			entry.WorkflowStatus = sub.Status
			entry.Published = sub.Published()
		}
		entries = append(entries, entry)
	}

	s.log.Debug().
		Int("fetched", len(objects)).
		Int("pending", len(entries)).
		Msg("Pending metaobjects listed")

	return entries, nil
}

// Approve moves an entry to approved, optionally publishing it in the same call.
// Approving an approved entry repeats the status write and succeeds.
func (s *moderationService) Approve(ctx context.Context, id string, publish bool) (*models.ModerationResult, error) {
	sub, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return s.approveExternal(ctx, id, publish)
	}

	if sub.Status == models.StatusRejected {
		return nil, transitionError(sub.Status, "approve")
	}

	if err := s.pushStatus(ctx, sub, models.StatusApproved); err != nil {
		return nil, err
	}
	if err := s.repos.Submission.UpdateModeration(ctx, sub.ID, models.StatusApproved, sub.MetaobjectID); err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}
	sub.Status = models.StatusApproved

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("metaobject_id", sub.MetaobjectID).
		Bool("publish", publish).
		Msg("Submission approved")

	if !publish {
		return result(sub, "Approved."), nil
	}
	if err := s.publish(ctx, sub); err != nil {
		return nil, &PartialError{Result: result(sub, "Approved, not published."), Err: err}
	}
	return result(sub, "Approved and published."), nil
}

// Publish makes an approved entry's metaobject active. Publishing twice is a no-op.
func (s *moderationService) Publish(ctx context.Context, id string) (*models.ModerationResult, error) {
	sub, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		if err := s.publishMetaobject(ctx, id); err != nil {
			return nil, err
		}
		return &models.ModerationResult{ID: id, MetaobjectID: id, Published: true, Message: "Published."}, nil
	}

	if sub.Status != models.StatusApproved {
		return nil, transitionError(sub.Status, "publish")
	}
	if sub.Published() {
		return result(sub, "Already published."), nil
	}

	if err := s.publish(ctx, sub); err != nil {
		return nil, err
	}
	return result(sub, "Published."), nil
}

// Reject moves a pending entry to rejected. Rejecting twice succeeds.
func (s *moderationService) Reject(ctx context.Context, id string) (*models.ModerationResult, error) {
	sub, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		if _, err := s.shop.UpdateMetaobjectFields(ctx, id, shopify.StatusField(s.statusKey, models.StatusRejected)); err != nil {
			return nil, err
		}
		return &models.ModerationResult{ID: id, MetaobjectID: id, Status: models.StatusRejected, Message: "Rejected."}, nil
	}

	if sub.Status == models.StatusApproved {
		return nil, transitionError(sub.Status, "reject")
	}

	if sub.MetaobjectID != "" && s.shopEnabled {
		if _, err := s.shop.UpdateMetaobjectFields(ctx, sub.MetaobjectID, shopify.StatusField(s.statusKey, models.StatusRejected)); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Submission.UpdateModeration(ctx, sub.ID, models.StatusRejected, ""); err != nil {
		return nil, fmt.Errorf("failed to record rejection: %w", err)
	}
	sub.Status = models.StatusRejected

	s.log.Info().Str("submission_id", sub.ID).Msg("Submission rejected")
	return result(sub, "Rejected."), nil
}

// Sync re-upserts a stored submission's metaobject from the store
func (s *moderationService) Sync(ctx context.Context, id string) (*models.ModerationResult, error) {
	sub, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if !s.shopEnabled {
		return nil, shopify.ErrNotConfigured
	}

	if _, err := s.syncer.Sync(ctx, sub); err != nil {
		return nil, err
	}
	return result(sub, "Synced."), nil
}

// GetSubmission returns a submission by store id or metaobject id
func (s *moderationService) GetSubmission(ctx context.Context, id string) (*models.ClassSubmission, error) {
	sub, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

// ListSubmissions lists stored submissions, optionally filtered by status
func (s *moderationService) ListSubmissions(ctx context.Context, status models.Status, limit int) ([]*models.ClassSubmission, error) {
	return s.repos.Submission.List(ctx, status, limit)
}

// GetBatch returns a batch with its rows
func (s *moderationService) GetBatch(ctx context.Context, id string) (*models.BatchResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	batch, err := s.repos.Batch.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}

	subs, err := s.repos.Batch.ListSubmissions(ctx, id)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []*models.ClassSubmission{}
	}
	resp := &models.BatchResponse{SubmissionBatch: *batch, Submissions: subs}
	if len(subs) > 0 {
		resp.Status = batchStatus(subs)
	}
	return resp, nil
}

// batchStatus stays pending while any row awaits review. A fully decided batch
// is rejected only when every row was rejected.
func batchStatus(subs []*models.ClassSubmission) models.Status {
	status := models.StatusRejected
	for _, sub := range subs {
		switch sub.Status {
		case models.StatusPending:
			return models.StatusPending
		case models.StatusApproved:
			status = models.StatusApproved
		}
	}
	return status
}

// resolve maps an id to a stored submission. A metaobject GID with no stored row
// yields nil, nil so callers can act on the metaobject alone.
func (s *moderationService) resolve(ctx context.Context, id string) (*models.ClassSubmission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	if strings.HasPrefix(id, "gid://") {
		return s.repos.Submission.GetByMetaobjectID(ctx, id)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	sub, err := s.repos.Submission.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

// pushStatus writes status to the metaobject, creating it first if the submission
// was never synced. Without Shopify configured only the store changes.
func (s *moderationService) pushStatus(ctx context.Context, sub *models.ClassSubmission, status models.Status) error {
	if !s.shopEnabled {
		return nil
	}

	if sub.MetaobjectID == "" {
		next := *sub
		next.Status = status
		if _, err := s.syncer.Sync(ctx, &next); err != nil {
			return err
		}
		sub.MetaobjectID = next.MetaobjectID
		return nil
	}

	_, err := s.shop.UpdateMetaobjectFields(ctx, sub.MetaobjectID, shopify.StatusField(s.statusKey, status))
	return err
}

// publish activates the metaobject of an approved submission and records the time
func (s *moderationService) publish(ctx context.Context, sub *models.ClassSubmission) error {
	if !s.shopEnabled {
		return shopify.ErrNotConfigured
	}
	if sub.MetaobjectID == "" {
		if _, err := s.syncer.Sync(ctx, sub); err != nil {
			return err
		}
	}

	if err := s.publishMetaobject(ctx, sub.MetaobjectID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.repos.Submission.MarkPublished(ctx, sub.ID, now); err != nil {
		return fmt.Errorf("published but not recorded: %w", err)
	}
	if sub.PublishedAt == nil {
		sub.PublishedAt = &now
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("metaobject_id", sub.MetaobjectID).
		Msg("Submission published")
	return nil
}

// publishMetaobject treats "already published" user errors as success
func (s *moderationService) publishMetaobject(ctx context.Context, metaobjectID string) error {
	_, err := s.shop.PublishMetaobject(ctx, metaobjectID)
	if err != nil && alreadyPublished(err) {
		s.log.Debug().Str("metaobject_id", metaobjectID).Msg("Metaobject already published")
		return nil
	}
	return err
}

// approveExternal handles a metaobject GID the store does not know about
func (s *moderationService) approveExternal(ctx context.Context, id string, publish bool) (*models.ModerationResult, error) {
	if _, err := s.shop.UpdateMetaobjectFields(ctx, id, shopify.StatusField(s.statusKey, models.StatusApproved)); err != nil {
		return nil, err
	}

	res := &models.ModerationResult{ID: id, MetaobjectID: id, Status: models.StatusApproved, Message: "Approved."}
	if publish {
		if err := s.publishMetaobject(ctx, id); err != nil {
			res.Message = "Approved, not published."
			return nil, &PartialError{Result: res, Err: err}
		}
		res.Published = true
		res.Message = "Approved and published."
	}

	s.log.Info().Str("metaobject_id", id).Bool("publish", publish).Msg("Metaobject approved")
	return res, nil
}

func alreadyPublished(err error) bool {
	var ue shopify.UserErrors
	if !errors.As(err, &ue) {
		return false
	}
	for _, e := range ue {
		if strings.Contains(strings.ToLower(e.Message), "already") {
			return true
		}
	}
	return false
}

func result(sub *models.ClassSubmission, msg string) *models.ModerationResult {
	return &models.ModerationResult{
		ID:           sub.ID,
		Status:       sub.Status,
		Published:    sub.Published(),
		MetaobjectID: sub.MetaobjectID,
		Message:      msg,
		Submission:   sub,
	}
}

// reviewEntry flattens a metaobject for the review screen
func reviewEntry(m *models.Metaobject, status models.Status) models.ReviewEntry {
	var location []string
	for _, v := range []string{m.Field(shopify.FieldCity), m.Field(shopify.FieldState)} {
		if v != "" {
			location = append(location, v)
		}
	}

	return models.ReviewEntry{
		ID:               m.ID,
		Handle:           m.Handle,
		Title:            m.Field(shopify.FieldTitle),
		Instructor:       m.Field(shopify.FieldInstructor),
		StartDate:        m.Field(shopify.FieldStartDate),
		Location:         strings.Join(location, ", "),
		Cost:             m.Field(shopify.FieldCost),
		Format:           m.Field(shopify.FieldFormat),
		Description:      normalize.PlainText(m.Field(shopify.FieldDescription)),
		SubmittedByName:  m.Field(shopify.FieldSubmittedByName),
		SubmittedByEmail: m.Field(shopify.FieldSubmittedByEmail),
		WorkflowStatus:   status,
		PublishStatus:    m.PublishStatus,
		Published:        m.PublishStatus == models.PublishStatusActive,
	}
}
