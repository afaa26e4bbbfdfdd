package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/shopify"
)

// metaobjectSyncer projects stored submissions onto metaobjects. Upserting by
// handle makes repeated syncs of the same submission converge on one record.
type metaobjectSyncer struct {
	subs      repository.SubmissionRepository
	shop      MetaobjectClient
	statusKey string
	log       zerolog.Logger
}

func newMetaobjectSyncer(subs repository.SubmissionRepository, shop MetaobjectClient, statusKey string, log zerolog.Logger) *metaobjectSyncer {
	return &metaobjectSyncer{
		subs:      subs,
		shop:      shop,
		statusKey: statusKey,
		log:       log.With().Str("service", "metaobject_sync").Logger(),
	}
}

// Sync upserts sub and records the metaobject id in the store
func (s *metaobjectSyncer) Sync(ctx context.Context, sub *models.ClassSubmission) (*models.Metaobject, error) {
	m, err := s.shop.UpsertMetaobject(ctx, sub.Handle, shopify.SubmissionFields(sub, s.statusKey))
	if err != nil {
		return nil, err
	}

	if m.ID != sub.MetaobjectID {
		if err := s.subs.UpdateModeration(ctx, sub.ID, sub.Status, m.ID); err != nil {
			return nil, fmt.Errorf("metaobject %s synced but not recorded: %w", m.ID, err)
		}
		sub.MetaobjectID = m.ID
	}

	s.log.Debug().
		Str("submission_id", sub.ID).
		Str("metaobject_id", m.ID).
		Str("handle", sub.Handle).
		Msg("Submission synced")

	return m, nil
}
