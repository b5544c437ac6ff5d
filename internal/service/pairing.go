package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/metrics"
	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/repository"
	"github.com/sxk/signal-link/internal/sse"
	"github.com/sxk/signal-link/internal/util"
)

// EventPublisher delivers row changes to the session's event streams.
type EventPublisher interface {
	PublishJSON(ctx context.Context, sessionCode, eventType string, data any) error
}

type PairingService struct {
	repo   repository.PairingRepository
	events EventPublisher
}

func NewPairingService(repo repository.PairingRepository, events EventPublisher) *PairingService {
	return &PairingService{
		repo:   repo,
		events: events,
	}
}

// Get returns the row for code or a NOT_FOUND error.
func (s *PairingService) Get(ctx context.Context, code string) (*model.PairingRecord, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.FindBySessionCode(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if rec == nil {
		return nil, apperrors.NotFound("Pairing")
	}
	return rec, nil
}

// Find is Get without the NOT_FOUND error; a missing row is nil.
func (s *PairingService) Find(ctx context.Context, code string) (*model.PairingRecord, error) {
	rec, err := s.Get(ctx, code)
	if apperrors.GetCode(err) == apperrors.ErrCodeNotFound {
		return nil, nil
	}
	return rec, err
}

// Upsert writes the caller's slot and publishes the resulting row. A publish
// failure is logged and does not fail the write.
func (s *PairingService) Upsert(ctx context.Context, code string, req model.UpsertPairingRequest) (*model.PairingRecord, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	if err := util.Validate.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Invalid pairing update").
			WithDetails(util.ValidationDetails(err))
	}

	rec, err := s.repo.Upsert(ctx, model.UpsertPairingParams{
		SessionCode: code,
		Role:        req.Role,
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		IsSynced:    req.IsSynced,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	metrics.IncPairingUpsert(string(req.Role))
	log.Info().
		Str("sessionCode", util.MaskCode(code)).
		Str("role", string(req.Role)).
		Bool("isSynced", rec.IsSynced).
		Msg("pairing slot updated")

	if s.events != nil {
		if err := s.events.PublishJSON(ctx, code, sse.EventPairing, rec); err != nil {
			log.Warn().Err(err).Str("sessionCode", util.MaskCode(code)).Msg("failed to publish pairing change")
		}
	}

	return rec, nil
}

func normalizeCode(code string) (string, error) {
	normalized := util.NormalizeSessionCode(code)
	if !util.IsValidSessionCode(normalized) {
		return "", apperrors.InvalidSessionCode(code)
	}
	return normalized, nil
}
