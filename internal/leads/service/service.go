// Package service implements the lead status state machine entry points.
// Gating logic lives in the domain planner; this layer wires it to the
// transactional store and maps violations to typed errors.
package service

import (
	"context"
	"errors"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// TransitionStore is the persistence surface the state machine needs.
// Satisfied by repository.Repository.
type TransitionStore interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Lead, error)
	Transition(ctx context.Context, leadID, tenantID uuid.UUID, plan repository.PlanFunc) (repository.Lead, bool, error)
}

// Service is the lead status state machine.
type Service struct {
	store TransitionStore
	log   *logger.Logger
}

// New creates the state machine service.
func New(store TransitionStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// ApplyAutomatic feeds a classification result into the state machine.
// A false return means the change was gated off (low confidence, won lock,
// same status); that is a deliberate no-op, not an error.
func (s *Service) ApplyAutomatic(ctx context.Context, leadID, tenantID uuid.UUID, change domain.AutomaticChange) (repository.Lead, bool, error) {
	lead, applied, err := s.store.Transition(ctx, leadID, tenantID,
		func(state domain.LeadState) (domain.Transition, bool, error) {
			t, ok := domain.PlanAutomatic(state, change)
			return t, ok, nil
		})
	if err != nil {
		return repository.Lead{}, false, err
	}

	if applied && s.log != nil {
		s.log.Info("lead status updated automatically",
			"lead_id", leadID, "status", lead.Status, "confidence", change.Confidence)
	}
	return lead, applied, nil
}

// ApplyManual performs a human-requested status change. Validation
// violations come back as typed apperr values for the HTTP layer.
func (s *Service) ApplyManual(ctx context.Context, leadID, tenantID uuid.UUID, change domain.ManualChange) (repository.Lead, error) {
	lead, applied, err := s.store.Transition(ctx, leadID, tenantID,
		func(state domain.LeadState) (domain.Transition, bool, error) {
			return domain.PlanManual(state, change)
		})
	if err != nil {
		return repository.Lead{}, mapManualError(err)
	}

	if applied && s.log != nil {
		s.log.Info("lead status updated manually",
			"lead_id", leadID, "status", lead.Status, "user_id", change.ActingUser)
	}
	// Same-status requests are accepted as no-ops; the caller gets the
	// current lead back either way.
	return lead, nil
}

// Get returns one lead scoped to its tenant.
func (s *Service) Get(ctx context.Context, leadID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, err
	}
	return lead, nil
}

func mapManualError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperr.Wrap(apperr.KindConflict, err.Error(), err)
	case errors.Is(err, domain.ErrMissingValue), errors.Is(err, domain.ErrMissingReason):
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	default:
		return err
	}
}
