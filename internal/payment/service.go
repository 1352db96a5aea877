package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/logging"
)

var ErrInvalidWebhookStatus = errors.New("webhook status must be SUCCESS or FAILED")

type Service struct {
	repo Repository
	log  *logging.Logger
}

func NewService(repo Repository, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{repo: repo, log: log}
}

// HandleWebhook applies a provider callback. A payment moves out of INITIATED
// exactly once; replays of the same callback get ErrAlreadyFinalized.
func (s *Service) HandleWebhook(ctx context.Context, txRef string, status Status) (*Payment, error) {
	if status != StatusSuccess && status != StatusFailed {
		return nil, ErrInvalidWebhookStatus
	}

	p, err := s.repo.GetByTransactionReference(ctx, txRef)
	if err != nil {
		return nil, err
	}

	finalized, err := s.repo.Finalize(ctx, p.ID, status)
	if err != nil {
		return nil, fmt.Errorf("finalize payment %s: %w", p.ID, err)
	}

	s.log.Info("payment finalized",
		"payment_id", finalized.ID.String(),
		"consultation_id", finalized.ConsultationID.String(),
		"status", string(status),
	)

	return finalized, nil
}

// GetByConsultation returns the payment for a consultation the caller
// participates in; participation is checked by the consultation service
// before this is called.
func (s *Service) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Payment, error) {
	return s.repo.GetByConsultation(ctx, consultationID)
}
