package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyFinalized = errors.New("payment already in a terminal state")
)

// Repository contains all DB interactions needed by the payment ledger.
type Repository interface {
	GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Payment, error)
	GetByTransactionReference(ctx context.Context, txRef string) (*Payment, error)

	// Finalize moves an INITIATED payment to SUCCESS or FAILED and updates
	// the consultation's payment status in the same transaction.
	// ErrAlreadyFinalized when the payment is no longer INITIATED.
	Finalize(ctx context.Context, paymentID uuid.UUID, to Status) (*Payment, error)
}
