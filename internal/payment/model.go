package payment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// Payment is one-to-one with a consultation. Created INITIATED by the
// booking transaction; moved exactly once to a terminal state by the
// provider webhook.
type Payment struct {
	ID                   uuid.UUID
	ConsultationID       uuid.UUID
	Amount               int64
	Currency             string
	Status               Status
	Provider             string
	TransactionReference string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
