package consultation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

type PaymentState string

const (
	PaymentPending PaymentState = "PENDING"
	PaymentPaid    PaymentState = "PAID"
	PaymentFailed  PaymentState = "FAILED"
)

// Consultation links one patient, one doctor, and one slot. Exactly one
// consultation references a slot at a time; the slot's status enforces that,
// not a uniqueness constraint.
type Consultation struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	SlotID        uuid.UUID
	Reason        string
	Status        Status
	PaymentStatus PaymentState
	Notes         *string
	StartedAt     *time.Time
	EndedAt       *time.Time
	RemindedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingResult is everything the booking transaction persisted.
type BookingResult struct {
	Consultation Consultation
	PaymentID    uuid.UUID
	Amount       int64
	Currency     string
}

// ReminderCandidate is a CONFIRMED consultation whose slot starts inside the
// scanner's lookahead window.
type ReminderCandidate struct {
	ConsultationID uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	SlotStart      time.Time
}

// ListFilter narrows consultation listings. An empty Status means all.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
