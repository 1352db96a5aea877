package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrSlotNotAvailable     = errors.New("slot is not available")
	ErrDoctorMismatch       = errors.New("slot does not belong to the specified doctor")
	ErrDoctorNotApproved    = errors.New("doctor is not approved yet")
	ErrStaleStatus          = errors.New("consultation status changed concurrently")
)

// BookingRequest is the reservation intent handed to the atomic booking
// operation.
type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	SlotID    uuid.UUID
	Reason    string
}

// Repository contains all DB interactions needed by the consultation service.
//
// Book and Cancel are single atomic units of work: a concurrent reader
// observes either all of their effects or none.
type Repository interface {
	// Book locks the slot row, validates it, and persists the consultation,
	// the BOOKED slot, and the INITIATED payment together. Under contention
	// for the same slot exactly one caller succeeds; the rest get
	// ErrSlotNotAvailable.
	Book(ctx context.Context, req BookingRequest) (*BookingResult, error)

	// Cancel flips the consultation to CANCELLED and reverts its slot to
	// AVAILABLE in one transaction, guarding on the expected current status.
	Cancel(ctx context.Context, consultationID uuid.UUID, expected Status) (*Consultation, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetSlotStart(ctx context.Context, slotID uuid.UUID) (time.Time, error)

	// UpdateStatus performs a compare-and-swap on status, stamping the
	// lifecycle timestamps when provided. ErrStaleStatus when the row no
	// longer holds the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, notes *string, startedAt, endedAt *time.Time) (*Consultation, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Consultation, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Consultation, error)

	FindReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]ReminderCandidate, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}
