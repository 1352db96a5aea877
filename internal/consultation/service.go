package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/timeutil"
)

var (
	ErrNotConsultationDoctor     = errors.New("only the assigned doctor can update consultation status")
	ErrNotParticipant            = errors.New("caller is not a participant in this consultation")
	ErrNotCancellable            = errors.New("consultation cannot be cancelled in its current status")
	ErrCancellationWindowExpired = errors.New("cancellation window has expired")
)

// Auditor records domain events. Implementations must not fail the calling
// operation; recording is best-effort.
type Auditor interface {
	Record(ctx context.Context, actorID uuid.UUID, actorRole, action, entityType string, entityID uuid.UUID, metadata map[string]any)
}

// Service coordinates the consultation lifecycle around the atomic
// repository operations.
type Service struct {
	repo               Repository
	auditor            Auditor
	cancellationWindow time.Duration
	now                func() time.Time
}

func NewService(repo Repository, auditor Auditor, cancellationWindow time.Duration) *Service {
	return &Service{
		repo:               repo,
		auditor:            auditor,
		cancellationWindow: cancellationWindow,
		now:                time.Now,
	}
}

// Book converts a reservation intent into a consultation, a booked slot, and
// an initiated payment, all-or-nothing. Validation order and error mapping
// live in the repository so they hold under the slot row lock.
func (s *Service) Book(ctx context.Context, patientID, doctorID, slotID uuid.UUID, reason string) (*BookingResult, error) {
	result, err := s.repo.Book(ctx, BookingRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		SlotID:    slotID,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, patientID, "PATIENT", "CONSULTATION_BOOKED", result.Consultation.ID, map[string]any{
		"slot_id":   slotID.String(),
		"doctor_id": doctorID.String(),
		"amount":    result.Amount,
	})

	return result, nil
}

// UpdateStatus drives a forward transition. Only the assigned doctor may call
// it; IN_PROGRESS stamps StartedAt and COMPLETED stamps EndedAt.
func (s *Service) UpdateStatus(ctx context.Context, consultationID, callerDoctorID uuid.UUID, to Status, notes *string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	if c.DoctorID != callerDoctorID {
		return nil, ErrNotConsultationDoctor
	}

	if err := CheckTransition(c.Status, to); err != nil {
		return nil, err
	}

	var startedAt, endedAt *time.Time
	now := s.now()
	switch to {
	case StatusInProgress:
		startedAt = &now
	case StatusCompleted:
		endedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, consultationID, c.Status, to, notes, startedAt, endedAt)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, &InvalidTransitionError{From: c.Status, To: to}
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.record(ctx, callerDoctorID, "DOCTOR", "CONSULTATION_STATUS_CHANGED", consultationID, map[string]any{
		"from": string(c.Status),
		"to":   string(to),
	})

	return updated, nil
}

// Cancel is open to either participant while the consultation is not in a
// terminal state and the slot start is at least the cancellation window away.
// The status flip and the slot release commit together.
func (s *Service) Cancel(ctx context.Context, consultationID, callerUserID, callerDoctorID uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	isPatient := c.PatientID == callerUserID
	isDoctor := callerDoctorID != uuid.Nil && c.DoctorID == callerDoctorID
	if !isPatient && !isDoctor {
		return nil, ErrNotParticipant
	}

	if IsTerminal(c.Status) {
		return nil, ErrNotCancellable
	}

	slotStart, err := s.repo.GetSlotStart(ctx, c.SlotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}

	if timeutil.HoursUntil(s.now(), slotStart) < s.cancellationWindow.Hours() {
		return nil, ErrCancellationWindowExpired
	}

	cancelled, err := s.repo.Cancel(ctx, consultationID, c.Status)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("cancel consultation: %w", err)
	}

	role := "PATIENT"
	if isDoctor {
		role = "DOCTOR"
	}
	s.record(ctx, callerUserID, role, "CONSULTATION_CANCELLED", consultationID, map[string]any{
		"slot_id": c.SlotID.String(),
	})

	return cancelled, nil
}

// Get enforces that only the patient, the assigned doctor, or an admin can
// read a consultation.
func (s *Service) Get(ctx context.Context, consultationID, callerUserID, callerDoctorID uuid.UUID, isAdmin bool) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	isPatient := c.PatientID == callerUserID
	isDoctor := callerDoctorID != uuid.Nil && c.DoctorID == callerDoctorID
	if !isPatient && !isDoctor && !isAdmin {
		return nil, ErrNotParticipant
	}

	return c, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Consultation, error) {
	return s.repo.ListByPatient(ctx, patientID, f)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Consultation, error) {
	return s.repo.ListByDoctor(ctx, doctorID, f)
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, role, action string, entityID uuid.UUID, metadata map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, actorID, role, action, "consultation", entityID, metadata)
}
