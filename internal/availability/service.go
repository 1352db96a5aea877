package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/timeutil"
)

var (
	ErrInvalidRange    = errors.New("slot end time must be after start time")
	ErrPastSlot        = errors.New("slot cannot start in the past")
	ErrOverlapConflict = errors.New("slot overlaps with existing availability")
	ErrNotSlotOwner    = errors.New("caller does not own this slot")
	ErrSlotBooked      = errors.New("slot is booked and cannot be modified")
)

// Service owns the availability slot lifecycle outside the booking and
// cancellation paths, which flip slot status transactionally elsewhere.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateSlot validates the interval and rejects any overlap with the
// doctor's existing slots, booked or not.
func (s *Service) CreateSlot(ctx context.Context, doctorID uuid.UUID, start, end time.Time, maxPatients int) (*Slot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	if timeutil.IsPast(s.now(), start) {
		return nil, ErrPastSlot
	}
	if maxPatients <= 0 {
		maxPatients = 1
	}

	overlap, err := s.repo.HasOverlapping(ctx, doctorID, start, end, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlap {
		return nil, ErrOverlapConflict
	}

	slot := Slot{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		StartTime:   start,
		EndTime:     end,
		MaxPatients: maxPatients,
	}

	created, err := s.repo.CreateSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	return created, nil
}

// ListAvailable returns the doctor's AVAILABLE future slots, optionally
// bounded by a date window, ordered by start time.
func (s *Service) ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]Slot, error) {
	return s.repo.ListAvailable(ctx, doctorID, from, to, s.now())
}

// UpdateSlot mutates an AVAILABLE slot owned by the caller. The overlap check
// re-runs against the updated interval, excluding the slot itself.
func (s *Service) UpdateSlot(ctx context.Context, callerDoctorID, slotID uuid.UUID, upd SlotUpdate) (*Slot, error) {
	slot, err := s.loadOwned(ctx, callerDoctorID, slotID)
	if err != nil {
		return nil, err
	}

	start := slot.StartTime
	if upd.StartTime != nil {
		start = *upd.StartTime
	}
	end := slot.EndTime
	if upd.EndTime != nil {
		end = *upd.EndTime
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	overlap, err := s.repo.HasOverlapping(ctx, slot.DoctorID, start, end, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlap {
		return nil, ErrOverlapConflict
	}

	return s.repo.UpdateSlot(ctx, slotID, upd)
}

// DeleteSlot removes an AVAILABLE slot owned by the caller.
func (s *Service) DeleteSlot(ctx context.Context, callerDoctorID, slotID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, callerDoctorID, slotID); err != nil {
		return err
	}
	return s.repo.DeleteSlot(ctx, slotID)
}

func (s *Service) loadOwned(ctx context.Context, callerDoctorID, slotID uuid.UUID) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != callerDoctorID {
		return nil, ErrNotSlotOwner
	}
	if slot.Status == SlotBooked {
		return nil, ErrSlotBooked
	}
	return slot, nil
}
