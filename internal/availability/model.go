package availability

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
)

// Slot is a doctor-defined half-open interval [StartTime, EndTime) offered
// for booking. The booking transaction is the only path that flips it to
// BOOKED; cancellation is the only path back.
type Slot struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	MaxPatients int
	Status      SlotStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SlotUpdate carries the mutable fields of an AVAILABLE slot. Nil means keep.
type SlotUpdate struct {
	StartTime   *time.Time
	EndTime     *time.Time
	MaxPatients *int
}
