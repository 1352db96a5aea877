package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSlotNotFound = errors.New("slot not found")

// Repository contains all DB interactions needed by the slot store.
type Repository interface {
	CreateSlot(ctx context.Context, s Slot) (*Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// HasOverlapping reports whether any slot for the doctor intersects
	// [start, end), excluding excludeID (uuid.Nil to exclude nothing).
	HasOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)

	ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, now time.Time) ([]Slot, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, upd SlotUpdate) (*Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}
