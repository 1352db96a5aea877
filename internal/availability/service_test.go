package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/telehealth-booking/internal/timeutil"
)

type memRepo struct {
	slots map[uuid.UUID]*Slot
}

func newMemRepo() *memRepo {
	return &memRepo{slots: make(map[uuid.UUID]*Slot)}
}

func (r *memRepo) CreateSlot(_ context.Context, s Slot) (*Slot, error) {
	s.Status = SlotAvailable
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.slots[s.ID] = &s
	out := s
	return &out, nil
}

func (r *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := *s
	return &out, nil
}

func (r *memRepo) HasOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	for _, s := range r.slots {
		if s.DoctorID != doctorID || s.ID == excludeID {
			continue
		}
		if timeutil.Overlaps(s.StartTime, s.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ListAvailable(_ context.Context, doctorID uuid.UUID, from, to *time.Time, now time.Time) ([]Slot, error) {
	var out []Slot
	for _, s := range r.slots {
		if s.DoctorID != doctorID || s.Status != SlotAvailable || s.StartTime.Before(now) {
			continue
		}
		if from != nil && s.StartTime.Before(*from) {
			continue
		}
		if to != nil && s.StartTime.After(*to) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *memRepo) UpdateSlot(_ context.Context, id uuid.UUID, upd SlotUpdate) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if upd.StartTime != nil {
		s.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		s.EndTime = *upd.EndTime
	}
	if upd.MaxPatients != nil {
		s.MaxPatients = *upd.MaxPatients
	}
	out := *s
	return &out, nil
}

func (r *memRepo) DeleteSlot(_ context.Context, id uuid.UUID) error {
	if _, ok := r.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(r.slots, id)
	return nil
}

func fixedService(repo Repository, at time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return at }
	return svc
}

func TestCreateSlotValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := fixedService(repo, now)
	doctorID := uuid.New()

	_, err := svc.CreateSlot(context.Background(), doctorID, now.Add(2*time.Hour), now.Add(time.Hour), 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.CreateSlot(context.Background(), doctorID, now.Add(time.Hour), now.Add(time.Hour), 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.CreateSlot(context.Background(), doctorID, now.Add(-time.Hour), now.Add(time.Hour), 1)
	assert.ErrorIs(t, err, ErrPastSlot)
}

func TestCreateSlotOverlapRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := fixedService(repo, now)
	doctorID := uuid.New()

	base := now.Add(24 * time.Hour)
	_, err := svc.CreateSlot(context.Background(), doctorID, base, base.Add(30*time.Minute), 1)
	require.NoError(t, err)

	// Partial overlap.
	_, err = svc.CreateSlot(context.Background(), doctorID, base.Add(15*time.Minute), base.Add(45*time.Minute), 1)
	assert.ErrorIs(t, err, ErrOverlapConflict)

	// Contained interval.
	_, err = svc.CreateSlot(context.Background(), doctorID, base.Add(5*time.Minute), base.Add(25*time.Minute), 1)
	assert.ErrorIs(t, err, ErrOverlapConflict)

	// Touching boundary is not an overlap.
	_, err = svc.CreateSlot(context.Background(), doctorID, base.Add(30*time.Minute), base.Add(time.Hour), 1)
	assert.NoError(t, err)

	// Another doctor can hold the same interval.
	_, err = svc.CreateSlot(context.Background(), uuid.New(), base, base.Add(30*time.Minute), 1)
	assert.NoError(t, err)
}

func TestUpdateSlotOwnershipAndStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := fixedService(repo, now)
	doctorID := uuid.New()

	base := now.Add(24 * time.Hour)
	slot, err := svc.CreateSlot(context.Background(), doctorID, base, base.Add(30*time.Minute), 1)
	require.NoError(t, err)

	_, err = svc.UpdateSlot(context.Background(), uuid.New(), slot.ID, SlotUpdate{})
	assert.ErrorIs(t, err, ErrNotSlotOwner)

	repo.slots[slot.ID].Status = SlotBooked
	_, err = svc.UpdateSlot(context.Background(), doctorID, slot.ID, SlotUpdate{})
	assert.ErrorIs(t, err, ErrSlotBooked)

	err = svc.DeleteSlot(context.Background(), doctorID, slot.ID)
	assert.ErrorIs(t, err, ErrSlotBooked)
}

func TestUpdateSlotRecheckOverlapExcludesSelf(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := fixedService(repo, now)
	doctorID := uuid.New()

	base := now.Add(24 * time.Hour)
	first, err := svc.CreateSlot(context.Background(), doctorID, base, base.Add(30*time.Minute), 1)
	require.NoError(t, err)
	_, err = svc.CreateSlot(context.Background(), doctorID, base.Add(time.Hour), base.Add(90*time.Minute), 1)
	require.NoError(t, err)

	// Growing the first slot within its own interval is fine.
	newEnd := base.Add(45 * time.Minute)
	updated, err := svc.UpdateSlot(context.Background(), doctorID, first.ID, SlotUpdate{EndTime: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, newEnd, updated.EndTime)

	// Growing it into the second slot is not.
	badEnd := base.Add(70 * time.Minute)
	_, err = svc.UpdateSlot(context.Background(), doctorID, first.ID, SlotUpdate{EndTime: &badEnd})
	assert.ErrorIs(t, err, ErrOverlapConflict)
}

func TestListAvailableSkipsPastAndBooked(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := fixedService(repo, now)
	doctorID := uuid.New()

	future, err := svc.CreateSlot(context.Background(), doctorID, now.Add(2*time.Hour), now.Add(3*time.Hour), 1)
	require.NoError(t, err)
	booked, err := svc.CreateSlot(context.Background(), doctorID, now.Add(4*time.Hour), now.Add(5*time.Hour), 1)
	require.NoError(t, err)
	repo.slots[booked.ID].Status = SlotBooked

	slots, err := svc.ListAvailable(context.Background(), doctorID, nil, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, future.ID, slots[0].ID)
}
