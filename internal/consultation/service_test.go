package consultation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlot struct {
	doctorID  uuid.UUID
	approved  bool
	fee       int64
	status    string
	startTime time.Time
}

// fakeRepo models the slot row lock with a plain mutex so the contention
// behavior of the real transaction can be exercised in-memory.
type fakeRepo struct {
	mu            sync.Mutex
	slots         map[uuid.UUID]*fakeSlot
	consultations map[uuid.UUID]*Consultation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		slots:         make(map[uuid.UUID]*fakeSlot),
		consultations: make(map[uuid.UUID]*Consultation),
	}
}

func (r *fakeRepo) addSlot(doctorID uuid.UUID, start time.Time, approved bool) uuid.UUID {
	id := uuid.New()
	r.slots[id] = &fakeSlot{
		doctorID:  doctorID,
		approved:  approved,
		fee:       50000,
		status:    "AVAILABLE",
		startTime: start,
	}
	return id
}

func (r *fakeRepo) Book(_ context.Context, req BookingRequest) (*BookingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[req.SlotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.status != "AVAILABLE" {
		return nil, ErrSlotNotAvailable
	}
	if slot.doctorID != req.DoctorID {
		return nil, ErrDoctorMismatch
	}
	if !slot.approved {
		return nil, ErrDoctorNotApproved
	}

	slot.status = "BOOKED"

	c := Consultation{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		SlotID:        req.SlotID,
		Reason:        req.Reason,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	r.consultations[c.ID] = &c

	return &BookingResult{
		Consultation: c,
		PaymentID:    uuid.New(),
		Amount:       slot.fee,
		Currency:     DefaultCurrency,
	}, nil
}

func (r *fakeRepo) Cancel(_ context.Context, id uuid.UUID, expected Status) (*Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	if c.Status != expected {
		return nil, ErrStaleStatus
	}
	c.Status = StatusCancelled
	if slot, ok := r.slots[c.SlotID]; ok {
		slot.status = "AVAILABLE"
	}
	out := *c
	return &out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeRepo) GetSlotStart(_ context.Context, slotID uuid.UUID) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[slotID]
	if !ok {
		return time.Time{}, ErrSlotNotFound
	}
	return slot.startTime, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, notes *string, startedAt, endedAt *time.Time) (*Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	if c.Status != from {
		return nil, ErrStaleStatus
	}
	c.Status = to
	if notes != nil {
		c.Notes = notes
	}
	if startedAt != nil {
		c.StartedAt = startedAt
	}
	if endedAt != nil {
		c.EndedAt = endedAt
	}
	out := *c
	return &out, nil
}

func (r *fakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _ ListFilter) ([]Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Consultation
	for _, c := range r.consultations {
		if c.PatientID == patientID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, _ ListFilter) ([]Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Consultation
	for _, c := range r.consultations {
		if c.DoctorID == doctorID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindReminderCandidates(_ context.Context, windowStart, windowEnd time.Time) ([]ReminderCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ReminderCandidate
	for _, c := range r.consultations {
		if c.Status != StatusConfirmed {
			continue
		}
		slot, ok := r.slots[c.SlotID]
		if !ok {
			continue
		}
		if slot.startTime.Before(windowStart) || slot.startTime.After(windowEnd) {
			continue
		}
		if c.RemindedAt != nil && !c.RemindedAt.Before(windowStart) {
			continue
		}
		out = append(out, ReminderCandidate{
			ConsultationID: c.ID,
			PatientID:      c.PatientID,
			DoctorID:       c.DoctorID,
			SlotStart:      slot.startTime,
		})
	}
	return out, nil
}

func (r *fakeRepo) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consultations[id]
	if !ok {
		return ErrConsultationNotFound
	}
	c.RemindedAt = &at
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, 2*time.Hour)
}

func TestBookExactlyOneWinnerUnderContention(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	const contenders = 50

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Book(context.Background(), uuid.New(), doctorID, slotID, "checkup")
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case assert.ErrorIs(t, err, ErrSlotNotAvailable):
			losers++
		}
	}

	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, losers)
}

func TestBookRejections(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	approvedSlot := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	unapprovedDoctor := uuid.New()
	unapprovedSlot := repo.addSlot(unapprovedDoctor, time.Now().Add(24*time.Hour), false)
	svc := newTestService(repo)

	_, err := svc.Book(context.Background(), uuid.New(), doctorID, uuid.New(), "checkup")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = svc.Book(context.Background(), uuid.New(), uuid.New(), approvedSlot, "checkup")
	assert.ErrorIs(t, err, ErrDoctorMismatch)

	_, err = svc.Book(context.Background(), uuid.New(), unapprovedDoctor, unapprovedSlot, "checkup")
	assert.ErrorIs(t, err, ErrDoctorNotApproved)
}

func TestBookPopulatesPayment(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), uuid.New(), doctorID, slotID, "checkup")
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, result.Consultation.Status)
	assert.Equal(t, PaymentPending, result.Consultation.PaymentStatus)
	assert.NotEqual(t, uuid.Nil, result.PaymentID)
	assert.Equal(t, int64(50000), result.Amount)
	assert.Equal(t, DefaultCurrency, result.Currency)
}

func TestUpdateStatusStampsLifecycle(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), patientID, doctorID, slotID, "checkup")
	require.NoError(t, err)
	id := result.Consultation.ID

	inProgress, err := svc.UpdateStatus(context.Background(), id, doctorID, StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, inProgress.Status)
	require.NotNil(t, inProgress.StartedAt)
	assert.Nil(t, inProgress.EndedAt)

	notes := "follow up in two weeks"
	completed, err := svc.UpdateStatus(context.Background(), id, doctorID, StatusCompleted, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.EndedAt)
	require.NotNil(t, completed.Notes)
	assert.Equal(t, notes, *completed.Notes)
}

func TestUpdateStatusGates(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), uuid.New(), doctorID, slotID, "checkup")
	require.NoError(t, err)
	id := result.Consultation.ID

	_, err = svc.UpdateStatus(context.Background(), id, uuid.New(), StatusInProgress, nil)
	assert.ErrorIs(t, err, ErrNotConsultationDoctor)

	_, err = svc.UpdateStatus(context.Background(), id, doctorID, StatusCompleted, nil)
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusConfirmed, ite.From)
	assert.Equal(t, StatusCompleted, ite.To)
}

func TestCancelReleasesSlot(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), patientID, doctorID, slotID, "checkup")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), result.Consultation.ID, patientID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "AVAILABLE", repo.slots[slotID].status)

	// The released slot is bookable again.
	_, err = svc.Book(context.Background(), uuid.New(), doctorID, slotID, "another checkup")
	assert.NoError(t, err)
}

func TestCancelWindowExpired(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(30*time.Minute), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), patientID, doctorID, slotID, "checkup")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), result.Consultation.ID, patientID, uuid.Nil)
	assert.ErrorIs(t, err, ErrCancellationWindowExpired)
}

func TestCancelGates(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), patientID, doctorID, slotID, "checkup")
	require.NoError(t, err)
	id := result.Consultation.ID

	_, err = svc.Cancel(context.Background(), id, uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, ErrNotParticipant)

	// The assigned doctor may cancel.
	cancelled, err := svc.Cancel(context.Background(), id, uuid.New(), doctorID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), id, patientID, uuid.Nil)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestGetAccessControl(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	slotID := repo.addSlot(doctorID, time.Now().Add(24*time.Hour), true)
	svc := newTestService(repo)

	result, err := svc.Book(context.Background(), patientID, doctorID, slotID, "checkup")
	require.NoError(t, err)
	id := result.Consultation.ID

	_, err = svc.Get(context.Background(), id, patientID, uuid.Nil, false)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), id, uuid.New(), doctorID, false)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), id, uuid.New(), uuid.Nil, true)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), id, uuid.New(), uuid.Nil, false)
	assert.ErrorIs(t, err, ErrNotParticipant)
}
