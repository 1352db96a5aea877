package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/telehealth-booking/internal/consultation"
)

// reminderRepo implements only the scanner's slice of the consultation
// repository.
type reminderRepo struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]consultation.ReminderCandidate
	reminded   map[uuid.UUID]time.Time
}

func newReminderRepo() *reminderRepo {
	return &reminderRepo{
		candidates: make(map[uuid.UUID]consultation.ReminderCandidate),
		reminded:   make(map[uuid.UUID]time.Time),
	}
}

func (r *reminderRepo) addCandidate(start time.Time) uuid.UUID {
	id := uuid.New()
	r.candidates[id] = consultation.ReminderCandidate{
		ConsultationID: id,
		PatientID:      uuid.New(),
		DoctorID:       uuid.New(),
		SlotStart:      start,
	}
	return id
}

func (r *reminderRepo) FindReminderCandidates(_ context.Context, windowStart, windowEnd time.Time) ([]consultation.ReminderCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []consultation.ReminderCandidate
	for id, c := range r.candidates {
		if c.SlotStart.Before(windowStart) || c.SlotStart.After(windowEnd) {
			continue
		}
		if at, ok := r.reminded[id]; ok && !at.Before(windowStart) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *reminderRepo) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminded[id] = at
	return nil
}

func (r *reminderRepo) Book(context.Context, consultation.BookingRequest) (*consultation.BookingResult, error) {
	panic("not used")
}

func (r *reminderRepo) Cancel(context.Context, uuid.UUID, consultation.Status) (*consultation.Consultation, error) {
	panic("not used")
}

func (r *reminderRepo) GetByID(context.Context, uuid.UUID) (*consultation.Consultation, error) {
	panic("not used")
}

func (r *reminderRepo) GetSlotStart(context.Context, uuid.UUID) (time.Time, error) {
	panic("not used")
}

func (r *reminderRepo) UpdateStatus(context.Context, uuid.UUID, consultation.Status, consultation.Status, *string, *time.Time, *time.Time) (*consultation.Consultation, error) {
	panic("not used")
}

func (r *reminderRepo) ListByPatient(context.Context, uuid.UUID, consultation.ListFilter) ([]consultation.Consultation, error) {
	panic("not used")
}

func (r *reminderRepo) ListByDoctor(context.Context, uuid.UUID, consultation.ListFilter) ([]consultation.Consultation, error) {
	panic("not used")
}

type countingNotifier struct {
	sent int32
}

func (n *countingNotifier) SendReminder(context.Context, consultation.ReminderCandidate) error {
	atomic.AddInt32(&n.sent, 1)
	return nil
}

func TestSweepNotifiesUpcomingConsultations(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newReminderRepo()
	repo.addCandidate(now.Add(time.Hour))
	repo.addCandidate(now.Add(90 * time.Minute))
	repo.addCandidate(now.Add(5 * time.Hour)) // outside lookahead

	q := NewQueue(QueueConfig{Capacity: 8, Workers: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	notifier := &countingNotifier{}
	var reminders int32
	scanner := NewReminderScanner(repo, q, notifier, time.Minute, 2*time.Hour, nil, func() {
		atomic.AddInt32(&reminders, 1)
	})
	scanner.now = func() time.Time { return now }

	scanner.sweep(ctx)
	q.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&notifier.sent))
	assert.Equal(t, int32(2), atomic.LoadInt32(&reminders))
	assert.Len(t, repo.reminded, 2)
}

func TestSweepDoesNotReemitRemindedConsultations(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newReminderRepo()
	repo.addCandidate(now.Add(time.Hour))

	q := NewQueue(QueueConfig{Capacity: 8, Workers: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Close()

	notifier := &countingNotifier{}
	scanner := NewReminderScanner(repo, q, notifier, time.Minute, 2*time.Hour, nil, nil)
	scanner.now = func() time.Time { return now }

	scanner.sweep(ctx)
	scanner.sweep(ctx)

	waitFor(t, func() bool { return atomic.LoadInt32(&notifier.sent) == 1 })

	// Give a straggler a chance to surface before asserting.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.sent))
}

func TestSweepSkipsStampWhenQueueFull(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newReminderRepo()
	repo.addCandidate(now.Add(time.Hour))

	// Capacity of one that is already occupied, workers never started.
	q := NewQueue(QueueConfig{Capacity: 1, Workers: 1}, nil, nil)
	require.NoError(t, q.Submit("blocker", func(context.Context) error { return nil }))

	scanner := NewReminderScanner(repo, q, &countingNotifier{}, time.Minute, 2*time.Hour, nil, nil)
	scanner.now = func() time.Time { return now }

	scanner.sweep(context.Background())

	// The candidate stays unstamped for the next sweep to retry.
	assert.Empty(t, repo.reminded)
}
