package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/logging"
)

// Notifier dispatches a consultation reminder. The default implementation
// only logs; a real email/SMS channel is an external collaborator.
type Notifier interface {
	SendReminder(ctx context.Context, c consultation.ReminderCandidate) error
}

// LogNotifier is the stub dispatch channel.
type LogNotifier struct {
	Log *logging.Logger
}

func (n *LogNotifier) SendReminder(_ context.Context, c consultation.ReminderCandidate) error {
	n.Log.Info("consultation reminder",
		"consultation_id", c.ConsultationID.String(),
		"patient_id", c.PatientID.String(),
		"doctor_id", c.DoctorID.String(),
		"slot_start", c.SlotStart.Format(time.RFC3339),
	)
	return nil
}

// ReminderScanner periodically finds CONFIRMED consultations starting within
// the lookahead window and hands each one to the notifier through the job
// queue. The reminded_at stamp keeps repeated sweeps from re-emitting
// reminders for the same consultation.
type ReminderScanner struct {
	repo      consultation.Repository
	queue     *Queue
	notifier  Notifier
	interval  time.Duration
	lookahead time.Duration
	log       *logging.Logger
	onRemind  func()
	now       func() time.Time
}

func NewReminderScanner(repo consultation.Repository, queue *Queue, notifier Notifier, interval, lookahead time.Duration, log *logging.Logger, onRemind func()) *ReminderScanner {
	if log == nil {
		log = logging.Default()
	}
	return &ReminderScanner{
		repo:      repo,
		queue:     queue,
		notifier:  notifier,
		interval:  interval,
		lookahead: lookahead,
		log:       log,
		onRemind:  onRemind,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (s *ReminderScanner) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scanner stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderScanner) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := s.now()
	candidates, err := s.repo.FindReminderCandidates(sweepCtx, now, now.Add(s.lookahead))
	if err != nil {
		s.log.Error("reminder sweep failed", "err", err.Error())
		return
	}

	for _, c := range candidates {
		c := c
		err := s.queue.Submit(fmt.Sprintf("reminder:%s", c.ConsultationID), func(taskCtx context.Context) error {
			return s.notifier.SendReminder(taskCtx, c)
		})
		if err != nil {
			s.log.Error("could not enqueue reminder",
				"consultation_id", c.ConsultationID.String(), "err", err.Error())
			continue
		}

		// Stamp after a successful enqueue so a failed submit is retried on
		// the next sweep.
		if err := s.repo.MarkReminded(sweepCtx, c.ConsultationID, now); err != nil {
			s.log.Error("could not stamp reminded_at",
				"consultation_id", c.ConsultationID.String(), "err", err.Error())
		}
		if s.onRemind != nil {
			s.onRemind()
		}
	}

	if len(candidates) > 0 {
		s.log.Info("reminder sweep complete", "count", len(candidates))
	}
}
