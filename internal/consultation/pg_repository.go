package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultCurrency is captured into every payment created at booking time.
const DefaultCurrency = "INR"

// pgxPool is the subset of *pgxpool.Pool the repository uses; tests satisfy
// it with a mock pool.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool pgxPool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation

	err := row.Scan(
		&c.ID,
		&c.PatientID,
		&c.DoctorID,
		&c.SlotID,
		&c.Reason,
		&c.Status,
		&c.PaymentStatus,
		&c.Notes,
		&c.StartedAt,
		&c.EndedAt,
		&c.RemindedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	return &c, nil
}

const consultationColumns = `id, patient_id, doctor_id, slot_id, reason, status, payment_status,
	notes, started_at, ended_at, reminded_at, created_at, updated_at`

// Book implements the booking transaction. The slot row lock serializes
// concurrent attempts: the loser blocks until the winner commits, re-reads
// status BOOKED, and fails with ErrSlotNotAvailable.
func (r *PgRepository) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		slotDoctorID uuid.UUID
		slotStatus   string
		isApproved   bool
		fee          int64
	)

	err = tx.QueryRow(ctx, `
		SELECT s.doctor_id, s.status, d.is_approved, d.consultation_fee
		FROM availability_slots s
		JOIN doctors d ON d.id = s.doctor_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`, req.SlotID).Scan(&slotDoctorID, &slotStatus, &isApproved, &fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	if slotStatus != "AVAILABLE" {
		return nil, ErrSlotNotAvailable
	}
	if slotDoctorID != req.DoctorID {
		return nil, ErrDoctorMismatch
	}
	if !isApproved {
		return nil, ErrDoctorNotApproved
	}

	consultationID := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO consultations (id, patient_id, doctor_id, slot_id, reason, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'CONFIRMED', 'PENDING', now(), now())
		RETURNING `+consultationColumns+`
	`, consultationID, req.PatientID, req.DoctorID, req.SlotID, req.Reason)

	created, err := scanConsultation(row)
	if err != nil {
		return nil, fmt.Errorf("insert consultation: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE availability_slots
		SET status = 'BOOKED',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'AVAILABLE'
	`, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}
	if tag.RowsAffected() != 1 {
		// Cannot happen while we hold the row lock, but a silent partial
		// booking would be worse than an aborted one.
		return nil, ErrSlotNotAvailable
	}

	paymentID := uuid.New()
	txRef := newTransactionReference()
	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, consultation_id, amount, currency, status, provider, transaction_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'INITIATED', 'STUB_PROVIDER', $5, now(), now())
	`, paymentID, consultationID, fee, DefaultCurrency, txRef)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return &BookingResult{
		Consultation: *created,
		PaymentID:    paymentID,
		Amount:       fee,
		Currency:     DefaultCurrency,
	}, nil
}

func newTransactionReference() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Cancel guards on the expected status so a concurrent doctor-side transition
// aborts the cancellation instead of clobbering it.
func (r *PgRepository) Cancel(ctx context.Context, consultationID uuid.UUID, expected Status) (*Consultation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE consultations
		SET status = 'CANCELLED',
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+consultationColumns+`
	`, consultationID, expected)

	cancelled, err := scanConsultation(row)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, ErrStaleStatus
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE availability_slots
		SET status = 'AVAILABLE',
		    updated_at = now()
		WHERE id = $1
	`, cancelled.SlotID)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	return cancelled, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE id = $1
	`, id)
	return scanConsultation(row)
}

func (r *PgRepository) GetSlotStart(ctx context.Context, slotID uuid.UUID) (time.Time, error) {
	var start time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT start_time
		FROM availability_slots
		WHERE id = $1
	`, slotID).Scan(&start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrSlotNotFound
		}
		return time.Time{}, err
	}
	return start, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, notes *string, startedAt, endedAt *time.Time) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $3,
		    notes = COALESCE($4, notes),
		    started_at = COALESCE($5, started_at),
		    ended_at = COALESCE($6, ended_at),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+consultationColumns+`
	`, id, from, to, notes, startedAt, endedAt)

	updated, err := scanConsultation(row)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, ErrStaleStatus
		}
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Consultation, error) {
	return r.list(ctx, `patient_id`, patientID, f)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Consultation, error) {
	return r.list(ctx, `doctor_id`, doctorID, f)
}

func (r *PgRepository) list(ctx context.Context, column string, owner uuid.UUID, f ListFilter) ([]Consultation, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE `+column+` = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, owner, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]ReminderCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.patient_id, c.doctor_id, s.start_time
		FROM consultations c
		JOIN availability_slots s ON s.id = c.slot_id
		WHERE c.status = 'CONFIRMED'
		  AND s.start_time >= $1
		  AND s.start_time <= $2
		  AND (c.reminded_at IS NULL OR c.reminded_at < $1)
	`, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ReminderCandidate
	for rows.Next() {
		var rc ReminderCandidate
		if err := rows.Scan(&rc.ConsultationID, &rc.PatientID, &rc.DoctorID, &rc.SlotStart); err != nil {
			return nil, err
		}
		result = append(result, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET reminded_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
