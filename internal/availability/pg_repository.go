package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.StartTime,
		&s.EndTime,
		&s.MaxPatients,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

const slotColumns = `id, doctor_id, start_time, end_time, max_patients, status, created_at, updated_at`

func (r *PgRepository) CreateSlot(ctx context.Context, s Slot) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, start_time, end_time, max_patients, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'AVAILABLE', now(), now())
		RETURNING `+slotColumns+`
	`, s.ID, s.DoctorID, s.StartTime, s.EndTime, s.MaxPatients)

	return scanSlot(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) HasOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	// Half-open interval rule: [s1,e1) and [s2,e2) overlap iff s1 < e2 AND s2 < e1.
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM availability_slots
			WHERE doctor_id = $1
			  AND start_time < $3
			  AND $2 < end_time
			  AND id <> $4
		)
	`, doctorID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, now time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND status = 'AVAILABLE'
		  AND start_time >= $2
		  AND ($3::timestamptz IS NULL OR start_time >= $3)
		  AND ($4::timestamptz IS NULL OR end_time <= $4)
		ORDER BY start_time ASC
	`, doctorID, now, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateSlot(ctx context.Context, id uuid.UUID, upd SlotUpdate) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_slots
		SET start_time = COALESCE($2, start_time),
		    end_time = COALESCE($3, end_time),
		    max_patients = COALESCE($4, max_patients),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotColumns+`
	`, id, upd.StartTime, upd.EndTime, upd.MaxPatients)

	return scanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
