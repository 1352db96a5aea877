package payment

import (
	"context"
	"errors"
	"fmt"

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

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment

	err := row.Scan(
		&p.ID,
		&p.ConsultationID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.Provider,
		&p.TransactionReference,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &p, nil
}

const paymentColumns = `id, consultation_id, amount, currency, status, provider, transaction_reference, created_at, updated_at`

func (r *PgRepository) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE consultation_id = $1
	`, consultationID)
	return scanPayment(row)
}

func (r *PgRepository) GetByTransactionReference(ctx context.Context, txRef string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE transaction_reference = $1
	`, txRef)
	return scanPayment(row)
}

func (r *PgRepository) Finalize(ctx context.Context, paymentID uuid.UUID, to Status) (*Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'INITIATED'
		RETURNING `+paymentColumns+`
	`, paymentID, to)

	finalized, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrAlreadyFinalized
		}
		return nil, err
	}

	consultationState := "PAID"
	if to == StatusFailed {
		consultationState = "FAILED"
	}

	_, err = tx.Exec(ctx, `
		UPDATE consultations
		SET payment_status = $2,
		    updated_at = now()
		WHERE id = $1
	`, finalized.ConsultationID, consultationState)
	if err != nil {
		return nil, fmt.Errorf("update consultation payment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}

	return finalized, nil
}
