package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Specialization,
		&d.YearsOfExperience,
		&d.RegistrationNumber,
		&d.ClinicName,
		&d.ConsultationFee,
		&d.LanguagesSpoken,
		&d.Bio,
		&d.IsApproved,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

const doctorColumns = `id, user_id, specialization, years_of_experience, registration_number,
	clinic_name, consultation_fee, languages_spoken, bio, is_approved, created_at, updated_at`

// Interface methods

func (r *PgRepository) CreateUser(ctx context.Context, user User, profile Profile) (*User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, email, password_hash, role, created_at, updated_at, deleted_at
	`, user.ID, user.Email, user.PasswordHash, user.Role)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, phone)
		VALUES ($1, $2, $3)
	`, created.ID, profile.FullName, profile.Phone)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create user: %w", err)
	}

	return created, nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at, deleted_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email)
	return scanUser(row)
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, specialization, years_of_experience, registration_number,
			clinic_name, consultation_fee, languages_spoken, bio, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, now(), now())
		RETURNING `+doctorColumns+`
	`, d.ID, d.UserID, d.Specialization, d.YearsOfExperience, d.RegistrationNumber,
		d.ClinicName, d.ConsultationFee, d.LanguagesSpoken, d.Bio)

	created, err := scanDoctor(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRegistrationNumberTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE registration_number = $1
	`, regNo)
	return scanDoctor(row)
}

func (r *PgRepository) SetDoctorApproval(ctx context.Context, doctorID uuid.UUID, approved bool) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET is_approved = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns+`
	`, doctorID, approved)
	return scanDoctor(row)
}

func (r *PgRepository) SearchDoctors(ctx context.Context, filter DoctorSearchFilter) ([]Doctor, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE is_approved = true
		  AND ($1 = '' OR specialization ILIKE '%' || $1 || '%')
		  AND ($2 <= 0 OR consultation_fee >= $2)
		  AND ($3 <= 0 OR consultation_fee <= $3)
		ORDER BY consultation_fee ASC
		LIMIT $4 OFFSET $5
	`, filter.Specialization, filter.MinFee, filter.MaxFee, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
