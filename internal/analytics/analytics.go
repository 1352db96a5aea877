package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service answers the admin dashboard queries straight from Postgres.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

type Summary struct {
	TotalUsers         int64 `json:"total_users"`
	TotalDoctors       int64 `json:"total_doctors"`
	TotalConsultations int64 `json:"total_consultations"`
	TotalRevenue       int64 `json:"total_revenue"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM users WHERE deleted_at IS NULL),
			(SELECT count(*) FROM doctors WHERE is_approved = true),
			(SELECT count(*) FROM consultations),
			(SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = 'SUCCESS')
	`).Scan(&out.TotalUsers, &out.TotalDoctors, &out.TotalConsultations, &out.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

func (s *Service) ConsultationsPerDay(ctx context.Context, from, to time.Time) ([]DayCount, error) {
	if from.IsZero() {
		from = time.Now().AddDate(0, 0, -30)
	}
	if to.IsZero() {
		to = time.Now()
	}

	rows, err := s.pool.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, count(*)
		FROM consultations
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY day
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}

	return result, rows.Err()
}

type Conversion struct {
	TotalConsultations     int64   `json:"total_consultations"`
	CompletedConsultations int64   `json:"completed_consultations"`
	ConversionRate         float64 `json:"conversion_rate"`
}

func (s *Service) ConversionRate(ctx context.Context) (*Conversion, error) {
	var out Conversion
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'COMPLETED')
		FROM consultations
	`).Scan(&out.TotalConsultations, &out.CompletedConsultations)
	if err != nil {
		return nil, err
	}

	if out.TotalConsultations > 0 {
		out.ConversionRate = float64(out.CompletedConsultations) / float64(out.TotalConsultations) * 100
	}

	return &out, nil
}

type DoctorUtilization struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	TotalSlots      int64     `json:"total_slots"`
	BookedSlots     int64     `json:"booked_slots"`
	UtilizationRate float64   `json:"utilization_rate"`
}

func (s *Service) DoctorUtilization(ctx context.Context) ([]DoctorUtilization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id,
		       count(s.id),
		       count(s.id) FILTER (WHERE s.status = 'BOOKED')
		FROM doctors d
		LEFT JOIN availability_slots s ON s.doctor_id = d.id
		WHERE d.is_approved = true
		GROUP BY d.id
		ORDER BY d.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorUtilization
	for rows.Next() {
		var du DoctorUtilization
		if err := rows.Scan(&du.DoctorID, &du.TotalSlots, &du.BookedSlots); err != nil {
			return nil, err
		}
		if du.TotalSlots > 0 {
			du.UtilizationRate = float64(du.BookedSlots) / float64(du.TotalSlots) * 100
		}
		result = append(result, du)
	}

	return result, rows.Err()
}
