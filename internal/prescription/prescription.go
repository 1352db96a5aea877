package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPrescriptionNotFound     = errors.New("prescription not found")
	ErrConsultationNotFound     = errors.New("consultation not found")
	ErrNotConsultationDoctor    = errors.New("only the assigned doctor can prescribe for this consultation")
	ErrConsultationNotCompleted = errors.New("prescriptions require a completed consultation")
	ErrNotAuthorized            = errors.New("caller not allowed to view this prescription")
	ErrAlreadyPrescribed        = errors.New("consultation already has a prescription")
)

// Prescription is immutable once written.
type Prescription struct {
	ID             uuid.UUID
	ConsultationID uuid.UUID
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	Medications    string
	Advice         *string
	CreatedAt      time.Time
}

// Repository contains all DB interactions needed by the prescription service.
type Repository interface {
	Create(ctx context.Context, p Prescription) (*Prescription, error)
	GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Prescription, error)

	// GetConsultationForPrescribing returns the doctor and patient of the
	// consultation plus its status.
	GetConsultationForPrescribing(ctx context.Context, consultationID uuid.UUID) (doctorID, patientID uuid.UUID, status string, err error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription

	err := row.Scan(
		&p.ID,
		&p.ConsultationID,
		&p.DoctorID,
		&p.PatientID,
		&p.Medications,
		&p.Advice,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *PgRepository) Create(ctx context.Context, p Prescription) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, consultation_id, doctor_id, patient_id, medications, advice, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, consultation_id, doctor_id, patient_id, medications, advice, created_at
	`, p.ID, p.ConsultationID, p.DoctorID, p.PatientID, p.Medications, p.Advice)
	return scanPrescription(row)
}

func (r *PgRepository) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, consultation_id, doctor_id, patient_id, medications, advice, created_at
		FROM prescriptions
		WHERE consultation_id = $1
	`, consultationID)
	return scanPrescription(row)
}

func (r *PgRepository) GetConsultationForPrescribing(ctx context.Context, consultationID uuid.UUID) (uuid.UUID, uuid.UUID, string, error) {
	var doctorID, patientID uuid.UUID
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT doctor_id, patient_id, status
		FROM consultations
		WHERE id = $1
	`, consultationID).Scan(&doctorID, &patientID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, "", ErrConsultationNotFound
		}
		return uuid.Nil, uuid.Nil, "", err
	}
	return doctorID, patientID, status, nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create writes a prescription for a COMPLETED consultation owned by the
// calling doctor.
func (s *Service) Create(ctx context.Context, callerDoctorID, consultationID uuid.UUID, medications string, advice *string) (*Prescription, error) {
	doctorID, patientID, status, err := s.repo.GetConsultationForPrescribing(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	if doctorID != callerDoctorID {
		return nil, ErrNotConsultationDoctor
	}
	if status != "COMPLETED" {
		return nil, ErrConsultationNotCompleted
	}

	if _, err := s.repo.GetByConsultation(ctx, consultationID); err == nil {
		return nil, ErrAlreadyPrescribed
	} else if !errors.Is(err, ErrPrescriptionNotFound) {
		return nil, err
	}

	return s.repo.Create(ctx, Prescription{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		DoctorID:       doctorID,
		PatientID:      patientID,
		Medications:    medications,
		Advice:         advice,
	})
}

// GetByConsultation enforces participant-or-admin access.
func (s *Service) GetByConsultation(ctx context.Context, consultationID, callerUserID, callerDoctorID uuid.UUID, isAdmin bool) (*Prescription, error) {
	p, err := s.repo.GetByConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	isPatient := p.PatientID == callerUserID
	isDoctor := callerDoctorID != uuid.Nil && p.DoctorID == callerDoctorID
	if !isPatient && !isDoctor && !isAdmin {
		return nil, ErrNotAuthorized
	}

	return p, nil
}
