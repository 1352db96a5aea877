package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/availability"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/payment"
	"github.com/medibook/telehealth-booking/internal/prescription"
)

// Auth

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func toUserResponse(u *account.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: string(u.Role)}
}

// Doctors

type RegisterDoctorRequest struct {
	Specialization     string   `json:"specialization"`
	YearsOfExperience  int      `json:"years_of_experience"`
	RegistrationNumber string   `json:"registration_number"`
	ClinicName         *string  `json:"clinic_name,omitempty"`
	ConsultationFee    int64    `json:"consultation_fee"`
	LanguagesSpoken    []string `json:"languages_spoken,omitempty"`
	Bio                *string  `json:"bio,omitempty"`
}

type DoctorResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	Specialization     string    `json:"specialization"`
	YearsOfExperience  int       `json:"years_of_experience"`
	RegistrationNumber string    `json:"registration_number"`
	ClinicName         *string   `json:"clinic_name,omitempty"`
	ConsultationFee    int64     `json:"consultation_fee"`
	LanguagesSpoken    []string  `json:"languages_spoken,omitempty"`
	Bio                *string   `json:"bio,omitempty"`
	IsApproved         bool      `json:"is_approved"`
}

func toDoctorResponse(d *account.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                 d.ID,
		UserID:             d.UserID,
		Specialization:     d.Specialization,
		YearsOfExperience:  d.YearsOfExperience,
		RegistrationNumber: d.RegistrationNumber,
		ClinicName:         d.ClinicName,
		ConsultationFee:    d.ConsultationFee,
		LanguagesSpoken:    d.LanguagesSpoken,
		Bio:                d.Bio,
		IsApproved:         d.IsApproved,
	}
}

// Slots

type CreateSlotRequest struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxPatients int       `json:"max_patients"`
}

type UpdateSlotRequest struct {
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	MaxPatients *int       `json:"max_patients,omitempty"`
}

type SlotResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxPatients int       `json:"max_patients"`
	Status      string    `json:"status"`
}

func toSlotResponse(s *availability.Slot) SlotResponse {
	return SlotResponse{
		ID:          s.ID,
		DoctorID:    s.DoctorID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		MaxPatients: s.MaxPatients,
		Status:      string(s.Status),
	}
}

// Consultations

type BookConsultationRequest struct {
	DoctorID string `json:"doctor_id"`
	SlotID   string `json:"slot_id"`
	Reason   string `json:"reason"`
}

type UpdateConsultationStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type ConsultationResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	SlotID        uuid.UUID  `json:"slot_id"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Notes         *string    `json:"notes,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toConsultationResponse(c *consultation.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:            c.ID,
		PatientID:     c.PatientID,
		DoctorID:      c.DoctorID,
		SlotID:        c.SlotID,
		Reason:        c.Reason,
		Status:        string(c.Status),
		PaymentStatus: string(c.PaymentStatus),
		Notes:         c.Notes,
		StartedAt:     c.StartedAt,
		EndedAt:       c.EndedAt,
		CreatedAt:     c.CreatedAt,
	}
}

type BookingResponse struct {
	Consultation ConsultationResponse `json:"consultation"`
	PaymentID    uuid.UUID            `json:"payment_id"`
	Amount       int64                `json:"amount"`
	Currency     string               `json:"currency"`
}

// Payments

type PaymentWebhookRequest struct {
	TransactionReference string `json:"transaction_reference"`
	Status               string `json:"status"`
}

type PaymentResponse struct {
	ID                   uuid.UUID `json:"id"`
	ConsultationID       uuid.UUID `json:"consultation_id"`
	Amount               int64     `json:"amount"`
	Currency             string    `json:"currency"`
	Status               string    `json:"status"`
	Provider             string    `json:"provider"`
	TransactionReference string    `json:"transaction_reference"`
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                   p.ID,
		ConsultationID:       p.ConsultationID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		Status:               string(p.Status),
		Provider:             p.Provider,
		TransactionReference: p.TransactionReference,
	}
}

// Prescriptions

type CreatePrescriptionRequest struct {
	ConsultationID string  `json:"consultation_id"`
	Medications    string  `json:"medications"`
	Advice         *string `json:"advice,omitempty"`
}

type PrescriptionResponse struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	Medications    string    `json:"medications"`
	Advice         *string   `json:"advice,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toPrescriptionResponse(p *prescription.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:             p.ID,
		ConsultationID: p.ConsultationID,
		DoctorID:       p.DoctorID,
		PatientID:      p.PatientID,
		Medications:    p.Medications,
		Advice:         p.Advice,
		CreatedAt:      p.CreatedAt,
	}
}
