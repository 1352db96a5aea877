package account

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type Profile struct {
	UserID   uuid.UUID
	FullName string
	Phone    *string
}

// Doctor extends a DOCTOR-role user with the clinical profile patients see.
// ConsultationFee is in the smallest currency unit and is captured into each
// payment at booking time.
type Doctor struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Specialization     string
	YearsOfExperience  int
	RegistrationNumber string
	ClinicName         *string
	ConsultationFee    int64
	LanguagesSpoken    []string
	Bio                *string
	IsApproved         bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DoctorSearchFilter narrows SearchDoctors. Zero values mean "no filter".
type DoctorSearchFilter struct {
	Specialization string
	MinFee         int64
	MaxFee         int64
	Limit          int
	Offset         int
}
