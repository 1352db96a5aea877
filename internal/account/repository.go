package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailTaken              = errors.New("email already registered")
	ErrDoctorNotFound          = errors.New("doctor not found")
	ErrDoctorProfileExists     = errors.New("doctor profile already exists")
	ErrRegistrationNumberTaken = errors.New("registration number already in use")
)

// Repository contains all DB interactions needed by the account service.
type Repository interface {
	CreateUser(ctx context.Context, user User, profile Profile) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	GetDoctorByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error)
	SetDoctorApproval(ctx context.Context, doctorID uuid.UUID, approved bool) (*Doctor, error)
	SearchDoctors(ctx context.Context, filter DoctorSearchFilter) ([]Doctor, error)
}
