package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("caller not allowed to perform this action")
)

type Service struct {
	repo   Repository
	tokens *TokenIssuer
	now    func() time.Time
}

func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		now:    time.Now,
	}
}

type RegisterParams struct {
	Email    string
	Password string
	Role     Role
	FullName string
	Phone    *string
}

// Register creates a user with a hashed password. Admins cannot self-register.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*User, error) {
	if p.Role != RolePatient && p.Role != RoleDoctor {
		return nil, ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.New(),
		Email:        p.Email,
		PasswordHash: string(hash),
		Role:         p.Role,
	}
	profile := Profile{FullName: p.FullName, Phone: p.Phone}

	created, err := s.repo.CreateUser(ctx, user, profile)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role, s.now())
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, user, nil
}

type RegisterDoctorParams struct {
	Specialization     string
	YearsOfExperience  int
	RegistrationNumber string
	ClinicName         *string
	ConsultationFee    int64
	LanguagesSpoken    []string
	Bio                *string
}

// RegisterDoctor attaches a clinical profile to a DOCTOR-role user. The
// profile starts unapproved; an admin must approve it before the doctor can
// take bookings.
func (s *Service) RegisterDoctor(ctx context.Context, userID uuid.UUID, p RegisterDoctorParams) (*Doctor, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != RoleDoctor {
		return nil, ErrForbidden
	}

	if _, err := s.repo.GetDoctorByUserID(ctx, userID); err == nil {
		return nil, ErrDoctorProfileExists
	} else if !errors.Is(err, ErrDoctorNotFound) {
		return nil, fmt.Errorf("check doctor profile: %w", err)
	}

	if existing, err := s.repo.GetDoctorByRegistrationNumber(ctx, p.RegistrationNumber); err == nil && existing != nil {
		return nil, ErrRegistrationNumberTaken
	} else if err != nil && !errors.Is(err, ErrDoctorNotFound) {
		return nil, fmt.Errorf("check registration number: %w", err)
	}

	doctor := Doctor{
		ID:                 uuid.New(),
		UserID:             userID,
		Specialization:     p.Specialization,
		YearsOfExperience:  p.YearsOfExperience,
		RegistrationNumber: p.RegistrationNumber,
		ClinicName:         p.ClinicName,
		ConsultationFee:    p.ConsultationFee,
		LanguagesSpoken:    p.LanguagesSpoken,
		Bio:                p.Bio,
	}

	return s.repo.CreateDoctor(ctx, doctor)
}

// ApproveDoctor is admin-only; the handler enforces the role, the service
// re-checks it.
func (s *Service) ApproveDoctor(ctx context.Context, callerRole Role, doctorID uuid.UUID) (*Doctor, error) {
	if callerRole != RoleAdmin {
		return nil, ErrForbidden
	}
	return s.repo.SetDoctorApproval(ctx, doctorID, true)
}

func (s *Service) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctorByID(ctx, doctorID)
}

// GetDoctorByUser resolves the clinical profile behind a DOCTOR-role caller.
func (s *Service) GetDoctorByUser(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctorByUserID(ctx, userID)
}

func (s *Service) SearchDoctors(ctx context.Context, filter DoctorSearchFilter) ([]Doctor, error) {
	return s.repo.SearchDoctors(ctx, filter)
}
