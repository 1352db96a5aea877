package account

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	usersByID    map[uuid.UUID]*User
	usersByEmail map[string]*User
	doctors      map[uuid.UUID]*Doctor
}

func newMemRepo() *memRepo {
	return &memRepo{
		usersByID:    make(map[uuid.UUID]*User),
		usersByEmail: make(map[string]*User),
		doctors:      make(map[uuid.UUID]*Doctor),
	}
}

func (r *memRepo) CreateUser(_ context.Context, user User, _ Profile) (*User, error) {
	if _, ok := r.usersByEmail[user.Email]; ok {
		return nil, ErrEmailTaken
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.usersByID[user.ID] = &user
	r.usersByEmail[user.Email] = &user
	out := user
	return &out, nil
}

func (r *memRepo) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.usersByID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.usersByEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memRepo) CreateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	r.doctors[d.ID] = &d
	out := d
	return &out, nil
}

func (r *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := *d
	return &out, nil
}

func (r *memRepo) GetDoctorByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	for _, d := range r.doctors {
		if d.UserID == userID {
			out := *d
			return &out, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *memRepo) GetDoctorByRegistrationNumber(_ context.Context, regno string) (*Doctor, error) {
	for _, d := range r.doctors {
		if d.RegistrationNumber == regno {
			out := *d
			return &out, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *memRepo) SetDoctorApproval(_ context.Context, id uuid.UUID, approved bool) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.IsApproved = approved
	out := *d
	return &out, nil
}

func (r *memRepo) SearchDoctors(_ context.Context, f DoctorSearchFilter) ([]Doctor, error) {
	var out []Doctor
	for _, d := range r.doctors {
		if !d.IsApproved {
			continue
		}
		if f.Specialization != "" && !strings.EqualFold(d.Specialization, f.Specialization) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func newAccountService(repo Repository) *Service {
	return NewService(repo, NewTokenIssuer("test-secret", time.Hour))
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := newAccountService(repo)

	user, err := svc.Register(context.Background(), RegisterParams{
		Email:    "pat@example.com",
		Password: "hunter2hunter2",
		Role:     RolePatient,
		FullName: "Pat Example",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newAccountService(newMemRepo())

	_, err := svc.Register(context.Background(), RegisterParams{
		Email:    "evil@example.com",
		Password: "password123",
		Role:     RoleAdmin,
		FullName: "Evil Admin",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAccountService(newMemRepo())

	params := RegisterParams{
		Email:    "pat@example.com",
		Password: "password123",
		Role:     RolePatient,
		FullName: "Pat Example",
	}
	_, err := svc.Register(context.Background(), params)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), params)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	repo := newMemRepo()
	svc := newAccountService(repo)

	registered, err := svc.Register(context.Background(), RegisterParams{
		Email:    "pat@example.com",
		Password: "password123",
		Role:     RolePatient,
		FullName: "Pat Example",
	})
	require.NoError(t, err)

	token, user, err := svc.Login(context.Background(), "pat@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "pat@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDoctorLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := newAccountService(repo)

	user, err := svc.Register(context.Background(), RegisterParams{
		Email:    "doc@example.com",
		Password: "password123",
		Role:     RoleDoctor,
		FullName: "Doc Example",
	})
	require.NoError(t, err)

	doctor, err := svc.RegisterDoctor(context.Background(), user.ID, RegisterDoctorParams{
		Specialization:     "Dermatology",
		YearsOfExperience:  8,
		RegistrationNumber: "REG12345678",
		ConsultationFee:    50000,
	})
	require.NoError(t, err)
	assert.False(t, doctor.IsApproved)

	// A second clinical profile for the same user is rejected.
	_, err = svc.RegisterDoctor(context.Background(), user.ID, RegisterDoctorParams{
		Specialization:     "Cardiology",
		RegistrationNumber: "REG87654321",
	})
	assert.ErrorIs(t, err, ErrDoctorProfileExists)

	approved, err := svc.ApproveDoctor(context.Background(), RoleAdmin, doctor.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = svc.ApproveDoctor(context.Background(), RoleDoctor, doctor.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterDoctorGates(t *testing.T) {
	repo := newMemRepo()
	svc := newAccountService(repo)

	patient, err := svc.Register(context.Background(), RegisterParams{
		Email:    "pat@example.com",
		Password: "password123",
		Role:     RolePatient,
		FullName: "Pat Example",
	})
	require.NoError(t, err)

	_, err = svc.RegisterDoctor(context.Background(), patient.ID, RegisterDoctorParams{
		RegistrationNumber: "REG12345678",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	doc1, err := svc.Register(context.Background(), RegisterParams{
		Email:    "doc1@example.com",
		Password: "password123",
		Role:     RoleDoctor,
		FullName: "Doc One",
	})
	require.NoError(t, err)
	doc2, err := svc.Register(context.Background(), RegisterParams{
		Email:    "doc2@example.com",
		Password: "password123",
		Role:     RoleDoctor,
		FullName: "Doc Two",
	})
	require.NoError(t, err)

	_, err = svc.RegisterDoctor(context.Background(), doc1.ID, RegisterDoctorParams{
		RegistrationNumber: "REG11111111",
	})
	require.NoError(t, err)

	_, err = svc.RegisterDoctor(context.Background(), doc2.ID, RegisterDoctorParams{
		RegistrationNumber: "REG11111111",
	})
	assert.ErrorIs(t, err, ErrRegistrationNumberTaken)
}
