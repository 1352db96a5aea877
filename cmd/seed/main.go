package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/telehealth-booking/internal/db"
)

// Every seeded account gets the same password so the simulator and manual
// testing can log in as any of them.
const seedPassword = "password123"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	passwordHash := string(hash)

	if err := seedAdmin(context.Background(), pool, passwordHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	doctorIDs, err := seedDoctors(context.Background(), pool, passwordHash, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, passwordHash, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, passwordHash string) error {
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, 'admin@medibook.test', $2, 'ADMIN', now(), now())
		ON CONFLICT (email) DO NOTHING
	`, id, passwordHash)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, phone)
		VALUES ($1, 'Seed Admin', NULL)
		ON CONFLICT (user_id) DO NOTHING
	`, id)
	return err
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	languages := []string{"English", "Hindi", "Tamil", "Bengali", "Marathi"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		userID := uuid.New()
		doctorID := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'DOCTOR', now(), now())
		`, userID, gofakeit.Email(), passwordHash)
		if err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (user_id, full_name, phone)
			VALUES ($1, $2, $3)
		`, userID, "Dr. "+gofakeit.Name(), gofakeit.Phone())
		if err != nil {
			return nil, err
		}

		spoken := []string{
			"English",
			languages[gofakeit.Number(1, len(languages)-1)],
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, specialization, years_of_experience, registration_number,
				clinic_name, consultation_fee, languages_spoken, bio, is_approved, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, now(), now())
		`, doctorID, userID,
			specializations[gofakeit.Number(0, len(specializations)-1)],
			gofakeit.Number(1, 30),
			gofakeit.Regex(`REG[0-9]{8}`),
			gofakeit.Company()+" Clinic",
			int64(gofakeit.Number(300, 2000))*100,
			spoken,
			gofakeit.Sentence(12),
		)
		if err != nil {
			return nil, err
		}

		ids = append(ids, doctorID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			userID := uuid.New()

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
				VALUES ($1, $2, $3, 'PATIENT', now(), now())
			`, userID, gofakeit.Email(), passwordHash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO profiles (user_id, full_name, phone)
				VALUES ($1, $2, $3)
			`, userID, gofakeit.Name(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSlots gives each doctor a week of 30-minute slots, 9:00 to 17:00.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding slots for %d doctors", len(doctorIDs))

	dayStart := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for _, doctorID := range doctorIDs {
		for day := 0; day < 7; day++ {
			base := dayStart.AddDate(0, 0, day).Add(9 * time.Hour)
			for half := 0; half < 16; half++ {
				start := base.Add(time.Duration(half) * 30 * time.Minute)
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, doctor_id, start_time, end_time, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, 'AVAILABLE', now(), now())
				`, uuid.New(), doctorID, start, start.Add(30*time.Minute))
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("slots seeded: %d", total)
	return nil
}
