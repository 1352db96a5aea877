package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/config"
	"github.com/medibook/telehealth-booking/internal/db"
)

// The simulator hammers single slots with concurrent booking attempts and
// verifies exactly one attempt per slot wins. It mints patient tokens
// directly from JWT_SECRET instead of logging in, so it must run with the
// same secret as the api-server.

type SimConfig struct {
	APIBaseURL   string
	Rounds       int
	Contenders   int
	PatientLimit int
	PostgresDSN  string
}

type slotTarget struct {
	SlotID   uuid.UUID
	DoctorID uuid.UUID
}

type RoundResult struct {
	SlotID   uuid.UUID
	Winners  int64
	Losers   int64
	Errors   int64
	Latency  []time.Duration
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Rounds:       getInt("SIM_ROUNDS", 10),
		Contenders:   getInt("SIM_CONTENDERS", 20),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	log.Printf("config: rounds=%d contenders=%d base_url=%s",
		cfg.Rounds, cfg.Contenders, cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	patients, err := loadPatients(ctx, pgPool, cfg.PatientLimit)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	slots, err := loadOpenSlots(ctx, pgPool, cfg.Rounds)
	if err != nil {
		log.Fatalf("load slots: %v", err)
	}
	log.Printf("loaded: %d patients, %d open slots", len(patients), len(slots))

	tokens := account.NewTokenIssuer(baseCfg.JWTSecret, time.Hour)
	client := &http.Client{Timeout: 10 * time.Second}

	results := make([]RoundResult, 0, len(slots))
	for i, target := range slots {
		r := runRound(client, cfg, tokens, patients, target)
		results = append(results, r)
		log.Printf("round %d/%d slot=%s winners=%d losers=%d errors=%d",
			i+1, len(slots), target.SlotID, r.Winners, r.Losers, r.Errors)
	}

	printReport(cfg, results)
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM users WHERE role = 'PATIENT' AND deleted_at IS NULL LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no patients found, run the seed first")
	}
	return ids, rows.Err()
}

func loadOpenSlots(ctx context.Context, pool *pgxpool.Pool, limit int) ([]slotTarget, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, doctor_id FROM availability_slots
		WHERE status = 'AVAILABLE' AND start_time > now()
		ORDER BY start_time
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []slotTarget
	for rows.Next() {
		var t slotTarget
		if err := rows.Scan(&t.SlotID, &t.DoctorID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no open slots found, run the seed first")
	}
	return targets, rows.Err()
}

func runRound(client *http.Client, cfg SimConfig, tokens *account.TokenIssuer, patients []uuid.UUID, target slotTarget) RoundResult {
	result := RoundResult{SlotID: target.SlotID}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < cfg.Contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))
			patientID := patients[rng.Intn(len(patients))]

			token, err := tokens.Issue(patientID, account.RolePatient, time.Now())
			if err != nil {
				atomic.AddInt64(&result.Errors, 1)
				return
			}

			body, _ := json.Marshal(map[string]string{
				"doctor_id": target.DoctorID.String(),
				"slot_id":   target.SlotID.String(),
				"reason":    "load test consultation",
			})

			req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/api/v1/consultations", bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&result.Errors, 1)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Idempotency-Key", uuid.NewString())

			start := time.Now()
			resp, err := client.Do(req)
			latency := time.Since(start)

			if err != nil {
				atomic.AddInt64(&result.Errors, 1)
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			switch resp.StatusCode {
			case http.StatusCreated:
				atomic.AddInt64(&result.Winners, 1)
			case http.StatusConflict:
				atomic.AddInt64(&result.Losers, 1)
			default:
				atomic.AddInt64(&result.Errors, 1)
			}

			mu.Lock()
			result.Latency = append(result.Latency, latency)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	return result
}

func printReport(cfg SimConfig, results []RoundResult) {
	var winners, losers, errs int64
	var all []time.Duration
	violations := 0

	for _, r := range results {
		winners += r.Winners
		losers += r.Losers
		errs += r.Errors
		all = append(all, r.Latency...)
		if r.Winners != 1 {
			violations++
			fmt.Printf("VIOLATION: slot %s had %d winners\n", r.SlotID, r.Winners)
		}
	}

	fmt.Println()
	fmt.Println("SIMULATION REPORT")
	fmt.Printf("Rounds: %d  Contenders per round: %d\n", len(results), cfg.Contenders)
	fmt.Printf("Winners: %d  Losers: %d  Errors: %d\n", winners, losers, errs)
	fmt.Printf("Single-winner violations: %d\n", violations)

	if len(all) > 0 {
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		var sum time.Duration
		for _, l := range all {
			sum += l
		}
		p50 := all[len(all)*50/100]
		p95 := all[min(len(all)*95/100, len(all)-1)]
		fmt.Printf("Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
			(sum / time.Duration(len(all))).Round(time.Millisecond),
			all[0].Round(time.Millisecond),
			all[len(all)-1].Round(time.Millisecond),
			p50.Round(time.Millisecond),
			p95.Round(time.Millisecond),
		)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
