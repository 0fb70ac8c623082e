package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fisiohome/booking-engine/internal/db"
)

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

	therapistIDs, err := seedTherapists(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed therapists: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, therapistIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedTherapists(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d therapists", count)

	specialties := []string{
		"Physiotherapy",
		"Pediatric Physiotherapy",
		"Geriatric Physiotherapy",
		"Sports Rehabilitation",
		"Neurological Rehabilitation",
		"Post-Surgery Recovery",
	}
	genders := []string{"MALE", "FEMALE"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		gender := genders[gofakeit.Number(0, 1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO therapists (id, name, specialty, gender, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, gender)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("therapists seeded")
	return ids, nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, therapistIDs []uuid.UUID) error {
	log.Printf("seeding %d therapist schedules", len(therapistIDs))

	durations := []int{45, 60, 90}
	buffers := []int{15, 20, 30}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range therapistIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO therapist_appointment_schedules
				(therapist_id, appointment_duration_in_minutes, buffer_time_in_minutes,
				 max_advance_booking_in_days, min_booking_before_in_hours, max_daily_appointments,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`,
			id,
			durations[gofakeit.Number(0, len(durations)-1)],
			buffers[gofakeit.Number(0, len(buffers)-1)],
			gofakeit.Number(14, 60),
			gofakeit.Number(2, 24),
			gofakeit.Number(3, 8),
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("therapist schedules seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500
	genders := []string{"MALE", "FEMALE"}

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
			contactID := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO patient_contacts (id, contact_name, contact_phone, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, contactID, gofakeit.Name(), gofakeit.Phone(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err = tx.Exec(ctx, `
				INSERT INTO patients (id, name, date_of_birth, gender, contact_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), gofakeit.Name(), dob, genders[gofakeit.Number(0, 1)], contactID)
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
