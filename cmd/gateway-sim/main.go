// gateway-sim is a local stand-in for the external booking gateway. It
// accepts booking submissions, replies immediately with a registration
// number, and materializes the local appointment rows only after a
// configurable delay, reproducing the eventual-consistency gap the resolver
// has to bridge.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fisiohome/booking-engine/internal/db"
	"github.com/fisiohome/booking-engine/internal/gateway"
)

type simulator struct {
	pool             *pgxpool.Pool
	materializeDelay time.Duration
	includeIDs       bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("gateway-sim starting up")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	port := getEnv("GATEWAY_SIM_PORT", "8081")
	delay := getDurationEnv("MATERIALIZE_DELAY", 5*time.Second)
	includeIDs := os.Getenv("INCLUDE_APPOINTMENT_IDS") == "true"

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, dsn)
	cancelPg()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	sim := &simulator{
		pool:             pool,
		materializeDelay: delay,
		includeIDs:       includeIDs,
	}

	r := chi.NewRouter()
	r.Post("/api/v1/bookings", sim.createBooking)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("gateway-sim listening on :%s (materialize_delay=%s include_ids=%v)", port, delay, includeIDs)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down gateway-sim")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *simulator) createBooking(w http.ResponseWriter, r *http.Request) {
	var payload gateway.BookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not parse JSON"})
		return
	}
	if payload.PatientID == "" || len(payload.Visits) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "patient and at least one visit are required"})
		return
	}

	registrationNumber := fmt.Sprintf("FH-%06d", rand.Intn(1000000))

	ids := make([]uuid.UUID, len(payload.Visits))
	for i := range payload.Visits {
		ids[i] = uuid.New()
	}

	// Materialize asynchronously: the caller sees the registration number
	// before the rows exist, exactly like the real gateway.
	go func() {
		time.Sleep(s.materializeDelay)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := s.materialize(ctx, registrationNumber, ids, payload); err != nil {
			log.Printf("materialize booking %s: %v", registrationNumber, err)
		} else {
			log.Printf("materialized booking %s (%d visits)", registrationNumber, len(ids))
		}
	}()

	resp := gateway.BookingResponse{RegistrationNumber: registrationNumber}
	if s.includeIDs {
		for _, id := range ids {
			resp.Appointments = append(resp.Appointments, gateway.AppointmentSummary{AppointmentID: id.String()})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *simulator) materialize(ctx context.Context, registrationNumber string, ids []uuid.UUID, payload gateway.BookingPayload) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rootID := ids[0]
	for i, visit := range payload.Visits {
		var referenceID *uuid.UUID
		if i > 0 {
			referenceID = &rootID
		}

		var therapistID *uuid.UUID
		if visit.TherapistID != "" {
			id, err := uuid.Parse(visit.TherapistID)
			if err != nil {
				return fmt.Errorf("visit %d therapist id: %w", visit.VisitNumber, err)
			}
			therapistID = &id
		}

		var scheduledAt *time.Time
		if visit.AppointmentDateTime != "" {
			t, err := time.Parse(time.RFC3339, visit.AppointmentDateTime)
			if err != nil {
				return fmt.Errorf("visit %d appointment time: %w", visit.VisitNumber, err)
			}
			scheduledAt = &t
		}

		status := "UNSCHEDULED"
		switch {
		case scheduledAt != nil && therapistID != nil:
			status = "PENDING_PATIENT_APPROVAL"
		case scheduledAt != nil:
			status = "PENDING_THERAPIST_ASSIGNMENT"
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO appointments
				(id, registration_number, visit_number, reference_appointment_id,
				 patient_id, therapist_id, appointment_date_time,
				 location_id, service_id, package_id,
				 preferred_therapist_gender, status, status_reason,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '', now(), now())
		`,
			ids[i], registrationNumber, visit.VisitNumber, referenceID,
			payload.PatientID, therapistID, scheduledAt,
			payload.LocationID, payload.ServiceID, payload.PackageID,
			payload.PreferredTherapistGender, status,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
