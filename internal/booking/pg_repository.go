package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests. pgx.Tx satisfies the query methods, so a transaction-scoped
// repository reuses the same code paths.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	pool Pool
}

func NewPgRepository(pool Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx runs fn against a transaction-scoped repository, committing on nil
// and rolling back otherwise. The deferred unique constraint on
// (registration_number, visit_number) is checked at commit, which lets a
// renumbering permutation pass through intermediate duplicates.
func (r *PgRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&PgRepository{pool: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var contactID *uuid.UUID

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DateOfBirth,
		&p.Gender,
		&contactID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.ContactID = contactID
	return &p, nil
}

func scanContact(row pgx.Row) (*PatientContact, error) {
	var c PatientContact

	err := row.Scan(
		&c.ID,
		&c.ContactName,
		&c.ContactPhone,
		&c.Email,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanAddress(row pgx.Row) (*Address, error) {
	var a Address

	err := row.Scan(
		&a.ID,
		&a.LocationID,
		&a.Latitude,
		&a.Longitude,
		&a.PostalCode,
		&a.Address,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var (
		referenceID *uuid.UUID
		therapistID *uuid.UUID
		scheduledAt *time.Time
	)

	err := row.Scan(
		&a.ID,
		&a.RegistrationNumber,
		&a.VisitNumber,
		&referenceID,
		&a.PatientID,
		&therapistID,
		&scheduledAt,
		&a.LocationID,
		&a.ServiceID,
		&a.PackageID,
		&a.PreferredTherapistGender,
		&a.Status,
		&a.StatusReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ReferenceAppointmentID = referenceID
	a.TherapistID = therapistID
	a.AppointmentDateTime = scheduledAt
	return &a, nil
}

const appointmentColumns = `
	id, registration_number, visit_number, reference_appointment_id,
	patient_id, therapist_id, appointment_date_time,
	location_id, service_id, package_id,
	preferred_therapist_gender, status, status_reason,
	created_at, updated_at`

// Identity

func (r *PgRepository) FindPatientByIdentity(ctx context.Context, name string, dateOfBirth time.Time, gender Gender) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, date_of_birth, gender, contact_id, created_at, updated_at
		FROM patients
		WHERE name = $1 AND date_of_birth = $2 AND gender = $3
	`, name, dateOfBirth, gender)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, name, date_of_birth, gender, contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`, p.ID, p.Name, p.DateOfBirth, p.Gender, p.ContactID)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) LinkPatientContact(ctx context.Context, patientID, contactID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET contact_id = $2,
		    updated_at = now()
		WHERE id = $1
	`, patientID, contactID)
	if err != nil {
		return fmt.Errorf("link patient contact: %w", err)
	}
	return nil
}

func (r *PgRepository) GetContactByID(ctx context.Context, id uuid.UUID) (*PatientContact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, contact_name, contact_phone, email, created_at, updated_at
		FROM patient_contacts
		WHERE id = $1
	`, id)
	return scanContact(row)
}

func (r *PgRepository) FindContactByEmail(ctx context.Context, email string) (*PatientContact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, contact_name, contact_phone, email, created_at, updated_at
		FROM patient_contacts
		WHERE lower(email) = lower($1)
		ORDER BY created_at
		LIMIT 1
	`, email)
	return scanContact(row)
}

func (r *PgRepository) FindContactByPhoneDigits(ctx context.Context, digits string) (*PatientContact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, contact_name, contact_phone, email, created_at, updated_at
		FROM patient_contacts
		WHERE regexp_replace(contact_phone, '\D', '', 'g') = $1
		ORDER BY created_at
		LIMIT 1
	`, digits)
	return scanContact(row)
}

func (r *PgRepository) CreateContact(ctx context.Context, c *PatientContact) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_contacts (id, contact_name, contact_phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, c.ID, c.ContactName, c.ContactPhone, c.Email)
	if err != nil {
		return fmt.Errorf("insert patient contact: %w", err)
	}
	return nil
}

func (r *PgRepository) FindAddress(ctx context.Context, locationID uuid.UUID, latitude, longitude float64) (*Address, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, location_id, latitude, longitude, postal_code, address, created_at, updated_at
		FROM addresses
		WHERE location_id = $1 AND latitude = $2 AND longitude = $3
	`, locationID, latitude, longitude)
	return scanAddress(row)
}

func (r *PgRepository) CreateAddress(ctx context.Context, a *Address) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO addresses (id, location_id, latitude, longitude, postal_code, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, a.ID, a.LocationID, a.Latitude, a.Longitude, a.PostalCode, a.Address)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAddressDetails(ctx context.Context, id uuid.UUID, postalCode, addressText string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE addresses
		SET postal_code = $2,
		    address = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, postalCode, addressText)
	if err != nil {
		return fmt.Errorf("update address details: %w", err)
	}
	return nil
}

func (r *PgRepository) SetActivePatientAddress(ctx context.Context, patientID, addressID uuid.UUID) error {
	// Deactivate first: the partial unique index on (patient_id) WHERE active
	// rejects a second active row, so activating before clearing the old link
	// would fail for every returning patient with a new address.
	_, err := r.pool.Exec(ctx, `
		UPDATE patient_addresses
		SET active = FALSE,
		    updated_at = now()
		WHERE patient_id = $1 AND address_id <> $2 AND active
	`, patientID, addressID)
	if err != nil {
		return fmt.Errorf("deactivate other addresses: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO patient_addresses (patient_id, address_id, active, created_at, updated_at)
		VALUES ($1, $2, TRUE, now(), now())
		ON CONFLICT (patient_id, address_id)
		DO UPDATE SET active = TRUE, updated_at = now()
	`, patientID, addressID)
	if err != nil {
		return fmt.Errorf("activate patient address: %w", err)
	}

	return nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindRootByRegistrationNumber(ctx context.Context, registrationNumber string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE registration_number = $1 AND reference_appointment_id IS NULL
	`, registrationNumber)
	return scanAppointment(row)
}

func (r *PgRepository) ListSeries(ctx context.Context, registrationNumber string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE registration_number = $1
		ORDER BY visit_number
	`, registrationNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET therapist_id = $2,
		    appointment_date_time = $3,
		    preferred_therapist_gender = $4,
		    status = $5,
		    status_reason = $6,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.TherapistID, a.AppointmentDateTime, a.PreferredTherapistGender, a.Status, a.StatusReason)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateVisitNumbers(ctx context.Context, numbers map[uuid.UUID]int) error {
	for id, n := range numbers {
		_, err := r.pool.Exec(ctx, `
			UPDATE appointments
			SET visit_number = $2,
			    updated_at = now()
			WHERE id = $1
		`, id, n)
		if err != nil {
			return fmt.Errorf("update visit number for %s: %w", id, err)
		}
	}
	return nil
}

func (r *PgRepository) ListTherapistSchedules(ctx context.Context, therapistIDs []uuid.UUID) (map[uuid.UUID]*TherapistSchedule, error) {
	result := make(map[uuid.UUID]*TherapistSchedule, len(therapistIDs))
	if len(therapistIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT therapist_id, appointment_duration_in_minutes, buffer_time_in_minutes,
		       max_advance_booking_in_days, min_booking_before_in_hours, max_daily_appointments
		FROM therapist_appointment_schedules
		WHERE therapist_id = ANY($1)
	`, therapistIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s TherapistSchedule
		err := rows.Scan(
			&s.TherapistID,
			&s.AppointmentDurationInMinutes,
			&s.BufferTimeInMinutes,
			&s.MaxAdvanceBookingInDays,
			&s.MinBookingBeforeInHours,
			&s.MaxDailyAppointments,
		)
		if err != nil {
			return nil, err
		}
		sched := s
		result[s.TherapistID] = &sched
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertStatusHistory(ctx context.Context, h StatusHistory) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_status_histories (appointment_id, old_status, new_status, reason, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, h.AppointmentID, h.OldStatus, h.NewStatus, h.Reason, h.ChangedBy)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *PgRepository) ListStatusHistory(ctx context.Context, appointmentID uuid.UUID) ([]StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, old_status, new_status, reason, changed_by, created_at
		FROM appointment_status_histories
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusHistory
	for rows.Next() {
		var h StatusHistory
		err := rows.Scan(&h.ID, &h.AppointmentID, &h.OldStatus, &h.NewStatus, &h.Reason, &h.ChangedBy, &h.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) AssociatePersonInCharge(ctx context.Context, appointmentID, adminID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_persons_in_charge (appointment_id, admin_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (appointment_id, admin_id) DO NOTHING
	`, appointmentID, adminID)
	if err != nil {
		return fmt.Errorf("insert person in charge: %w", err)
	}
	return nil
}

// Drafts

func (r *PgRepository) ExpireDraft(ctx context.Context, draftID uuid.UUID, appointmentID *uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment_drafts
		SET status = 'expired',
		    appointment_id = COALESCE($2, appointment_id),
		    updated_at = now()
		WHERE id = $1 AND status = 'active'
	`, draftID, appointmentID)
	if err != nil {
		return false, fmt.Errorf("expire draft: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) FindOverdueActiveDrafts(ctx context.Context, now time.Time) ([]AppointmentDraft, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, current_step, form_data, status, appointment_id, expires_at, created_at, updated_at
		FROM appointment_drafts
		WHERE status = 'active' AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDraft
	for rows.Next() {
		var d AppointmentDraft
		err := rows.Scan(&d.ID, &d.CurrentStep, &d.FormData, &d.Status, &d.AppointmentID, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
