package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

const appointmentColumns = `
	a.id, a.customer_id, COALESCE(c.full_name, '') AS customer_name, a.clinic_id,
	a.primary_dentist_id, a.secondary_dentist_id, a.appointment_date_time,
	a.duration_minutes, a.status, a.notes, a.check_in_time, a.check_out_time,
	a.created_at, a.created_by, a.updated_at, a.updated_by`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments a
		LEFT JOIN customers c ON c.id = a.customer_id
		WHERE a.id = $1
	`
	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		return nil, notFound("appointment", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET customer_id = $1, clinic_id = $2, primary_dentist_id = $3, secondary_dentist_id = $4,
			appointment_date_time = $5, duration_minutes = $6, status = $7, notes = $8,
			check_in_time = $9, check_out_time = $10, updated_at = $11, updated_by = $12
		WHERE id = $13
	`
	result, err := r.db.ExecContext(ctx, query,
		apt.CustomerID,
		apt.ClinicID,
		apt.PrimaryDentistID,
		apt.SecondaryDentistID,
		apt.AppointmentDateTime,
		apt.DurationMinutes,
		apt.Status,
		apt.Notes,
		apt.CheckInTime,
		apt.CheckOutTime,
		apt.UpdatedAt,
		apt.UpdatedBy,
		apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return expectRows("appointment", result)
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return expectRows("appointment", result)
}

func (r *appointmentRepository) ListByDentist(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments a
		LEFT JOIN customers c ON c.id = a.customer_id
		WHERE (a.primary_dentist_id = $1 OR a.secondary_dentist_id = $1)
			AND a.appointment_date_time < $3
			AND a.appointment_date_time + a.duration_minutes * INTERVAL '1 minute' > $2
			AND a.status NOT IN ($4, $5)
		ORDER BY a.appointment_date_time ASC, a.id ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query,
		dentistID, from, to,
		model.AppointmentStatusCancelled, model.AppointmentStatusNoShow,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dentist appointments: %w", err)
	}
	return appointments, nil
}
