package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) HasConflicting(ctx context.Context, salonID, staffID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE salon_id = $1
			  AND staff_id = $2
			  AND status <> 'cancelled'
			  AND starts_at < $3
			  AND ends_at > $4
		)
	`, salonID, staffID, end, start).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check conflicting appointment: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, salon_id, staff_id, service_id, customer_id, variant_name, starts_at, ends_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id, salon_id, staff_id, service_id, customer_id, variant_name, starts_at, ends_at, status, created_at
	`, id, appt.SalonID, appt.StaffID, appt.ServiceID, appt.CustomerID, appt.Variant, appt.StartsAt, appt.EndsAt, appt.Status)

	var out Appointment
	err := row.Scan(
		&out.ID,
		&out.SalonID,
		&out.StaffID,
		&out.ServiceID,
		&out.CustomerID,
		&out.Variant,
		&out.StartsAt,
		&out.EndsAt,
		&out.Status,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return &out, nil
}
