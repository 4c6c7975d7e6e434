package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// overrideWindow is the JSONB shape of one window inside
// schedule_overrides.windows: {"start":"09:00","end":"13:00"}.
type overrideWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r *PgRepository) GetStaffSchedule(ctx context.Context, salonID, staffID uuid.UUID) (*StaffSchedule, error) {
	sched := &StaffSchedule{
		StaffID:   staffID,
		Weekly:    make(map[time.Weekday][]WorkingWindow),
		Overrides: make(map[string][]WorkingWindow),
	}

	err := r.pool.QueryRow(ctx, `
		SELECT active
		FROM staff
		WHERE id = $1 AND salon_id = $2
	`, staffID, salonID).Scan(&sched.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_min, end_min
		FROM working_hours
		WHERE staff_id = $1 AND salon_id = $2
	`, staffID, salonID)
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day int
		var w WorkingWindow
		if err := rows.Scan(&day, &w.StartMin, &w.EndMin); err != nil {
			return nil, fmt.Errorf("scan working hours: %w", err)
		}
		weekday := time.Weekday(day)
		sched.Weekly[weekday] = append(sched.Weekly[weekday], w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadOverrides(ctx, salonID, staffID, sched); err != nil {
		return nil, err
	}
	if err := r.loadTimeOff(ctx, salonID, staffID, sched); err != nil {
		return nil, err
	}

	return sched, nil
}

// loadOverrides normalizes the per-date JSONB windows into minute ranges
// once, at this boundary; no other call site re-decodes them.
func (r *PgRepository) loadOverrides(ctx context.Context, salonID, staffID uuid.UUID, sched *StaffSchedule) error {
	rows, err := r.pool.Query(ctx, `
		SELECT override_date, windows
		FROM schedule_overrides
		WHERE staff_id = $1 AND salon_id = $2
	`, staffID, salonID)
	if err != nil {
		return fmt.Errorf("load schedule overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var raw []byte
		if err := rows.Scan(&date, &raw); err != nil {
			return fmt.Errorf("scan schedule override: %w", err)
		}

		var decoded []overrideWindow
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return fmt.Errorf("decode override windows for %s: %w", date.Format(DateLayout), err)
			}
		}

		windows := make([]WorkingWindow, 0, len(decoded))
		for _, ow := range decoded {
			start, err := ParseClock(ow.Start)
			if err != nil {
				return err
			}
			end, err := ParseClock(ow.End)
			if err != nil {
				return err
			}
			windows = append(windows, WorkingWindow{StartMin: start, EndMin: end})
		}
		// empty list is meaningful: the staff member is off that day
		sched.Overrides[date.Format(DateLayout)] = windows
	}
	return rows.Err()
}

func (r *PgRepository) loadTimeOff(ctx context.Context, salonID, staffID uuid.UUID, sched *StaffSchedule) error {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at, ends_at
		FROM time_off
		WHERE staff_id = $1 AND salon_id = $2
	`, staffID, salonID)
	if err != nil {
		return fmt.Errorf("load time off: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var to TimeOff
		if err := rows.Scan(&to.Start, &to.End); err != nil {
			return fmt.Errorf("scan time off: %w", err)
		}
		sched.TimeOff = append(sched.TimeOff, to)
	}
	return rows.Err()
}

func (r *PgRepository) GetServiceVariant(ctx context.Context, salonID, serviceID uuid.UUID, variantName string) (*ServiceVariant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT service_id, variant_name, staff_id, duration_min, buffer_before_min, buffer_after_min
		FROM service_variants
		WHERE salon_id = $1 AND service_id = $2 AND variant_name = $3 AND active
	`, salonID, serviceID, variantName)
	return scanVariant(row)
}

func (r *PgRepository) ListVariantsForStaff(ctx context.Context, salonID, staffID uuid.UUID) ([]ServiceVariant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT service_id, variant_name, staff_id, duration_min, buffer_before_min, buffer_after_min
		FROM service_variants
		WHERE salon_id = $1 AND staff_id = $2 AND active
	`, salonID, staffID)
	if err != nil {
		return nil, fmt.Errorf("list staff variants: %w", err)
	}
	defer rows.Close()

	var variants []ServiceVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

func (r *PgRepository) ListBookedIntervals(ctx context.Context, salonID, staffID uuid.UUID, from, to time.Time) ([]BookedInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at, ends_at, status
		FROM appointments
		WHERE salon_id = $1
		  AND staff_id = $2
		  AND status <> 'cancelled'
		  AND starts_at < $3
		  AND ends_at > $4
	`, salonID, staffID, to, from)
	if err != nil {
		return nil, fmt.Errorf("list booked intervals: %w", err)
	}
	defer rows.Close()

	var booked []BookedInterval
	for rows.Next() {
		var b BookedInterval
		if err := rows.Scan(&b.Start, &b.End, &b.Status); err != nil {
			return nil, fmt.Errorf("scan booked interval: %w", err)
		}
		booked = append(booked, b)
	}
	return booked, rows.Err()
}

func scanVariant(row pgx.Row) (*ServiceVariant, error) {
	var v ServiceVariant
	err := row.Scan(
		&v.ServiceID,
		&v.VariantName,
		&v.StaffID,
		&v.DurationMin,
		&v.BufferBeforeMin,
		&v.BufferAfterMin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &v, nil
}
