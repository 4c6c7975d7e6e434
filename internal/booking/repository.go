package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains the salon-scoped appointment writes and the
// conflict read used by the coordinator.
type Repository interface {
	// HasConflicting reports whether any non-cancelled appointment for the
	// staff member overlaps [start, end).
	HasConflicting(ctx context.Context, salonID, staffID uuid.UUID, start, end time.Time) (bool, error)

	InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
}
