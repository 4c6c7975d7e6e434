package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStaffNotFound   = errors.New("staff member not found")
	ErrServiceNotFound = errors.New("service variant not found")
)

// Repository contains the salon-scoped reads the planner needs. Every
// query is filtered by salonID.
type Repository interface {
	GetStaffSchedule(ctx context.Context, salonID, staffID uuid.UUID) (*StaffSchedule, error)
	GetServiceVariant(ctx context.Context, salonID, serviceID uuid.UUID, variantName string) (*ServiceVariant, error)
	ListVariantsForStaff(ctx context.Context, salonID, staffID uuid.UUID) ([]ServiceVariant, error)

	// ListBookedIntervals returns non-cancelled appointments for the staff
	// member overlapping [from, to).
	ListBookedIntervals(ctx context.Context, salonID, staffID uuid.UUID, from, to time.Time) ([]BookedInterval, error)
}
