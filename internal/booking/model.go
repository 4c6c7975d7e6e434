package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Appointment struct {
	ID         uuid.UUID
	SalonID    uuid.UUID
	StaffID    uuid.UUID
	ServiceID  uuid.UUID
	CustomerID uuid.UUID
	Variant    string
	StartsAt   time.Time
	EndsAt     time.Time
	Status     Status
	CreatedAt  time.Time
}
