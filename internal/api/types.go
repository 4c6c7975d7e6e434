package api

import (
	"time"

	"github.com/google/uuid"
)

// Lock surface. TTLs cross the wire in milliseconds.

type AcquireRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Date       string `json:"date" validate:"required,bookdate"`
	StartTime  string `json:"startTime" validate:"required,booktime"`
	// DurationMin is accepted for client convenience but advisory only:
	// the lease covers the slot start key, and the appointment length
	// comes from the service variant at booking time.
	DurationMin int   `json:"duration" validate:"omitempty,min=1"`
	TTLMs       int64 `json:"ttl" validate:"omitempty,min=1000,max=3600000"`
}

type AcquireResponse struct {
	Locked       bool   `json:"locked"`
	LockID       string `json:"lockId,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RemainingTTL int64  `json:"remainingTTL,omitempty"`
}

type VerifyRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Date       string `json:"date" validate:"required,bookdate"`
	StartTime  string `json:"startTime" validate:"required,booktime"`
	LockID     string `json:"lockId" validate:"required"`
}

type VerifyResponse struct {
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	RemainingTTL int64  `json:"remainingTTL,omitempty"`
}

type ReleaseRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Date       string `json:"date" validate:"required,bookdate"`
	StartTime  string `json:"startTime" validate:"required,booktime"`
	LockID     string `json:"lockId" validate:"required"`
}

type ReleaseResponse struct {
	Released bool   `json:"released"`
	Reason   string `json:"reason,omitempty"`
}

type RefreshRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Date       string `json:"date" validate:"required,bookdate"`
	StartTime  string `json:"startTime" validate:"required,booktime"`
	LockID     string `json:"lockId" validate:"required"`
	TTLMs      int64  `json:"ttl" validate:"omitempty,min=1000,max=3600000"`
}

type RefreshResponse struct {
	Refreshed bool   `json:"refreshed"`
	Reason    string `json:"reason,omitempty"`
	ExpiresIn int64  `json:"expiresIn,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type ForceReleaseRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Date       string `json:"date" validate:"required,bookdate"`
	StartTime  string `json:"startTime" validate:"required,booktime"`
}

type ForceReleaseResponse struct {
	Released bool `json:"released"`
}

type ActiveLockEntry struct {
	ResourceID   string `json:"resourceId"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	RemainingTTL int64  `json:"remainingTTL"`
}

type ActiveLocksResponse struct {
	Locks []ActiveLockEntry `json:"locks"`
	Count int               `json:"count"`
}

// Slot surface.

type SlotEntry struct {
	ResourceID string `json:"resourceId"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	StartISO   string `json:"startISO"`
	EndISO     string `json:"endISO"`
}

type SlotsResponse struct {
	Date  string      `json:"date"`
	Slots []SlotEntry `json:"slots"`
}

type FullyBookedResponse struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Dates []string `json:"dates"`
}

// Booking surface.

type CreateAppointmentRequest struct {
	ResourceID  string `json:"resourceId" validate:"required,uuid"`
	ServiceID   string `json:"serviceId" validate:"required,uuid"`
	VariantName string `json:"variantName" validate:"required"`
	CustomerID  string `json:"customerId" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,bookdate"`
	StartTime   string `json:"startTime" validate:"required,booktime"`
	LockID      string `json:"lockId" validate:"required"`
}

type AppointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	StaffID    uuid.UUID `json:"staffId"`
	ServiceID  uuid.UUID `json:"serviceId"`
	CustomerID uuid.UUID `json:"customerId"`
	Variant    string    `json:"variantName"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Status     string    `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
