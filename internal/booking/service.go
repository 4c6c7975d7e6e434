package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/booklane/slot-reservation/internal/lock"
	"github.com/booklane/slot-reservation/internal/schedule"
)

var (
	// ErrLockInvalid means the presented lock token is expired or belongs
	// to another holder.
	ErrLockInvalid = errors.New("slot lock invalid")

	// ErrSlotTaken means the database already holds a non-cancelled
	// appointment overlapping the requested window.
	ErrSlotTaken = errors.New("slot already booked")
)

type CreateRequest struct {
	SalonID     uuid.UUID
	StaffID     uuid.UUID
	ServiceID   uuid.UUID
	CustomerID  uuid.UUID
	VariantName string
	Date        string // YYYY-MM-DD, salon-local
	StartTime   string // HH:mm, salon-local
	LockID      string
}

// Service is the reservation coordinator: it sequences lock verification,
// the database conflict re-check, appointment creation, and lock release.
type Service struct {
	repo     Repository
	locks    *lock.Service
	variants schedule.Repository
	planner  *schedule.Planner
	loc      *time.Location
}

func NewService(repo Repository, locks *lock.Service, variants schedule.Repository, planner *schedule.Planner, loc *time.Location) *Service {
	return &Service{
		repo:     repo,
		locks:    locks,
		variants: variants,
		planner:  planner,
		loc:      loc,
	}
}

// CreateAppointment persists a booking for a slot the caller holds a lock
// on. The database conflict re-check runs even after a valid lock: the
// lock store is a concurrency optimization, the database is the system of
// record for booking state. Every error path after verification attempts
// to release the lease before returning; a failed release is logged only,
// since the lease self-heals via TTL expiry.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	resourceID := req.StaffID.String()

	verified, err := s.locks.Verify(ctx, resourceID, req.Date, req.StartTime, req.LockID)
	if err != nil {
		s.releaseQuietly(ctx, req)
		return nil, fmt.Errorf("verify slot lock: %w", err)
	}
	if !verified.Valid {
		return nil, fmt.Errorf("%w: %s", ErrLockInvalid, verified.Reason)
	}

	appt, err := s.buildAppointment(ctx, req)
	if err != nil {
		s.releaseQuietly(ctx, req)
		return nil, err
	}

	conflict, err := s.repo.HasConflicting(ctx, req.SalonID, req.StaffID, appt.StartsAt, appt.EndsAt)
	if err != nil {
		s.releaseQuietly(ctx, req)
		return nil, fmt.Errorf("conflict re-check: %w", err)
	}
	if conflict {
		s.releaseQuietly(ctx, req)
		return nil, ErrSlotTaken
	}

	created, err := s.repo.InsertAppointment(ctx, appt)
	if err != nil {
		s.releaseQuietly(ctx, req)
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.releaseQuietly(ctx, req)
	s.planner.InvalidateMonth(req.StaffID, req.Date)

	return created, nil
}

func (s *Service) buildAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	variant, err := s.variants.GetServiceVariant(ctx, req.SalonID, req.ServiceID, req.VariantName)
	if err != nil {
		return nil, fmt.Errorf("load service variant: %w", err)
	}

	day, err := time.ParseInLocation(schedule.DateLayout, req.Date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", req.Date, err)
	}
	startMin, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, s.loc)
	return &Appointment{
		SalonID:    req.SalonID,
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Variant:    req.VariantName,
		StartsAt:   start,
		EndsAt:     start.Add(time.Duration(variant.DurationMin) * time.Minute),
		Status:     StatusConfirmed,
	}, nil
}

func (s *Service) releaseQuietly(ctx context.Context, req CreateRequest) {
	released, err := s.locks.Release(ctx, req.StaffID.String(), req.Date, req.StartTime, req.LockID)
	if err != nil {
		log.Printf("release slot lock failed staff=%s date=%s start=%s: %v", req.StaffID, req.Date, req.StartTime, err)
		return
	}
	if !released.Released {
		log.Printf("release slot lock no-op staff=%s date=%s start=%s reason=%s", req.StaffID, req.Date, req.StartTime, released.Reason)
	}
}
