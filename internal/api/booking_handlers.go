package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/booklane/slot-reservation/internal/booking"
	"github.com/booklane/slot-reservation/internal/schedule"
)

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		salonID, ok := GetSalonID(r.Context())
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_salon_id", "salon scope missing")
			return
		}

		var req CreateAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		// validated as uuid already
		staffID := uuid.MustParse(req.ResourceID)
		serviceID := uuid.MustParse(req.ServiceID)
		customerID := uuid.MustParse(req.CustomerID)

		appt, err := svc.CreateAppointment(r.Context(), booking.CreateRequest{
			SalonID:     salonID,
			StaffID:     staffID,
			ServiceID:   serviceID,
			CustomerID:  customerID,
			VariantName: req.VariantName,
			Date:        req.Date,
			StartTime:   req.StartTime,
			LockID:      req.LockID,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{
			ID:         appt.ID,
			StaffID:    appt.StaffID,
			ServiceID:  appt.ServiceID,
			CustomerID: appt.CustomerID,
			Variant:    appt.Variant,
			StartsAt:   appt.StartsAt,
			EndsAt:     appt.EndsAt,
			Status:     string(appt.Status),
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrLockInvalid):
		writeError(w, http.StatusConflict, "lock_invalid", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, schedule.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, schedule.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
