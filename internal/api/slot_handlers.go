package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/booklane/slot-reservation/internal/schedule"
)

func listSlotsHandler(planner *schedule.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		salonID, ok := GetSalonID(r.Context())
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_salon_id", "salon scope missing")
			return
		}

		q := r.URL.Query()

		date := q.Get("date")
		if !datePattern.MatchString(date) {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		serviceID, err := uuid.Parse(q.Get("serviceId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceId must be a valid UUID")
			return
		}
		variantName := q.Get("variantName")
		if variantName == "" {
			writeError(w, http.StatusBadRequest, "missing_variant_name", "variantName is required")
			return
		}

		var slots []schedule.Slot
		if q.Get("any") == "true" {
			slots, err = planner.SlotsForAnyStaff(r.Context(), salonID, serviceID, variantName, date)
		} else {
			var staffID uuid.UUID
			staffID, err = uuid.Parse(q.Get("resourceId"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_resource_id", "resourceId must be a valid UUID, or pass any=true")
				return
			}
			slots, err = planner.SlotsForDay(r.Context(), salonID, staffID, serviceID, variantName, date)
		}
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		entries := make([]SlotEntry, 0, len(slots))
		for _, s := range slots {
			entries = append(entries, SlotEntry{
				ResourceID: s.StaffID.String(),
				StartTime:  s.Start.Format(schedule.ClockLayout),
				EndTime:    s.End.Format(schedule.ClockLayout),
				StartISO:   s.Start.Format(time.RFC3339),
				EndISO:     s.End.Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Date: date, Slots: entries})
	}
}

func fullyBookedHandler(planner *schedule.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		salonID, ok := GetSalonID(r.Context())
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_salon_id", "salon scope missing")
			return
		}

		q := r.URL.Query()

		staffID, err := uuid.Parse(q.Get("resourceId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resourceId must be a valid UUID")
			return
		}
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil || year < 2000 || year > 2100 {
			writeError(w, http.StatusBadRequest, "invalid_year", "year must be a four-digit year")
			return
		}
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "invalid_month", "month must be 1-12")
			return
		}

		dates, err := planner.FullyBookedDays(r.Context(), salonID, staffID, year, time.Month(month))
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		if dates == nil {
			dates = []string{}
		}

		writeJSON(w, http.StatusOK, FullyBookedResponse{Year: year, Month: month, Dates: dates})
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, schedule.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
