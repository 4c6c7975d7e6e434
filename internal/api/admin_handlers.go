package api

import (
	"net/http"
	"strconv"

	"github.com/booklane/slot-reservation/internal/lock"
)

func listActiveLocksHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID := r.URL.Query().Get("resourceId")

		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 1000 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 1000")
				return
			}
			limit = n
		}

		active, err := locks.ListActive(r.Context(), resourceID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		entries := make([]ActiveLockEntry, 0, len(active))
		for _, l := range active {
			entries = append(entries, ActiveLockEntry{
				ResourceID:   l.ResourceID,
				Date:         l.Date,
				StartTime:    l.StartTime,
				RemainingTTL: l.RemainingTTL.Milliseconds(),
			})
		}

		writeJSON(w, http.StatusOK, ActiveLocksResponse{Locks: entries, Count: len(entries)})
	}
}

func forceReleaseLockHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForceReleaseRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		released, err := locks.ForceRelease(r.Context(), req.ResourceID, req.Date, req.StartTime)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ForceReleaseResponse{Released: released})
	}
}
