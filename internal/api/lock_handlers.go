package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/booklane/slot-reservation/internal/lock"
)

// decodeAndValidate parses the JSON body into req and runs the validator,
// writing a 400 itself when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func acquireLockHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AcquireRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := locks.Acquire(r.Context(), req.ResourceID, req.Date, req.StartTime, time.Duration(req.TTLMs)*time.Millisecond)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		if !res.Locked {
			writeJSON(w, http.StatusConflict, AcquireResponse{
				Locked:       false,
				Reason:       res.Reason,
				RemainingTTL: res.RemainingTTL.Milliseconds(),
			})
			return
		}

		writeJSON(w, http.StatusOK, AcquireResponse{
			Locked:    true,
			LockID:    res.LockID,
			ExpiresIn: res.ExpiresIn.Milliseconds(),
			ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

func verifyLockHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := locks.Verify(r.Context(), req.ResourceID, req.Date, req.StartTime, req.LockID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		if !res.Valid {
			writeJSON(w, http.StatusConflict, VerifyResponse{Valid: false, Reason: res.Reason})
			return
		}

		writeJSON(w, http.StatusOK, VerifyResponse{
			Valid:        true,
			RemainingTTL: res.RemainingTTL.Milliseconds(),
		})
	}
}

func releaseLockHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReleaseRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := locks.Release(r.Context(), req.ResourceID, req.Date, req.StartTime, req.LockID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		if !res.Released {
			writeJSON(w, http.StatusNotFound, ReleaseResponse{Released: false, Reason: res.Reason})
			return
		}

		writeJSON(w, http.StatusOK, ReleaseResponse{Released: true})
	}
}

func refreshLockHandler(locks *lock.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		res, err := locks.Refresh(r.Context(), req.ResourceID, req.Date, req.StartTime, req.LockID, time.Duration(req.TTLMs)*time.Millisecond)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lock_store_error", err.Error())
			return
		}

		if !res.Refreshed {
			writeJSON(w, http.StatusNotFound, RefreshResponse{Refreshed: false, Reason: res.Reason})
			return
		}

		writeJSON(w, http.StatusOK, RefreshResponse{
			Refreshed: true,
			ExpiresIn: res.ExpiresIn.Milliseconds(),
			ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}
