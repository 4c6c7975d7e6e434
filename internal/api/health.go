package api

import (
	"context"
	"net/http"
	"time"

	"github.com/booklane/slot-reservation/internal/lock"
)

// DBPinger is the slice of pgxpool.Pool the readiness probe needs.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      DBPinger
	locks   *lock.Service
	env     string
	version string
}

func NewHealthHandler(db DBPinger, locks *lock.Service, env, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		locks:   locks,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness pings Postgres and the lock store. A down lock store degrades
// the response: slot queries still work, but no lease can be taken.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	pgCtx, pgCancel := context.WithTimeout(ctx, 1*time.Second)
	err := h.db.Ping(pgCtx)
	pgCancel()
	if err != nil {
		deps["postgres"] = "down"
		status = "error"
	} else {
		deps["postgres"] = "ok"
	}

	lockCtx, lockCancel := context.WithTimeout(ctx, 1*time.Second)
	err = h.locks.HealthCheck(lockCtx)
	lockCancel()
	if err != nil {
		deps["lock_store"] = "down"
		if status == "ok" {
			status = "degraded"
		} else {
			status = "error"
		}
	} else {
		deps["lock_store"] = "ok"
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
