package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/booklane/slot-reservation/internal/booking"
	"github.com/booklane/slot-reservation/internal/lock"
	"github.com/booklane/slot-reservation/internal/schedule"
)

const adminKey = "test-admin-key"

var (
	salonID    = uuid.MustParse("a1111111-1111-1111-1111-111111111111")
	staffID    = uuid.MustParse("b2222222-2222-2222-2222-222222222222")
	serviceID  = uuid.MustParse("c3333333-3333-3333-3333-333333333333")
	customerID = uuid.MustParse("d4444444-4444-4444-4444-444444444444")
)

type stubSchedRepo struct{}

func (stubSchedRepo) GetStaffSchedule(context.Context, uuid.UUID, uuid.UUID) (*schedule.StaffSchedule, error) {
	return &schedule.StaffSchedule{
		StaffID: staffID,
		Active:  true,
		Weekly: map[time.Weekday][]schedule.WorkingWindow{
			time.Monday: {{StartMin: 9 * 60, EndMin: 12 * 60}},
		},
		Overrides: map[string][]schedule.WorkingWindow{},
	}, nil
}

func (stubSchedRepo) GetServiceVariant(context.Context, uuid.UUID, uuid.UUID, string) (*schedule.ServiceVariant, error) {
	return &schedule.ServiceVariant{
		ServiceID:   serviceID,
		VariantName: "short",
		StaffID:     staffID,
		DurationMin: 60,
	}, nil
}

func (stubSchedRepo) ListVariantsForStaff(context.Context, uuid.UUID, uuid.UUID) ([]schedule.ServiceVariant, error) {
	return nil, nil
}

func (stubSchedRepo) ListBookedIntervals(context.Context, uuid.UUID, uuid.UUID, time.Time, time.Time) ([]schedule.BookedInterval, error) {
	return nil, nil
}

type stubBookingRepo struct{}

func (stubBookingRepo) HasConflicting(context.Context, uuid.UUID, uuid.UUID, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (stubBookingRepo) InsertAppointment(_ context.Context, appt *booking.Appointment) (*booking.Appointment, error) {
	out := *appt
	out.ID = uuid.New()
	return &out, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T) (*httptest.Server, *lock.Service) {
	return newTestServerWithDB(t, stubPinger{})
}

func newTestServerWithDB(t *testing.T, db DBPinger) (*httptest.Server, *lock.Service) {
	t.Helper()

	registry := prometheus.NewRegistry()
	locks := lock.NewService(lock.NewMemoryStore(), "slotlock", 2*time.Minute, lock.NewMetrics(registry))
	planner := schedule.NewPlanner(stubSchedRepo{}, time.UTC, 15, schedule.NewMonthCache(time.Minute, 4))
	bookings := booking.NewService(stubBookingRepo{}, locks, stubSchedRepo{}, planner, time.UTC)

	router := NewRouter(RouterConfig{
		Locks:    locks,
		Planner:  planner,
		Bookings: bookings,
		DB:       db,
		Registry: registry,
		AdminKey: adminKey,
		Env:      "test",
		Version:  "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, locks
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func getWithHeaders(t *testing.T, url string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestLockLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	acquireBody := map[string]any{
		"resourceId": staffID.String(),
		"date":       "2025-03-10",
		"startTime":  "14:00",
		"duration":   60,
	}

	resp, raw := postJSON(t, srv.URL+"/locks/acquire", acquireBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var acquired AcquireResponse
	require.NoError(t, json.Unmarshal(raw, &acquired))
	require.True(t, acquired.Locked)
	require.NotEmpty(t, acquired.LockID)
	require.Equal(t, int64(120000), acquired.ExpiresIn)

	// contended acquire
	resp, raw = postJSON(t, srv.URL+"/locks/acquire", acquireBody, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var conflicted AcquireResponse
	require.NoError(t, json.Unmarshal(raw, &conflicted))
	require.False(t, conflicted.Locked)
	require.Equal(t, "slot_locked", conflicted.Reason)
	require.Greater(t, conflicted.RemainingTTL, int64(0))

	// verify with the right and wrong token
	verifyBody := map[string]any{
		"resourceId": staffID.String(),
		"date":       "2025-03-10",
		"startTime":  "14:00",
		"lockId":     acquired.LockID,
	}
	resp, raw = postJSON(t, srv.URL+"/locks/verify", verifyBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified VerifyResponse
	require.NoError(t, json.Unmarshal(raw, &verified))
	require.True(t, verified.Valid)

	verifyBody["lockId"] = uuid.NewString()
	resp, raw = postJSON(t, srv.URL+"/locks/verify", verifyBody, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &verified))
	require.Equal(t, "lock_mismatch", verified.Reason)

	// refresh, release, double release
	refreshBody := map[string]any{
		"resourceId": staffID.String(),
		"date":       "2025-03-10",
		"startTime":  "14:00",
		"lockId":     acquired.LockID,
		"ttl":        300000,
	}
	resp, raw = postJSON(t, srv.URL+"/locks/refresh", refreshBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed RefreshResponse
	require.NoError(t, json.Unmarshal(raw, &refreshed))
	require.True(t, refreshed.Refreshed)
	require.Equal(t, int64(300000), refreshed.ExpiresIn)

	releaseBody := map[string]any{
		"resourceId": staffID.String(),
		"date":       "2025-03-10",
		"startTime":  "14:00",
		"lockId":     acquired.LockID,
	}
	resp, raw = postJSON(t, srv.URL+"/locks/release", releaseBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var released ReleaseResponse
	require.NoError(t, json.Unmarshal(raw, &released))
	require.True(t, released.Released)

	resp, raw = postJSON(t, srv.URL+"/locks/release", releaseBody, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &released))
	require.False(t, released.Released)
	require.Equal(t, "lock_not_found_or_mismatch", released.Reason)
}

func TestAcquireValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing resourceId", map[string]any{"date": "2025-03-10", "startTime": "14:00"}},
		{"malformed date", map[string]any{"resourceId": "r", "date": "10-03-2025", "startTime": "14:00"}},
		{"impossible date", map[string]any{"resourceId": "r", "date": "2025-02-30", "startTime": "14:00"}},
		{"malformed time", map[string]any{"resourceId": "r", "date": "2025-03-10", "startTime": "24:00"}},
		{"ttl too small", map[string]any{"resourceId": "r", "date": "2025-03-10", "startTime": "14:00", "ttl": 10}},
		{"negative duration", map[string]any{"resourceId": "r", "date": "2025-03-10", "startTime": "14:00", "duration": -15}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := postJSON(t, srv.URL+"/locks/acquire", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	srv, locks := newTestServer(t)

	_, err := locks.Acquire(context.Background(), staffID.String(), "2025-03-10", "14:00", 0)
	require.NoError(t, err)

	resp, _ := getWithHeaders(t, srv.URL+"/admin/locks", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = getWithHeaders(t, srv.URL+"/admin/locks", map[string]string{"X-Admin-Key": "wrong"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := getWithHeaders(t, srv.URL+"/admin/locks", map[string]string{"X-Admin-Key": adminKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var active ActiveLocksResponse
	require.NoError(t, json.Unmarshal(raw, &active))
	require.Equal(t, 1, active.Count)
	require.Equal(t, staffID.String(), active.Locks[0].ResourceID)

	resp, _ = getWithHeaders(t, srv.URL+"/admin/metrics", map[string]string{"X-Admin-Key": adminKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForceReleaseFreesStuckLock(t *testing.T) {
	srv, locks := newTestServer(t)
	ctx := context.Background()

	first, err := locks.Acquire(ctx, staffID.String(), "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, first.Locked)

	body := map[string]any{
		"resourceId": staffID.String(),
		"date":       "2025-03-10",
		"startTime":  "14:00",
	}
	resp, raw := postJSON(t, srv.URL+"/admin/locks/force-release", body, map[string]string{"X-Admin-Key": adminKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var released ForceReleaseResponse
	require.NoError(t, json.Unmarshal(raw, &released))
	require.True(t, released.Released)

	again, err := locks.Acquire(ctx, staffID.String(), "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, again.Locked)
}

func TestSlotsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	url := srv.URL + "/slots?resourceId=" + staffID.String() +
		"&serviceId=" + serviceID.String() + "&variantName=short&date=2025-03-10"

	// tenant scope is mandatory
	resp, _ := getWithHeaders(t, url, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := getWithHeaders(t, url, map[string]string{"X-Salon-ID": salonID.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var slots SlotsResponse
	require.NoError(t, json.Unmarshal(raw, &slots))
	// Monday 09:00-12:00, 60-minute service, 15-minute grid
	require.Len(t, slots.Slots, 9)
	require.Equal(t, "09:00", slots.Slots[0].StartTime)
	require.Equal(t, "10:00", slots.Slots[0].EndTime)
	require.Equal(t, "11:00", slots.Slots[len(slots.Slots)-1].StartTime)
	require.Equal(t, staffID.String(), slots.Slots[0].ResourceID)
	require.NotEmpty(t, slots.Slots[0].StartISO)
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	srv, locks := newTestServer(t)
	ctx := context.Background()

	acquired, err := locks.Acquire(ctx, staffID.String(), "2025-03-10", "10:00", 0)
	require.NoError(t, err)

	body := map[string]any{
		"resourceId":  staffID.String(),
		"serviceId":   serviceID.String(),
		"variantName": "short",
		"customerId":  customerID.String(),
		"date":        "2025-03-10",
		"startTime":   "10:00",
		"lockId":      acquired.LockID,
	}
	headers := map[string]string{"X-Salon-ID": salonID.String()}

	resp, raw := postJSON(t, srv.URL+"/appointments", body, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(raw, &appt))
	require.Equal(t, "confirmed", appt.Status)
	require.Equal(t, staffID, appt.StaffID)

	// the lock was consumed; a replay is rejected
	resp, raw = postJSON(t, srv.URL+"/appointments", body, headers)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &errResp))
	require.Equal(t, "lock_invalid", errResp.Error)
}

func TestHealthLive(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := getWithHeaders(t, srv.URL+"/health/live", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live LivenessResponse
	require.NoError(t, json.Unmarshal(raw, &live))
	require.Equal(t, "ok", live.Status)
}

func TestHealthReady(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := getWithHeaders(t, srv.URL+"/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(raw, &ready))
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Dependencies["postgres"])
	require.Equal(t, "ok", ready.Dependencies["lock_store"])
}

func TestHealthReadyReportsDatabaseDown(t *testing.T) {
	srv, _ := newTestServerWithDB(t, stubPinger{err: errors.New("connection refused")})

	resp, raw := getWithHeaders(t, srv.URL+"/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(raw, &ready))
	require.Equal(t, "error", ready.Status)
	require.Equal(t, "down", ready.Dependencies["postgres"])
	require.Equal(t, "ok", ready.Dependencies["lock_store"])
}
