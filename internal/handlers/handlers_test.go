package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/handlers"
	"github.com/ymcoiffure/salon-bookings/internal/ratelimit"
	"github.com/ymcoiffure/salon-bookings/internal/repository/memstore"
	"github.com/ymcoiffure/salon-bookings/internal/service"
	"github.com/ymcoiffure/salon-bookings/internal/testutil"
	"github.com/ymcoiffure/salon-bookings/pkg/config"
	"github.com/ymcoiffure/salon-bookings/pkg/middleware"
)

const adminKey = "test-admin-key"

type testEnv struct {
	server *httptest.Server
	store  *memstore.Store
	mail   *testutil.Mailer
	cal    *testutil.Calendar
}

func setupTestServer(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	return setupTestServerWith(t, handlers.RouterConfig{Limiter: limiter})
}

func setupTestServerWith(t *testing.T, rc handlers.RouterConfig) *testEnv {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, paris)

	env := &testEnv{
		store: memstore.New(),
		mail:  &testutil.Mailer{},
		cal:   testutil.NewCalendar(),
	}
	deps := service.Deps{
		Appointments:  env.store.Appointments(),
		Verifications: env.store.Verifications(),
		Settings:      env.store.Settings(),
		Blacklist:     env.store.Blacklist(),
		Mailer:        env.mail,
		Calendar:      env.cal,
		Events:        &testutil.Publisher{},
		Clock:         domain.NewSalonClock(paris, func() time.Time { return now }),
	}
	cfg := &config.Config{
		Server: config.ServerConfig{PublicBaseURL: "http://salon.test"},
		Booking: config.BookingConfig{
			AppointmentDuration: 30 * time.Minute,
			VerificationTTL:     15 * time.Minute,
			CancelTokenSecret:   "test-secret",
			CancelTokenTTL:      24 * time.Hour,
		},
	}

	h := handlers.New(service.NewBookingService(deps, cfg), service.NewAdminService(deps))
	rc.AllowedOrigins = []string{"*"}
	rc.AdminKey = adminKey
	env.server = httptest.NewServer(h.Routes(rc))
	t.Cleanup(env.server.Close)
	return env
}

func bookingBody(email, date, hhmm string) map[string]string {
	return map[string]string{
		"email":      email,
		"clientName": "Eve Martin",
		"date":       date,
		"time":       hhmm,
		"phone":      "0612345678",
	}
}

func do(t *testing.T, method, url string, data interface{}, headers map[string]string, expectedStatus int) map[string]interface{} {
	t.Helper()

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equalf(t, expectedStatus, resp.StatusCode, "%s %s: %s", method, url, raw)

	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	if len(raw) > 0 && raw[0] == '[' {
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		out["items"] = list
	}
	return out
}

func postJSON(t *testing.T, url string, data interface{}, expectedStatus int) map[string]interface{} {
	t.Helper()
	return do(t, http.MethodPost, url, data, nil, expectedStatus)
}

func get(t *testing.T, url string, expectedStatus int) map[string]interface{} {
	t.Helper()
	return do(t, http.MethodGet, url, nil, nil, expectedStatus)
}

func admin(t *testing.T, method, url string, data interface{}, expectedStatus int) map[string]interface{} {
	t.Helper()
	return do(t, method, url, data, map[string]string{"x-admin-key": adminKey}, expectedStatus)
}

func (env *testEnv) book(t *testing.T, email, date, hhmm string) {
	t.Helper()
	postJSON(t, env.server.URL+"/api/verify-request", bookingBody(email, date, hhmm), http.StatusOK)
	postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{
		"email": email,
		"code":  env.mail.LastCode(email),
	}, http.StatusOK)
}

func TestBooking_RequestConfirmAndBusySlots(t *testing.T) {
	env := setupTestServer(t, nil)

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusOK)
	assert.Equal(t, true, res["success"])
	code := env.mail.LastCode("eve@example.com")
	require.NotEmpty(t, code)

	res = postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": code}, http.StatusOK)
	assert.Equal(t, true, res["success"])

	res = get(t, env.server.URL+"/api/busy-slots?date=2025-06-10", http.StatusOK)
	assert.Equal(t, []interface{}{"14:00"}, res["busySlots"])

	res = get(t, env.server.URL+"/api/busy-slots?date=2025-06-11", http.StatusOK)
	assert.Equal(t, []interface{}{}, res["busySlots"])
}

func TestBooking_RequestValidation(t *testing.T) {
	env := setupTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing phone", map[string]string{"email": "eve@example.com", "clientName": "Eve", "date": "2025-06-10", "time": "14:00"}},
		{"empty object", map[string]string{}},
		{"bad time", bookingBody("eve@example.com", "2025-06-10", "2pm")},
		{"past slot", bookingBody("eve@example.com", "2025-06-08", "14:00")},
		{"not an object", []string{"nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := postJSON(t, env.server.URL+"/api/verify-request", tt.body, http.StatusBadRequest)
			assert.Equal(t, false, res["success"])
			assert.Equal(t, "INVALID_INPUT", res["code"])
		})
	}
	assert.Empty(t, env.mail.Codes)
}

func TestBooking_DuplicateActiveBooking(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-20", "10:00"), http.StatusConflict)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, true, res["isDuplicate"])
	assert.Equal(t, "2025-06-10", res["date"])
	assert.Equal(t, "14:00", res["time"])
	assert.Contains(t, res["message"], "2025-06-10")
}

func TestBooking_SlotTaken(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("bob@example.com", "2025-06-10", "14:00"), http.StatusConflict)
	assert.Equal(t, "SLOT_TAKEN", res["code"])
}

func TestBooking_Blacklisted(t *testing.T) {
	env := setupTestServer(t, nil)
	admin(t, http.MethodPost, env.server.URL+"/api/admin/blacklist", map[string]string{"email": "eve@example.com", "reason": "fraud"}, http.StatusOK)

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusForbidden)
	assert.Equal(t, "FORBIDDEN", res["code"])
	assert.NotContains(t, res["error"], "fraud")
}

func TestBooking_WrongCode(t *testing.T) {
	env := setupTestServer(t, nil)
	postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusOK)

	res := postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": "0000"}, http.StatusBadRequest)
	assert.Equal(t, "INVALID_CODE", res["code"])
	assert.Empty(t, env.store.AllAppointments())

	postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{"email": "nobody@example.com", "code": "1234"}, http.StatusBadRequest)
}

func TestBooking_UpstreamErrorsDoNotLeak(t *testing.T) {
	env := setupTestServer(t, nil)
	env.mail.CodeErr = errors.New("api-key xkeysib-123 rejected")

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusInternalServerError)
	assert.Equal(t, "DELIVERY_FAILED", res["code"])
	assert.NotContains(t, res["error"], "xkeysib")

	env.mail.CodeErr = nil
	postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusOK)
	env.cal.CreateErr = errors.New("googleapi: invalid_grant for service-account@project")

	res = postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{
		"email": "eve@example.com",
		"code":  env.mail.LastCode("eve@example.com"),
	}, http.StatusInternalServerError)
	assert.Equal(t, "CALENDAR_UNAVAILABLE", res["code"])
	assert.NotContains(t, res["error"], "service-account")
}

func TestStatus_DefaultsOpenAndToggles(t *testing.T) {
	env := setupTestServer(t, nil)

	res := get(t, env.server.URL+"/api/status", http.StatusOK)
	assert.Equal(t, true, res["is_open"])

	res = admin(t, http.MethodPost, env.server.URL+"/api/admin/toggle-status", map[string]bool{"is_open": false}, http.StatusOK)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, false, res["is_open"])

	res = get(t, env.server.URL+"/api/status", http.StatusOK)
	assert.Equal(t, false, res["is_open"])

	admin(t, http.MethodPost, env.server.URL+"/api/admin/toggle-status", map[string]string{}, http.StatusBadRequest)
}

func TestBusySlots_RequiresDate(t *testing.T) {
	env := setupTestServer(t, nil)
	get(t, env.server.URL+"/api/busy-slots", http.StatusBadRequest)
	get(t, env.server.URL+"/api/busy-slots?date=june", http.StatusBadRequest)
}

func TestAdmin_RequiresKeyAndDoesNotMutate(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")
	id := env.store.AllAppointments()[0].ID
	base := env.server.URL + "/api/admin"

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"list", http.MethodGet, "/appointments", nil},
		{"toggle", http.MethodPost, "/toggle-status", map[string]bool{"is_open": false}},
		{"delete", http.MethodDelete, "/appointment/" + id, nil},
		{"blacklist list", http.MethodGet, "/blacklist", nil},
		{"blacklist add", http.MethodPost, "/blacklist", map[string]string{"email": "x@example.com"}},
		{"blacklist remove", http.MethodDelete, "/blacklist/x@example.com", nil},
		{"unknown", http.MethodGet, "/whatever", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, tt.method, base+tt.path, tt.body, nil, http.StatusUnauthorized)
			do(t, tt.method, base+tt.path, tt.body, map[string]string{"x-admin-key": "wrong"}, http.StatusUnauthorized)
		})
	}

	assert.Len(t, env.store.AllAppointments(), 1)
	res := get(t, env.server.URL+"/api/status", http.StatusOK)
	assert.Equal(t, true, res["is_open"])
	assert.Empty(t, admin(t, http.MethodGet, base+"/blacklist", nil, http.StatusOK)["items"])
}

func TestAdmin_ListAndDeleteAppointments(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")
	env.book(t, "bob@example.com", "2025-06-11", "09:00")

	res := admin(t, http.MethodGet, env.server.URL+"/api/admin/appointments", nil, http.StatusOK)
	items := res["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "2025-06-11", first["date"])
	id := first["id"].(string)
	require.NotEmpty(t, id)

	admin(t, http.MethodDelete, env.server.URL+"/api/admin/appointment/"+id, nil, http.StatusOK)
	admin(t, http.MethodDelete, env.server.URL+"/api/admin/appointment/"+id, nil, http.StatusNotFound)

	remaining := env.store.AllAppointments()
	require.Len(t, remaining, 1)
	assert.Equal(t, "eve@example.com", remaining[0].Email)
	assert.Len(t, env.cal.Deleted, 1)
}

func TestAdmin_DeleteSurvivesCalendarFailure(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")
	env.cal.DeleteErr = errors.New("googleapi: 500")
	id := env.store.AllAppointments()[0].ID

	admin(t, http.MethodDelete, env.server.URL+"/api/admin/appointment/"+id, nil, http.StatusOK)
	assert.Empty(t, env.store.AllAppointments())
}

func TestAdmin_BlacklistRoutes(t *testing.T) {
	env := setupTestServer(t, nil)
	base := env.server.URL + "/api/admin/blacklist"

	admin(t, http.MethodPost, base, map[string]string{"email": "Spam@Example.com", "reason": "bots"}, http.StatusOK)
	admin(t, http.MethodPost, base, map[string]string{"email": "not-an-email"}, http.StatusBadRequest)

	items := admin(t, http.MethodGet, base, nil, http.StatusOK)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "spam@example.com", items[0].(map[string]interface{})["email"])

	admin(t, http.MethodDelete, base+"/"+url.PathEscape("spam@example.com"), nil, http.StatusOK)
	assert.Empty(t, admin(t, http.MethodGet, base, nil, http.StatusOK)["items"])
}

func TestCancelLink(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")
	require.Len(t, env.mail.CancelURLs, 1)

	link, err := url.Parse(env.mail.CancelURLs[0])
	require.NoError(t, err)
	cancelURL := env.server.URL + "/api/appointments/cancel?token=" + url.QueryEscape(link.Query().Get("token"))

	// mail scanners follow the link with GET, possibly more than once
	for i := 0; i < 2; i++ {
		res := get(t, cancelURL, http.StatusOK)
		assert.Equal(t, true, res["confirmRequired"])
		assert.Equal(t, "2025-06-10", res["date"])
		assert.Equal(t, "14:00", res["time"])
	}
	assert.Len(t, env.store.AllAppointments(), 1)
	assert.Empty(t, env.cal.Deleted)

	res := postJSON(t, cancelURL, nil, http.StatusOK)
	assert.Equal(t, true, res["success"])
	assert.Empty(t, env.store.AllAppointments())
	assert.Len(t, env.cal.Deleted, 1)

	do(t, http.MethodDelete, cancelURL, nil, nil, http.StatusNotFound)
	get(t, cancelURL, http.StatusNotFound)
	get(t, env.server.URL+"/api/appointments/cancel?token=forged", http.StatusBadRequest)
	get(t, env.server.URL+"/api/appointments/cancel", http.StatusBadRequest)
}

func TestCancelLink_DeleteMethod(t *testing.T) {
	env := setupTestServer(t, nil)
	env.book(t, "eve@example.com", "2025-06-10", "14:00")
	link, err := url.Parse(env.mail.CancelURLs[0])
	require.NoError(t, err)

	do(t, http.MethodDelete, env.server.URL+"/api/appointments/cancel?"+link.RawQuery, nil, nil, http.StatusOK)
	assert.Empty(t, env.store.AllAppointments())
}

func TestRateLimit_VerificationEndpoints(t *testing.T) {
	env := setupTestServer(t, ratelimit.NewMemoryLimiter(1, time.Minute))

	postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusOK)
	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusTooManyRequests)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", res["code"])

	get(t, env.server.URL+"/api/status", http.StatusOK)
}

func TestHealthz(t *testing.T) {
	env := setupTestServer(t, nil)
	res := get(t, env.server.URL+"/healthz", http.StatusOK)
	assert.Equal(t, "ok", res["status"])
}

func TestRateLimit_ForwardedForIsNotTrustedByDefault(t *testing.T) {
	env := setupTestServer(t, ratelimit.NewMemoryLimiter(5, time.Minute))
	postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"), http.StatusOK)
	code := env.mail.LastCode("eve@example.com")
	wrong := "0000"
	if code == wrong {
		wrong = "0001"
	}

	limited := 0
	for i := 0; i < 20; i++ {
		headers := map[string]string{"X-Forwarded-For": "10.0.0." + strconv.Itoa(i+1)}
		want := http.StatusBadRequest
		if i >= 5 {
			want = http.StatusTooManyRequests
		}
		res := do(t, http.MethodPost, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": wrong}, headers, want)
		if res["code"] == "RATE_LIMIT_EXCEEDED" {
			limited++
		}
	}
	assert.Equal(t, 15, limited)

	postJSON(t, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": code}, http.StatusTooManyRequests)
	assert.Empty(t, env.store.AllAppointments())
}

func TestConfirm_AttemptsCappedPerEmailBehindProxy(t *testing.T) {
	env := setupTestServerWith(t, handlers.RouterConfig{
		Limiter:    ratelimit.NewMemoryLimiter(1, time.Minute),
		TrustProxy: true,
	})

	// the proxy header is honoured: two clients, two budgets
	do(t, http.MethodPost, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "14:00"),
		map[string]string{"X-Real-IP": "198.51.100.1"}, http.StatusOK)
	do(t, http.MethodPost, env.server.URL+"/api/verify-request", bookingBody("bob@example.com", "2025-06-10", "15:00"),
		map[string]string{"X-Real-IP": "198.51.100.2"}, http.StatusOK)

	code := env.mail.LastCode("eve@example.com")
	wrong := "0000"
	if code == wrong {
		wrong = "0001"
	}
	before, ok := env.store.Pending("eve@example.com")
	require.True(t, ok)

	// each guess arrives from a fresh address, so only the per-email cap applies
	for i := 0; i < 5; i++ {
		do(t, http.MethodPost, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": wrong},
			map[string]string{"X-Real-IP": "203.0.113." + strconv.Itoa(i+1)}, http.StatusBadRequest)
	}
	res := do(t, http.MethodPost, env.server.URL+"/api/verify-confirm", map[string]string{"email": "eve@example.com", "code": code},
		map[string]string{"X-Real-IP": "203.0.113.99"}, http.StatusTooManyRequests)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", res["code"])

	after, ok := env.store.Pending("eve@example.com")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Empty(t, env.store.AllAppointments())
}

func TestBooking_ValidationMessagesAreFrench(t *testing.T) {
	env := setupTestServer(t, nil)

	res := postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-10", "2pm"), http.StatusBadRequest)
	assert.Equal(t, "L'heure doit être au format HH:MM", res["error"])

	res = postJSON(t, env.server.URL+"/api/verify-request", bookingBody("eve@example.com", "2025-06-08", "14:00"), http.StatusBadRequest)
	assert.Equal(t, "Ce créneau est déjà passé", res["error"])

	res = get(t, env.server.URL+"/api/busy-slots", http.StatusBadRequest)
	assert.Equal(t, "La date est obligatoire", res["error"])
}
