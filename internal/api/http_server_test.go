package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fonteyn/internal/config"
	"fonteyn/internal/database"
	"fonteyn/internal/models"
	"fonteyn/internal/repository"
	"fonteyn/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:              0,
			ReadHeaderTimeout: 5,
			WriteTimeout:      15,
			RequestTimeout:    5,
		},
		Session: config.SessionConfig{
			TTLHours:   1,
			CookieName: "fonteyn_session",
		},
		Auth: config.AuthConfig{
			BcryptCost: bcrypt.MinCost,
			LoginLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
		},
		Admins: []string{"manager"},
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog := []models.Accommodation{
		{ID: 1, Name: "Splash Suite", Address: "Aqua Lane 102", Price: 60, Capacity: 3},
		{ID: 2, Name: "Wave Villa", Address: "Golflaan 302", Price: 75, Capacity: 5},
	}
	require.NoError(t, db.SyncAccommodations(context.Background(), catalog))

	cfg := testConfig()
	sessions := repository.NewMemorySessionRepository()
	auth := service.NewAuthService(db, sessions, nil, time.Hour, bcrypt.MinCost, &logger)
	bookings := service.NewBookingService(db, nil, nil, &logger)
	catalogSvc := service.NewCatalogService(db, &logger)

	srv := NewHTTPServer(cfg, auth, bookings, catalogSvc, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, db
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerAndLogin(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/v1/register", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/v1/login", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func authorizedRequest(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestRegisterLoginBookLatestFlow(t *testing.T) {
	ts, db := setupTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	// Catalog is visible once authenticated
	resp := authorizedRequest(t, ts, http.MethodGet, "/api/v1/accommodations", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	catalog := decodeBody(t, resp)
	accommodations, ok := catalog["accommodations"].([]any)
	require.True(t, ok)
	assert.Len(t, accommodations, 2)

	// Book Wave Villa for 3 nights
	resp = authorizedRequest(t, ts, http.MethodPost, "/api/v1/book", token, map[string]any{
		"room_name":  "Wave Villa",
		"price":      75.0,
		"start_date": "2024-01-01",
		"end_date":   "2024-01-04",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	booking, ok := created["booking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 225.0, booking["total_cost"])
	assert.Equal(t, "/api/v1/bookings/latest", created["redirect"])

	// Latest booking reflects what was just created
	resp = authorizedRequest(t, ts, http.MethodGet, "/api/v1/bookings/latest", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	latest := decodeBody(t, resp)
	latestBooking, ok := latest["booking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Wave Villa", latestBooking["room_name"])
	assert.Equal(t, "2024-01-01", latestBooking["start_date"])
	assert.Equal(t, "2024-01-04", latestBooking["end_date"])
	assert.Equal(t, 225.0, latestBooking["total_cost"])

	// The payment transaction was written in the same unit
	id := int64(booking["id"].(float64))
	tr, err := db.GetTransactionByBookingID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, tr.IsPaid)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ts, _ := setupTestServer(t)
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/v1/register", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/v1/register", map[string]string{
		"username": "alice", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "duplicate_username", body["error"])
}

func TestLogin_BadCredentials(t *testing.T) {
	ts, _ := setupTestServer(t)
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/v1/register", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Wrong password and unknown user produce identical responses
	wrongPass := postJSON(t, client, ts.URL+"/api/v1/login", map[string]string{
		"username": "alice", "password": "nope",
	})
	unknownUser := postJSON(t, client, ts.URL+"/api/v1/login", map[string]string{
		"username": "ghost", "password": "nope",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)
	assert.Equal(t, decodeBody(t, wrongPass), decodeBody(t, unknownUser))
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	ts, _ := setupTestServer(t)
	client := ts.Client()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/accommodations"},
		{http.MethodPost, "/api/v1/book"},
		{http.MethodGet, "/api/v1/bookings/latest"},
	}

	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			req, err := http.NewRequest(p.method, ts.URL+p.path, bytes.NewReader(nil))
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body := decodeBody(t, resp)
			assert.Equal(t, "not_authenticated", body["error"])
			assert.Equal(t, "/api/v1/login", body["redirect"])
		})
	}
}

func TestBook_InvalidDateRange(t *testing.T) {
	ts, db := setupTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	cases := []map[string]any{
		{"room_name": "Wave Villa", "price": 75.0, "start_date": "2024-01-04", "end_date": "2024-01-01"},
		{"room_name": "Wave Villa", "price": 75.0, "start_date": "2024-01-01", "end_date": "2024-01-01"},
		{"room_name": "Wave Villa", "price": 75.0, "start_date": "not-a-date", "end_date": "2024-01-04"},
	}
	for _, body := range cases {
		resp := authorizedRequest(t, ts, http.MethodPost, "/api/v1/book", token, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		decoded := decodeBody(t, resp)
		assert.Equal(t, "invalid_date_range", decoded["error"])
	}

	// Rejected bookings must leave no rows behind
	count, err := db.CountBookings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLatestBooking_NoneYet(t *testing.T) {
	ts, _ := setupTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := authorizedRequest(t, ts, http.MethodGet, "/api/v1/bookings/latest", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "/api/v1/accommodations", body["redirect"])
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts, _ := setupTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := authorizedRequest(t, ts, http.MethodPost, "/api/v1/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = authorizedRequest(t, ts, http.MethodGet, "/api/v1/accommodations", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSessionCookieAuthentication(t *testing.T) {
	ts, _ := setupTestServer(t)
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/v1/register", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/v1/login", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "fonteyn_session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/accommodations", nil)
	require.NoError(t, err)
	req.AddCookie(sessionCookie)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestExport_RequiresAdmin(t *testing.T) {
	ts, _ := setupTestServer(t)

	token := registerAndLogin(t, ts, "alice")
	resp := authorizedRequest(t, ts, http.MethodGet, "/api/v1/bookings/export", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	adminToken := registerAndLogin(t, ts, "manager")
	resp = authorizedRequest(t, ts, http.MethodGet,
		fmt.Sprintf("/api/v1/bookings/export?start_date=%s&end_date=%s", "2024-01-01", "2024-01-31"),
		adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2024-01-01_to_2024-01-31.xlsx")
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}
