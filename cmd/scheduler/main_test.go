package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/speaker-scheduler/internal/config"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c client) call(method, path, token, body string) (int, map[string]any, *httptest.ResponseRecorder) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out, rec
}

func (c client) login(email string) string {
	c.t.Helper()
	status, body, _ := c.call(http.MethodPost, "/login", "", `{"email":"`+email+`","password":"password123"}`)
	require.Equal(c.t, http.StatusOK, status, body)
	return body["token"].(string)
}

func newTestApp(t *testing.T) client {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "oratori.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	cfg, err := config.LoadFrom(map[string]string{
		"ORATORI_JWT_SECRET":        "test-secret",
		"ORATORI_SQLITE_DSN":        dsn,
		"ORATORI_GEOCODER_DISABLED": "true",
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	return client{t: t, handler: a.handler}
}

func TestSchedulingFlow(t *testing.T) {
	c := newTestApp(t)

	status, body, _ := c.call(http.MethodPost, "/register", "", `{"email":"admin@example.com","password":"password123","given_name":"Anna"}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "admin", body["user"].(map[string]any)["role"], "first account administers the app")

	status, body, _ = c.call(http.MethodPost, "/register", "", `{"email":"Luca@Example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, status, body)
	luca := body["user"].(map[string]any)
	assert.Equal(t, "pending", luca["role"])
	assert.Equal(t, "luca@example.com", luca["email"])

	status, _, _ = c.call(http.MethodPost, "/register", "", `{"email":"luca@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, status)

	adminToken := c.login("admin@example.com")
	lucaToken := c.login("luca@example.com")

	status, body, _ = c.call(http.MethodGet, "/programs", lucaToken, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "account_pending", body["error_code"])

	status, body, _ = c.call(http.MethodPost, "/admin/users/"+luca["id"].(string)+"/approve", adminToken, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "user", body["user"].(map[string]any)["role"])

	status, body, _ = c.call(http.MethodPost, "/speakers", adminToken,
		`{"given_name":"Mario","family_name":"Rossi","congregation":"Roma Centro","talks":[45,12,12]}`)
	require.Equal(t, http.StatusCreated, status, body)
	speaker := body["speaker"].(map[string]any)
	speakerID := speaker["id"].(string)
	assert.Len(t, speaker["talks"], 2)

	program := func(date string) string {
		return `{"date":"` + date + `","time":"10:00","speaker_id":"` + speakerID + `","talk":12}`
	}

	status, body, _ = c.call(http.MethodPost, "/programs", lucaToken, program("2024-06-15"))
	require.Equal(t, http.StatusCreated, status, body)
	booked := body["program"].(map[string]any)["id"].(string)
	assert.Nil(t, body["warnings"].(map[string]any)["monthly"])

	t.Run("another owner cannot book the same speaker on the same date", func(t *testing.T) {
		status, body, _ := c.call(http.MethodPost, "/programs", adminToken, program("2024-06-15"))
		require.Equal(t, http.StatusConflict, status, body)
		assert.Equal(t, "speaker_already_booked", body["error_code"])
		assert.Equal(t, booked, body["conflict"].(map[string]any)["program_id"])
	})

	t.Run("a second weekend in the month warns", func(t *testing.T) {
		status, body, _ := c.call(http.MethodPost, "/programs", adminToken, program("2024-06-01"))
		require.Equal(t, http.StatusCreated, status, body)
		monthly := body["warnings"].(map[string]any)["monthly"].(map[string]any)
		assert.Equal(t, []any{"2024-06-15"}, monthly["other_dates"])
	})

	t.Run("weekdays are rejected", func(t *testing.T) {
		status, body, _ := c.call(http.MethodPost, "/programs", lucaToken, program("2024-06-12"))
		assert.Equal(t, http.StatusBadRequest, status, body)
	})

	t.Run("programs of other owners are hidden", func(t *testing.T) {
		status, _, _ := c.call(http.MethodDelete, "/programs/"+booked, adminToken, "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("occupied dates span every owner", func(t *testing.T) {
		status, body, _ := c.call(http.MethodGet, "/programs/occupied?speaker_id="+speakerID, lucaToken, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, []any{"2024-06-01", "2024-06-15"}, body["dates"])
	})

	t.Run("candidates put the booked speaker aside", func(t *testing.T) {
		status, body, _ := c.call(http.MethodGet, "/speakers/candidates?date=2024-06-15", lucaToken, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Empty(t, body["available"])
		require.Len(t, body["unavailable"], 1)
	})

	t.Run("calendar export", func(t *testing.T) {
		status, _, rec := c.call(http.MethodGet, "/programs.ics", lucaToken, "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
		assert.Contains(t, rec.Body.String(), "Rossi")
	})

	t.Run("requests without a token are refused", func(t *testing.T) {
		status, _, _ := c.call(http.MethodGet, "/speakers", "", "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}
