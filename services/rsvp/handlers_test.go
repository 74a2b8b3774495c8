package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/config"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/middleware"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
)

var fixedNow = time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []RSVPEvent
}

func (p *recordingPublisher) Publish(e RSVPEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Reason  string          `json:"reason"`
}

type testServer struct {
	router *gin.Engine
	events *recordingPublisher
}

func provisionCouple(t *testing.T, backend *storage.Backend, slug string, active bool) {
	t.Helper()
	cfg := &models.TenantConfig{
		ID:          slug,
		BrideName:   "Jane Wilson",
		GroomName:   "John Anderson",
		WeddingDate: "2025-11-15",
		Venue:       models.Venue{Name: "Rosewood Hall", Address: "12 Garden Lane"},
		IsActive:    active,
	}
	require.NoError(t, backend.Provisioner.Create(context.Background(), cfg))
}

func newTestServer(t *testing.T, backend *storage.Backend, locker storage.Locker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provisionCouple(t, backend, "john-jane", true)
	provisionCouple(t, backend, "mark-mary", true)
	provisionCouple(t, backend, "old-pair", false)

	events := &recordingPublisher{}
	router := NewRouter(&Deps{
		Backend: backend,
		Locker:  locker,
		Events:  events,
		Now:     func() time.Time { return fixedNow },
		Metrics: middleware.NewMetrics(),
	})
	return &testServer{router: router, events: events}
}

func fileBackend(t *testing.T) *storage.Backend {
	return storage.NewFileBackend(t.TempDir(), storage.FileRecordStoreOptions{})
}

func relationalBackend(t *testing.T) *storage.Backend {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "rsvp.db") + "?_foreign_keys=on"
	db, err := config.ConnectDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return storage.NewRelationalBackend(db)
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRSVPService_Flow(t *testing.T) {
	backends := map[string]func(*testing.T) *storage.Backend{
		"file":       fileBackend,
		"relational": relationalBackend,
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, mk(t), storage.NoopLocker{})

			code, resp := s.do(t, http.MethodGet, "/health", nil)
			assert.Equal(t, http.StatusOK, code)
			assert.True(t, resp.Success)

			code, resp = s.do(t, http.MethodGet, "/john-jane/config", nil)
			require.Equal(t, http.StatusOK, code)
			cfg := decode[models.TenantConfig](t, resp.Data)
			assert.Equal(t, "john-jane", cfg.ID)
			assert.Equal(t, "Jane Wilson", cfg.BrideName)

			code, resp = s.do(t, http.MethodPost, "/john-jane/rsvps", SubmitRSVPRequest{
				Name: "Alice", Relationship: "Friend", Attendance: models.AttendanceYes,
			})
			require.Equal(t, http.StatusCreated, code, resp.Error)
			alice := decode[models.GuestRecord](t, resp.Data)
			assert.NotEmpty(t, alice.ID)
			assert.True(t, fixedNow.Equal(alice.SubmittedAt))

			code, resp = s.do(t, http.MethodPost, "/john-jane/rsvps", SubmitRSVPRequest{
				Name: "Bob, Jr.", Relationship: "Cousin", Attendance: models.AttendanceMaybe, Message: `Can't wait, "truly"`,
			})
			require.Equal(t, http.StatusCreated, code, resp.Error)
			bob := decode[models.GuestRecord](t, resp.Data)
			assert.NotEqual(t, alice.ID, bob.ID)

			code, resp = s.do(t, http.MethodGet, "/john-jane/rsvps", nil)
			require.Equal(t, http.StatusOK, code)
			list := decode[[]models.GuestRecord](t, resp.Data)
			require.Len(t, list, 2)
			assert.Equal(t, "Alice", list[0].Name)
			assert.Equal(t, `Can't wait, "truly"`, list[1].Message)

			no := models.AttendanceNo
			code, resp = s.do(t, http.MethodPut, "/john-jane/rsvps/"+alice.ID, UpdateRSVPRequest{Attendance: &no})
			require.Equal(t, http.StatusOK, code, resp.Error)

			code, resp = s.do(t, http.MethodGet, "/john-jane/rsvps/"+alice.ID, nil)
			require.Equal(t, http.StatusOK, code)
			updated := decode[models.GuestRecord](t, resp.Data)
			assert.Equal(t, models.AttendanceNo, updated.Attendance)
			assert.Equal(t, "Friend", updated.Relationship)
			assert.True(t, fixedNow.Equal(updated.SubmittedAt))

			code, resp = s.do(t, http.MethodGet, "/john-jane/rsvps/summary", nil)
			require.Equal(t, http.StatusOK, code)
			summary := decode[models.Summary](t, resp.Data)
			assert.Equal(t, models.Summary{Total: 2, No: 1, Maybe: 1}, summary)

			assert.Equal(t, []string{EventSubmitted, EventSubmitted, EventUpdated}, s.events.types())
		})
	}
}

func TestRSVPService_Errors(t *testing.T) {
	s := newTestServer(t, fileBackend(t), storage.NoopLocker{})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown tenant", http.MethodGet, "/nobody/rsvps", nil, http.StatusNotFound},
		{"inactive tenant", http.MethodGet, "/old-pair/config", nil, http.StatusNotFound},
		{"malformed tenant", http.MethodGet, "/j/rsvps", nil, http.StatusNotFound},
		{"missing name", http.MethodPost, "/john-jane/rsvps", SubmitRSVPRequest{Relationship: "Friend", Attendance: models.AttendanceYes}, http.StatusBadRequest},
		{"bad attendance", http.MethodPost, "/john-jane/rsvps", SubmitRSVPRequest{Name: "Eve", Relationship: "Friend", Attendance: "perhaps"}, http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/john-jane/rsvps/99", UpdateRSVPRequest{}, http.StatusNotFound},
		{"get unknown", http.MethodGet, "/john-jane/rsvps/99", nil, http.StatusNotFound},
		{"invalid json", http.MethodPost, "/john-jane/rsvps", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	assert.Empty(t, s.events.types())
}

func TestRSVPService_TenantIsolation(t *testing.T) {
	s := newTestServer(t, fileBackend(t), storage.NoopLocker{})

	for _, slug := range []string{"john-jane", "mark-mary"} {
		code, resp := s.do(t, http.MethodPost, "/"+slug+"/rsvps", SubmitRSVPRequest{
			Name: "Guest of " + slug, Relationship: "Friend", Attendance: models.AttendanceYes,
		})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "1", decode[models.GuestRecord](t, resp.Data).ID)
	}

	_, resp := s.do(t, http.MethodGet, "/mark-mary/rsvps", nil)
	list := decode[[]models.GuestRecord](t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Guest of mark-mary", list[0].Name)
}

func TestRSVPService_LockedSubmissionsGetDistinctIDs(t *testing.T) {
	s := newTestServer(t, fileBackend(t), storage.NewMutexLocker())

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(SubmitRSVPRequest{
				Name: fmt.Sprintf("Guest %d", i), Relationship: "Friend", Attendance: models.AttendanceYes,
			})
			req := httptest.NewRequest(http.MethodPost, "/john-jane/rsvps", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			s.router.ServeHTTP(httptest.NewRecorder(), req)
		}(i)
	}
	wg.Wait()

	_, resp := s.do(t, http.MethodGet, "/john-jane/rsvps", nil)
	list := decode[[]models.GuestRecord](t, resp.Data)
	require.Len(t, list, n)

	seen := make(map[string]bool)
	for _, rec := range list {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}
