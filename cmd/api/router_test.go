package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/config"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/roster"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// memAdmins is an in-memory admin.Repository.
type memAdmins struct {
	mu     sync.Mutex
	nextID int
	byName map[string]*admin.Admin
}

func newMemAdmins() *memAdmins {
	return &memAdmins{nextID: 1, byName: make(map[string]*admin.Admin)}
}

func (r *memAdmins) Upsert(_ context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byName[username]; ok {
		a.PasswordHash = passwordHash
		return nil
	}
	r.byName[username] = &admin.Admin{ID: r.nextID, Username: username, PasswordHash: passwordHash}
	r.nextID++
	return nil
}

func (r *memAdmins) GetByUsername(_ context.Context, username string) (*admin.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byName[username]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// memRoster is an in-memory roster.Repository.
type memRoster struct {
	mu       sync.Mutex
	nextID   int
	students map[int]string
}

func newMemRoster() *memRoster {
	return &memRoster{nextID: 1, students: make(map[int]string)}
}

func (r *memRoster) List(_ context.Context) ([]roster.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []roster.Student
	for id, name := range r.students {
		list = append(list, roster.Student{ID: id, Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *memRoster) Create(_ context.Context, name string) (roster.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := roster.Student{ID: r.nextID, Name: name}
	r.students[s.ID] = name
	r.nextID++
	return s, nil
}

func (r *memRoster) Update(_ context.Context, id int, name string) (roster.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return roster.Student{}, roster.ErrNotFound
	}
	r.students[id] = name
	return roster.Student{ID: id, Name: name}, nil
}

func (r *memRoster) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return roster.ErrNotFound
	}
	delete(r.students, id)
	return nil
}

// memAttendance is an in-memory attendance.Repository.
type memAttendance struct {
	mu      sync.Mutex
	records map[string]attendance.Status
}

func newMemAttendance() *memAttendance {
	return &memAttendance{records: make(map[string]attendance.Status)}
}

func attKey(studentID int, date string) string {
	return fmt.Sprintf("%d|%s", studentID, date)
}

func (r *memAttendance) GetStatus(_ context.Context, studentID int, date string) (attendance.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.records[attKey(studentID, date)]; ok {
		return st, nil
	}
	return attendance.StatusAbsent, nil
}

func (r *memAttendance) SetStatus(_ context.Context, studentID int, date string, status attendance.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[attKey(studentID, date)] = status
	return nil
}

func testConfig() config.App {
	return config.App{
		JWTIssuer:     "rollbook-test",
		JWTSigningKey: "test-signing-key",
		TokenTTL:      time.Hour,
		CORSOrigin:    "http://localhost:3000",
	}
}

func newTestRouter(limiter httpmiddleware.Limiter) *gin.Engine {
	cfg := testConfig()
	admins := admin.NewService(newMemAdmins(), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TokenTTL)
	att := attendance.NewService(newMemAttendance())
	healthz := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	if limiter == nil {
		limiter = httpmiddleware.NewFixedWindow(100, 15*time.Minute)
	}
	return newRouter(cfg, admins, newMemRoster(), att, limiter, healthz)
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	rec := doJSON(r, http.MethodPost, "/admin/setup", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/admin/login/password", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLoginBadCredentials(t *testing.T) {
	r := newTestRouter(nil)

	rec := doJSON(r, http.MethodPost, "/admin/setup", "", gin.H{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/admin/login/password", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown username yields the same response as a wrong password.
	rec2 := doJSON(r, http.MethodPost, "/admin/login/password", "", gin.H{"username": "bob", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestLoginMissingFields(t *testing.T) {
	r := newTestRouter(nil)

	rec := doJSON(r, http.MethodPost, "/admin/login/password", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(nil)

	rec := doJSON(r, http.MethodGet, "/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(r, http.MethodGet, "/attendance?studentId=7&date=2024-01-10", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(r, http.MethodPost, "/attendance", "", gin.H{"studentId": 7, "date": "2024-01-10", "status": "present"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceFlow(t *testing.T) {
	r := newTestRouter(nil)
	token := loginAs(t, r, "alice", "secret123")

	rec := doJSON(r, http.MethodGet, "/attendance?studentId=7&date=2024-01-10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"absent"}`, rec.Body.String())

	rec = doJSON(r, http.MethodPost, "/attendance", token, gin.H{"studentId": 7, "date": "2024-01-10", "status": "present"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/attendance?studentId=7&date=2024-01-10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"present"}`, rec.Body.String())
}

func TestAttendanceInvalidStatus(t *testing.T) {
	r := newTestRouter(nil)
	token := loginAs(t, r, "alice", "secret123")

	rec := doJSON(r, http.MethodPost, "/attendance", token, gin.H{"studentId": 7, "date": "2024-01-10", "status": "unknown"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Rejected writes leave prior state untouched.
	rec = doJSON(r, http.MethodGet, "/attendance?studentId=7&date=2024-01-10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"absent"}`, rec.Body.String())
}

func TestAttendanceBadQuery(t *testing.T) {
	r := newTestRouter(nil)
	token := loginAs(t, r, "alice", "secret123")

	rec := doJSON(r, http.MethodGet, "/attendance?date=2024-01-10", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodGet, "/attendance?studentId=7&date=tomorrow", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkMark(t *testing.T) {
	r := newTestRouter(nil)
	token := loginAs(t, r, "alice", "secret123")

	rec := doJSON(r, http.MethodPost, "/attendance/bulk", token, gin.H{
		"date":       "2024-01-10",
		"status":     "present",
		"studentIds": []int{1, 2, 3},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []attendance.MarkResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	for _, res := range resp.Results {
		assert.True(t, res.OK)
	}

	rec = doJSON(r, http.MethodGet, "/attendance?studentId=2&date=2024-01-10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"present"}`, rec.Body.String())
}

func TestStudentCRUD(t *testing.T) {
	r := newTestRouter(nil)
	token := loginAs(t, r, "alice", "secret123")

	rec := doJSON(r, http.MethodGet, "/students", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = doJSON(r, http.MethodPost, "/students", token, gin.H{"name": "Bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var created roster.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Bob", created.Name)

	rec = doJSON(r, http.MethodPut, fmt.Sprintf("/students/%d", created.ID), token, gin.H{"name": "Robert"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/students", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []roster.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Robert", list[0].Name)

	rec = doJSON(r, http.MethodPut, "/students/999", token, gin.H{"name": "Nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(r, http.MethodDelete, fmt.Sprintf("/students/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodDelete, fmt.Sprintf("/students/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(r, http.MethodPost, "/students", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutesRateLimited(t *testing.T) {
	r := newTestRouter(httpmiddleware.NewFixedWindow(10, 15*time.Minute))

	body := gin.H{"username": "alice", "password": "wrong"}
	for i := 0; i < 10; i++ {
		rec := doJSON(r, http.MethodPost, "/admin/login/password", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// The 11th attempt within the window is limited regardless of credentials.
	rec := doJSON(r, http.MethodPost, "/admin/login/password", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthzAndMetricsOpen(t *testing.T) {
	r := newTestRouter(nil)

	rec := doJSON(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(nil)

	rec := doJSON(r, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}
