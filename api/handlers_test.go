/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Balance, history and employee listing
- Leave requests and the outcome status mapping
- Tool listing and tool calls
*/
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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/provision"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func setupTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, provision.Seed(context.Background(), store, provision.Sample()))

	validator := leave.NewValidator(store, leave.Options{
		Now: func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	handler := NewHandler(validator, store, logger.NewNop())
	return NewRouter(handler, []string{"http://localhost:5173"})
}

// brokenStore fails every write, and every read once readErr is set.
type brokenStore struct {
	*memory.Memory
	readErr  error
	writeErr error
}

func (s *brokenStore) GetSnapshot(ctx context.Context, id string) (leave.Snapshot, error) {
	if s.readErr != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", id, s.readErr)
	}
	return s.Memory.GetSnapshot(ctx, id)
}

func (s *brokenStore) ApplyLeave(ctx context.Context, g leave.Grant) error {
	return s.writeErr
}

func (s *brokenStore) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.Memory.ListEmployees(ctx)
}

func setupBrokenRouter(t *testing.T, store *brokenStore) http.Handler {
	require.NoError(t, provision.Seed(context.Background(), store.Memory, provision.Sample()))

	validator := leave.NewValidator(store, leave.Options{
		Now: func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	return NewRouter(NewHandler(validator, store, logger.NewNop()), []string{"http://localhost:5173"})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestHealth(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Echoed(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestGetBalance(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/api/employees/E001/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "E001", body["employee_id"])
	assert.EqualValues(t, 18, body["balance"])
	assert.EqualValues(t, 2, body["days_taken"])
	assert.Equal(t, "0.1", body["utilization"])
}

func TestGetBalance_UnknownEmployee(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/api/employees/E999/balance", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Employee not found", decode[ErrorResponse](t, rec).Error)
}

func TestGetHistory(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/api/employees/E001/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[HistoryDTO](t, rec)
	assert.Equal(t, []string{"2024-12-25", "2025-01-01"}, got.Dates)
}

func TestListEmployees(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/api/employees/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]EmployeeDTO](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "E001", got[0].ID)
	assert.Equal(t, 20, got[1].Balance)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestRequestLeave_Accepted(t *testing.T) {
	// GIVEN: E001 with 18 days
	// WHEN: POSTing two future dates
	// THEN: 201, new balance 16, visible on the balance endpoint

	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/E001/leave",
		LeaveRequest{Dates: []string{"2025-06-10", "2025-06-11"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decode[OutcomeDTO](t, rec)
	assert.Equal(t, "accepted", out.Status)
	require.NotNil(t, out.NewBalance)
	assert.Equal(t, 16, *out.NewBalance)
	assert.Equal(t, 2, out.Requested)

	rec = doRequest(t, router, http.MethodGet, "/api/employees/E001/balance", nil)
	assert.EqualValues(t, 16, decode[map[string]any](t, rec)["balance"])
}

func TestRequestLeave_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		employee   string
		dates      []string
		wantStatus int
		wantKind   string
	}{
		{"unknown employee", "E999", []string{"2025-06-10"}, http.StatusNotFound, "employee_not_found"},
		{"empty", "E001", []string{}, http.StatusBadRequest, "empty_request"},
		{"malformed", "E001", []string{"10/06/2025"}, http.StatusBadRequest, "malformed_date"},
		{"invalid calendar day", "E001", []string{"2025-02-30"}, http.StatusBadRequest, "invalid_calendar_date"},
		{"past", "E001", []string{"2025-01-02"}, http.StatusBadRequest, "past_date"},
		{"insufficient", "E001", futureRange(19), http.StatusConflict, "insufficient_balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, setupTestRouter(t), http.MethodPost,
				"/api/employees/"+tt.employee+"/leave", LeaveRequest{Dates: tt.dates})

			assert.Equal(t, tt.wantStatus, rec.Code)
			out := decode[OutcomeDTO](t, rec)
			assert.Equal(t, tt.wantKind, out.Status)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestRequestLeave_StorageFailure(t *testing.T) {
	// GIVEN a store whose writes fail
	router := setupBrokenRouter(t, &brokenStore{
		Memory:   memory.New(),
		writeErr: errors.New("disk I/O error at /var/lib/leave.db"),
	})

	// WHEN an admissible request is made
	rec := doRequest(t, router, http.MethodPost, "/api/employees/E001/leave",
		LeaveRequest{Dates: []string{"2025-06-10"}})

	// THEN the caller is told to retry and nothing is granted
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	out := decode[OutcomeDTO](t, rec)
	assert.Equal(t, "storage_failure", out.Status)
	assert.True(t, out.Retryable)
	assert.Equal(t,
		"Failed to update leave records in the database. Please try again or contact support if the issue persists.",
		out.Message)
	assert.NotContains(t, out.Message, "/var/lib")
	assert.Nil(t, out.NewBalance)
}

func TestReadEndpoints_StorageFailure_HideCause(t *testing.T) {
	router := setupBrokenRouter(t, &brokenStore{
		Memory:  memory.New(),
		readErr: errors.New("connection refused: 10.0.0.7:5432"),
	})

	paths := []string{
		"/api/employees/E001/balance",
		"/api/employees/E001/history",
		"/api/employees/",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, path, nil)

			assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Details)
			assert.NotContains(t, rec.Body.String(), "10.0.0.7")
		})
	}
}

func TestCallTool_StorageFailure_HidesCause(t *testing.T) {
	router := setupBrokenRouter(t, &brokenStore{
		Memory:  memory.New(),
		readErr: errors.New("connection refused: 10.0.0.7:5432"),
	})

	rec := doRequest(t, router, http.MethodPost, "/api/tools/get_leave_balance", map[string]any{"employee_id": "E001"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, decode[ErrorResponse](t, rec).Details)
}

func TestRequestLeave_AlreadyBooked(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/E002/leave",
		LeaveRequest{Dates: []string{"2025-06-10"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/employees/E002/leave",
		LeaveRequest{Dates: []string{"2025-06-10"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	out := decode[OutcomeDTO](t, rec)
	assert.Equal(t, "date_already_booked", out.Status)
	assert.Equal(t, "2025-06-10", out.Date)
}

func TestRequestLeave_InvalidBody(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/employees/E001/leave", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func futureRange(n int) []string {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]string, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(leave.DateLayout)
	}
	return dates
}

// =============================================================================
// TOOLS
// =============================================================================

func TestListTools(t *testing.T) {
	rec := doRequest(t, setupTestRouter(t), http.MethodGet, "/api/tools/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]ToolDTO](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "apply_leave", got[0].Name)
}

func TestCallTool(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/tools/apply_leave", map[string]any{
		"employee_id": "E001",
		"leave_dates": []string{"2025-06-10", "2025-06-11"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"Leave applied successfully for 2 day(s) for E001. New balance: 16.",
		decode[ToolResultDTO](t, rec).Result)

	rec = doRequest(t, router, http.MethodPost, "/api/tools/get_leave_balance", map[string]any{"employee_id": "E001"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Employee E001 has 16 leave days remaining.", decode[ToolResultDTO](t, rec).Result)
}

func TestCallTool_Errors(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/tools/cancel_leave", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/tools/get_leave_balance", map[string]any{"employee_id": 42})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
