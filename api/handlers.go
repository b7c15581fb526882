/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the validator and the leave tools over HTTP. Handles request
  decoding, JSON responses and status mapping; all decisions are made by
  the leave package.

ENDPOINTS:
  GET    /api/employees              List employees with balance and history
  GET    /api/employees/{id}/balance Balance, days taken, utilization
  GET    /api/employees/{id}/history Booked dates, unique and ascending
  POST   /api/employees/{id}/leave   Request leave: {"dates": [...]}
  GET    /api/tools                  Tool descriptors
  POST   /api/tools/{name}           Call a tool with a JSON argument object

STATUS MAPPING (leave requests):
  201: accepted
  400: empty request, malformed/invalid/past date
  404: employee not found
  409: date already booked, insufficient balance
  503: storage failure (retryable)
  The body is always an OutcomeDTO so clients can read the reason.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/tools"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// EmployeeLister lists provisioned employees.
type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]leave.Employee, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Validator *leave.Validator
	Employees EmployeeLister
	Tools     *tools.Registry

	logger logger.Logger
}

// NewHandler creates a new handler over validator.
func NewHandler(validator *leave.Validator, employees EmployeeLister, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		Validator: validator,
		Employees: employees,
		Tools:     tools.NewLeaveRegistry(validator),
		logger:    log,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListEmployees(r.Context())
	if err != nil {
		loggerFrom(r.Context()).LogError(r.Context(), "Failed to list employees", err)
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{
			ID:      e.ID,
			Balance: e.Balance,
			History: leave.Snapshot{History: e.History}.SortedHistory(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBalance returns the balance and usage for one employee.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	usage, err := h.Validator.Usage(r.Context(), id)
	if err != nil {
		writeReadError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID:  id,
		Balance:     usage.Balance,
		DaysTaken:   usage.DaysTaken,
		Utilization: usage.Utilization,
	})
}

// GetHistory returns the booked dates for one employee.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dates, err := h.Validator.History(r.Context(), id)
	if err != nil {
		writeReadError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryDTO{EmployeeID: id, Dates: dates})
}

// RequestLeave submits a leave request.
// POST /api/employees/{id}/leave
func (h *Handler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	out := h.Validator.RequestLeave(r.Context(), id, req.Dates)
	writeJSON(w, outcomeStatus(out.Kind), toOutcomeDTO(out))
}

func outcomeStatus(k leave.Kind) int {
	switch k {
	case leave.KindAccepted:
		return http.StatusCreated
	case leave.KindEmployeeNotFound:
		return http.StatusNotFound
	case leave.KindDateAlreadyBooked, leave.KindInsufficientBalance:
		return http.StatusConflict
	case leave.KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// =============================================================================
// TOOL HANDLERS
// =============================================================================

// ListTools describes the callable tools.
func (h *Handler) ListTools(w http.ResponseWriter, _ *http.Request) {
	all := h.Tools.All()
	dtos := make([]ToolDTO, len(all))
	for i, t := range all {
		dtos[i] = ToolDTO{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CallTool runs a tool with the JSON object in the body as arguments.
// POST /api/tools/{name}
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Tools.Execute(r.Context(), name, args)
	if err != nil {
		var argErr *tools.ArgumentError
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			writeError(w, http.StatusNotFound, "Tool not found", err)
		case errors.As(err, &argErr):
			writeError(w, http.StatusBadRequest, "Invalid tool arguments", err)
		default:
			loggerFrom(r.Context()).LogError(r.Context(), "Tool call failed", err, "tool", name)
			writeError(w, http.StatusServiceUnavailable, "Tool call failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ToolResultDTO{Tool: name, Result: result})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, leave.ErrEmployeeNotFound) {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	loggerFrom(r.Context()).LogError(r.Context(), "Failed to read ledger", err)
	writeError(w, http.StatusServiceUnavailable, "Failed to read ledger", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError reports the cause only for client errors; server-side causes
// stay in the log.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
