package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
	"gastos/internal/storage"
)

const (
	maxBodyBytes = 1 << 20

	msgBadJSON          = "Corpo da requisição inválido."
	msgBadPeriod        = "Período inválido, use MM-AAAA."
	msgBadID            = "Identificador inválido."
	msgNotFound         = "Recurso não encontrado."
	msgMethodNotAllowed = "Método não permitido."
	msgInternal         = "Erro interno do servidor."
)

// Service is the business layer behind the endpoints.
type Service interface {
	ListGroups(ctx context.Context) ([]core.ExpenseGroup, error)
	CreateGroup(ctx context.Context, g core.ExpenseGroup) (core.ExpenseGroup, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error)
}

// Pinger reports storage health; optional.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	svc    Service
	db     Pinger
	logger *log.Logger
}

func NewHandlers(svc Service, db Pinger, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Discard()
	}
	return &Handlers{svc: svc, db: db, logger: logger.WithComponent(log.ComponentAPI)}
}

// expenseRequest accepts the nested group object and the flat group id;
// the flat id wins when both are present.
type expenseRequest struct {
	core.Expense
	GroupID int64 `json:"grupoGastosId"`
}

func (req expenseRequest) toExpense() core.Expense {
	e := req.Expense
	if req.GroupID != 0 {
		e.Group.ID = req.GroupID
	}
	return e
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.ListExpenses(r.Context())
	if err != nil {
		h.fail(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) ListExpensesByPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := core.ParsePeriod(mux.Vars(r)["periodo"])
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadPeriod)
		return
	}
	expenses, err := h.svc.ListExpensesByPeriod(r.Context(), p)
	if err != nil {
		h.fail(w, r, "list expenses by period", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.svc.CreateExpense(r.Context(), req.toExpense())
	if err != nil {
		h.fail(w, r, "create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msgBadID)
		return
	}
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateExpense(r.Context(), id, req.toExpense())
	if err != nil {
		h.fail(w, r, "update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		h.fail(w, r, "list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var g core.ExpenseGroup
	if !decode(w, r, &g) {
		return
	}
	created, err := h.svc.CreateGroup(r.Context(), g)
	if err != nil {
		h.fail(w, r, "create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

// fail maps service errors onto status codes; only 500s are logged as errors.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldRequestID, trace.GetRequestID(r.Context()),
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
