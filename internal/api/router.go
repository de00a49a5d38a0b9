// Package api serves the expense backend's REST endpoints for local
// development and tests.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
)

// NewRouter wires every endpoint onto a gorilla/mux router.
func NewRouter(h *Handlers, logger *log.Logger, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(trace.NewMiddleware(security.ClientIP, logger, m).Middleware)

	r.HandleFunc("/gastos/listar", h.ListExpenses).Methods(http.MethodGet)
	r.HandleFunc("/gastos/listar/{periodo}", h.ListExpensesByPeriod).Methods(http.MethodGet)
	r.HandleFunc("/gastos/cadastrar", h.CreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/gastos/atualizar/{id:[0-9]+}", h.UpdateExpense).Methods(http.MethodPut)
	r.HandleFunc("/grupo-gastos/listar", h.ListGroups).Methods(http.MethodGet)
	r.HandleFunc("/grupo-gastos/cadastrar", h.CreateGroup).Methods(http.MethodPost)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	return r
}
