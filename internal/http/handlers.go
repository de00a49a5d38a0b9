package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gastos/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and that the backend answers a group listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if _, err := s.ready.ListGroups(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", NewHTMXResponse())
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	s.renderApp(w, r, NewHTMXResponse())
}

// render executes name with the current manager view.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	data := newPageData(s.mgr.View())
	if err := resp.Template(s.templates, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name, log.FieldOperation, log.OpRender)
	}
	resp.Write(w)
}

func (s *Server) renderApp(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder) {
	s.render(w, r, "app", resp)
}

// action wraps a state toggle that needs no input and re-renders the app.
func (s *Server) action(name string, fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Action(name)
		fn()
		s.renderApp(w, r, NewHTMXResponse())
	}
}

func (s *Server) handleMonthChange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}
	value, err := ParseMonthField(r.PostForm)
	if err != nil {
		s.mgr.ShowError(UserFacing(err))
		s.renderApp(w, r, NewHTMXResponse())
		return
	}

	resp := NewHTMXResponse()
	// A failed fetch keeps the previous listing; it has been logged already.
	if err := s.mgr.OnMonthChange(r.Context(), value); err == nil {
		resp.TriggerExpensesChanged(s.mgr.View().Period())
	}
	s.renderApp(w, r, resp)
}

func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !s.mgr.OpenEditModalByID(id) {
		NotFoundError("Despesa não encontrada").Write(w)
		return
	}
	s.renderApp(w, r, NewHTMXResponse())
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}

	selected := s.mgr.View().SelectedExpense
	if selected == nil || selected.ID != id {
		if !s.mgr.OpenEditModalByID(id) {
			NotFoundError("Despesa não encontrada").Write(w)
			return
		}
		selected = s.mgr.View().SelectedExpense
	}

	e, err := ParseExpenseForm(r.PostForm, *selected, s.mgr.ResolveGroup)
	s.mgr.SetSelectedExpense(e)
	if err != nil {
		s.mgr.ShowError(UserFacing(err))
		s.renderApp(w, r, NewHTMXResponse())
		return
	}

	resp := NewHTMXResponse()
	if err := s.mgr.UpdateExpense(r.Context()); err == nil {
		resp.TriggerExpensesChanged(s.mgr.View().Period())
	}
	s.renderApp(w, r, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}

	e, err := ParseExpenseForm(r.PostForm, s.mgr.View().NewExpense, s.mgr.ResolveGroup)
	s.mgr.SetNewExpense(e)
	if err != nil {
		s.mgr.ShowError(UserFacing(err))
		s.renderApp(w, r, NewHTMXResponse())
		return
	}

	resp := NewHTMXResponse()
	if err := s.mgr.AddNewExpense(r.Context()); err == nil {
		resp.TriggerExpensesChanged(s.mgr.View().Period())
	}
	s.renderApp(w, r, resp)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}
	s.mgr.SetNewGroup(ParseGroupForm(r.PostForm))

	resp := NewHTMXResponse()
	if err := s.mgr.AddNewGroupExpense(r.Context()); err == nil {
		resp.TriggerGroupsChanged().TriggerExpensesChanged(s.mgr.View().Period())
	}
	s.renderApp(w, r, resp)
}
