// Package http serves the expense page and its htmx partials.
//
// This file binds submitted form fields to domain values.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gastos/internal/core"
)

// Form field names shared by the templates and the binders.
const (
	fieldMonth       = "mes"
	fieldName        = "nome"
	fieldDescription = "descricao"
	fieldAmount      = "valor"
	fieldGroup       = "grupoGastos"
	fieldStartDate   = "dataInicio"
	fieldEndDate     = "dataFim"
	fieldInstallment = "parcela"
)

// Messages shown when a field cannot be read at all.
const (
	msgBadForm      = "Formulário inválido"
	msgBadAmount    = "Valor inválido"
	msgBadStartDate = "Data de início inválida"
	msgBadEndDate   = "Data de fim inválida"
	msgBadGroup     = "Grupo inválido"
	msgBadMonth     = "Mês inválido"
)

// FormError lists the fields that could not be converted. The expense
// returned alongside it still carries every field that could.
type FormError struct {
	Messages []string
}

func (e *FormError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *FormError) add(msg string) {
	e.Messages = append(e.Messages, msg)
}

func (e *FormError) orNil() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}

// GroupResolver maps a submitted group id to the catalogue entry.
type GroupResolver func(id int64) core.ExpenseGroup

// ParseExpenseForm reads an expense from form values. base supplies the
// fields the form does not carry, such as the id of the expense being
// edited. An empty group selection leaves the group zero.
func ParseExpenseForm(form url.Values, base core.Expense, resolve GroupResolver) (core.Expense, error) {
	e := base.Clone()
	var ferr FormError

	e.Name = sanitizeInput(form.Get(fieldName))
	e.Description = sanitizeInput(form.Get(fieldDescription))
	e.Installment = sanitizeInput(form.Get(fieldInstallment))

	if amount, err := core.ParseAmount(form.Get(fieldAmount)); err != nil {
		ferr.add(msgBadAmount)
	} else {
		e.Amount = amount
	}

	e.Group = core.ExpenseGroup{}
	if raw := strings.TrimSpace(form.Get(fieldGroup)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ferr.add(msgBadGroup)
		} else if resolve != nil {
			e.Group = resolve(id)
		}
	}

	e.StartDate = core.Date{}
	if raw := strings.TrimSpace(form.Get(fieldStartDate)); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			ferr.add(msgBadStartDate)
		} else {
			e.StartDate = d
		}
	}

	end, err := core.ParseOptionalDate(form.Get(fieldEndDate))
	if err != nil {
		ferr.add(msgBadEndDate)
	} else {
		e.EndDate = end
	}

	return e, ferr.orNil()
}

// ParseGroupForm reads the new-group form.
func ParseGroupForm(form url.Values) core.ExpenseGroup {
	return core.ExpenseGroup{Name: sanitizeInput(form.Get(fieldName))}
}

// ParseMonthField reads the "YYYY-MM" month picker value.
func ParseMonthField(form url.Values) (string, error) {
	v := strings.TrimSpace(form.Get(fieldMonth))
	if _, err := core.ParseMonthInput(v); err != nil {
		return "", err
	}
	return v, nil
}

// ParseExpenseID reads the {id} path segment.
func ParseExpenseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", raw)
	}
	return id, nil
}

// UserFacing returns the text to show for a binding error.
func UserFacing(err error) string {
	var ferr *FormError
	if errors.As(err, &ferr) {
		return ferr.Error()
	}
	if errors.Is(err, core.ErrInvalidPeriod) {
		return msgBadMonth
	}
	return msgBadForm
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
