package http

import (
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/manager"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// templateFuncs are available to every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"brl":       core.FormatBRL,
		"dia":       formatDay,
		"diaFim":    formatEndDay,
		"dataInput": dateInputValue,
		"fimInput":  endDateInputValue,
		"mesNome":   monthLabel,
		"campos":    newExpenseFields,
		"valorInput": func(d decimal.Decimal) string {
			if d.IsZero() {
				return ""
			}
			return d.StringFixed(2)
		},
	}
}

// formatDay renders a date as DD/MM/YYYY, or "-" when unset.
func formatDay(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("02/01/2006")
}

func formatEndDay(d *core.Date) string {
	if d == nil {
		return "-"
	}
	return formatDay(*d)
}

func dateInputValue(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func endDateInputValue(d *core.Date) string {
	if d == nil {
		return ""
	}
	return dateInputValue(*d)
}

// monthLabel renders a period as "Março de 2024".
func monthLabel(p core.Period) string {
	if p.Month < 1 || p.Month > 12 {
		return ""
	}
	return monthNames[p.Month-1] + " de " + strconv.Itoa(p.Year)
}

// pageData is what index.html and the app partial render.
type pageData struct {
	manager.View
	MonthValue string
}

func newPageData(v manager.View) pageData {
	p := v.Period()
	data := pageData{View: v}
	if p.Month != 0 {
		data.MonthValue = p.InputValue()
	}
	return data
}

// expenseFields feeds the shared expense form fields: the page for the
// group catalogue and the expense being edited or drafted.
type expenseFields struct {
	Page    pageData
	Expense core.Expense
}

func newExpenseFields(page pageData, e any) expenseFields {
	f := expenseFields{Page: page}
	switch v := e.(type) {
	case core.Expense:
		f.Expense = v
	case *core.Expense:
		if v != nil {
			f.Expense = *v
		}
	}
	return f
}
