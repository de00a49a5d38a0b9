package manager

import (
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// View is a point-in-time copy of the manager state for rendering.
type View struct {
	SelectedMonth   string
	SelectedYear    int
	Expenses        []core.Expense
	Grouped         core.GroupedExpenses
	TotalByCategory core.TotalByCategory
	GrandTotal      decimal.Decimal
	Overview        core.Overview
	Groups          []core.ExpenseGroup
	Modals          Modals
	NewExpense      core.Expense
	NewGroup        core.ExpenseGroup
	SelectedExpense *core.Expense
	ErrorMessage    string
	SuccessMessage  string
}

// Period returns the selected month, or the zero Period before Init.
func (v View) Period() core.Period {
	p, err := periodOf(v.SelectedMonth, v.SelectedYear)
	if err != nil {
		return core.Period{}
	}
	return p
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		SelectedMonth:   m.selectedMonth,
		SelectedYear:    m.selectedYear,
		Expenses:        make([]core.Expense, len(m.expenses)),
		Grouped:         m.grouped,
		TotalByCategory: make(core.TotalByCategory, len(m.totals)),
		GrandTotal:      m.grandTotal,
		Groups:          append([]core.ExpenseGroup(nil), m.groups...),
		Modals:          m.modals,
		NewExpense:      m.newExpense.Clone(),
		NewGroup:        m.newGroup,
		ErrorMessage:    m.errorMessage,
		SuccessMessage:  m.successMessage,
	}
	for i, e := range m.expenses {
		v.Expenses[i] = e.Clone()
	}
	for k, total := range m.totals {
		v.TotalByCategory[k] = total
	}
	if m.selected != nil {
		s := m.selected.Clone()
		v.SelectedExpense = &s
	}
	v.Overview = core.BuildOverview(v.Period(), m.grouped, m.totals, m.grandTotal)
	return v
}
