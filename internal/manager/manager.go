// Package manager holds the expense view state: the fetched list, its
// grouping and totals, the group catalogue, and the transient modal/form
// state the UI renders.
//
// Every method is safe for concurrent use. The lock is never held across a
// backend call, so overlapping fetches are not sequenced: whichever response
// arrives last replaces the list.
package manager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gastos/internal/backend"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/metrics"
)

// User-facing messages.
const (
	MsgUpdateFailed = "Erro ao atualizar a despesa"
	MsgCreateFailed = "Erro ao cadastrar a despesa"
	MsgGroupFailed  = "Erro ao cadastrar o grupo"
	MsgUpdated      = "Despesa atualizada com sucesso"
	MsgCreated      = "Despesa cadastrada com sucesso"
	MsgGroupCreated = "Grupo cadastrado com sucesso"
)

// Modals are the independent open/closed flags of the page.
type Modals struct {
	Edit       bool
	NewExpense bool
	NewGroup   bool
	Success    bool
	Error      bool
}

type Manager struct {
	api     backend.API
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu             sync.Mutex
	expenses       []core.Expense
	grouped        core.GroupedExpenses
	totals         core.TotalByCategory
	grandTotal     decimal.Decimal
	selectedMonth  string
	selectedYear   int
	groups         []core.ExpenseGroup
	modals         Modals
	newExpense     core.Expense
	newGroup       core.ExpenseGroup
	selected       *core.Expense
	errorMessage   string
	successMessage string
}

type Option func(*Manager)

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentManager) }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClock overrides time.Now, which picks the initial month.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(api backend.API, opts ...Option) *Manager {
	m := &Manager{
		api:    api,
		logger: log.New(log.Config{Component: log.ComponentManager}),
		now:    time.Now,
		totals: core.TotalByCategory{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init selects the current month and loads expenses and groups. The two
// requests are independent: one failing does not cancel the other.
func (m *Manager) Init(ctx context.Context) error {
	p := core.CurrentPeriod(m.now())

	m.mu.Lock()
	m.selectedMonth = p.MonthString()
	m.selectedYear = p.Year
	m.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return m.FetchExpenses(ctx, p.MonthString(), p.Year) })
	g.Go(func() error { return m.FetchGroups(ctx) })
	return g.Wait()
}

// FetchExpenses loads one month. On failure the error is logged and
// returned, and the previous list stays in place.
func (m *Manager) FetchExpenses(ctx context.Context, month string, year int) error {
	p, err := periodOf(month, year)
	if err != nil {
		return err
	}
	list, err := m.api.ListExpenses(ctx, p)
	if err != nil {
		m.logger.ErrorContext(ctx, "Error fetching expenses", log.FieldPeriod, p.String(), log.FieldError, err)
		return fmt.Errorf("fetch expenses %s: %w", p, err)
	}
	m.replaceExpenses(list)
	m.logger.DebugContext(ctx, "Expenses loaded", log.FieldPeriod, p.String(), log.FieldCount, len(list))
	return nil
}

// FetchAllExpenses loads every expense regardless of period.
func (m *Manager) FetchAllExpenses(ctx context.Context) error {
	list, err := m.api.ListAllExpenses(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Error fetching all expenses", log.FieldError, err)
		return fmt.Errorf("fetch all expenses: %w", err)
	}
	m.replaceExpenses(list)
	return nil
}

// FetchGroups loads the group catalogue used by the forms.
func (m *Manager) FetchGroups(ctx context.Context) error {
	groups, err := m.api.ListGroups(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Error fetching expense groups", log.FieldError, err)
		return fmt.Errorf("fetch groups: %w", err)
	}
	m.mu.Lock()
	m.groups = groups
	m.mu.Unlock()
	return nil
}

func (m *Manager) replaceExpenses(list []core.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = list
	m.groupExpensesLocked()
}

// GroupExpenses rebuilds the grouping and the totals from the current list.
func (m *Manager) GroupExpenses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupExpensesLocked()
}

// CalculateTotals rebuilds per-group and grand totals from the grouping.
func (m *Manager) CalculateTotals() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculateTotalsLocked()
}

func (m *Manager) groupExpensesLocked() {
	m.grouped = core.GroupExpenses(m.expenses)
	m.calculateTotalsLocked()
}

func (m *Manager) calculateTotalsLocked() {
	m.totals, m.grandTotal = core.CalculateTotals(m.grouped)
}

// GroupedExpenseKeys returns the group names in display order.
func (m *Manager) GroupedExpenseKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grouped.Names()
}

// OnMonthChange takes a "YYYY-MM" picker value, moves the selection and
// reloads that month.
func (m *Manager) OnMonthChange(ctx context.Context, value string) error {
	m.metrics.Action("month_change")
	p, err := core.ParseMonthInput(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.selectedMonth = p.MonthString()
	m.selectedYear = p.Year
	m.mu.Unlock()
	return m.FetchExpenses(ctx, p.MonthString(), p.Year)
}

// UpdateExpense saves the edit snapshot. Without a snapshot it does nothing.
func (m *Manager) UpdateExpense(ctx context.Context) error {
	m.metrics.Action("update_expense")
	m.mu.Lock()
	if m.selected == nil {
		m.mu.Unlock()
		return nil
	}
	e := m.selected.Clone()
	m.mu.Unlock()

	if err := m.api.UpdateExpense(ctx, e); err != nil {
		return m.writeFailed(ctx, backend.OpUpdateExpense, err, MsgUpdateFailed)
	}
	m.logger.InfoContext(ctx, "Expense updated", log.NewFields().
		WithExpense(e.ID, e.Name, e.Amount.String(), e.Group.Name).ToSlice()...)

	m.refetchExpenses(ctx)

	m.mu.Lock()
	m.successMessage = MsgUpdated
	m.modals.Success = true
	m.closeEditLocked()
	m.mu.Unlock()
	return nil
}

// AddNewExpense submits the new-expense form.
func (m *Manager) AddNewExpense(ctx context.Context) error {
	m.metrics.Action("add_expense")
	m.mu.Lock()
	e := m.newExpense.Clone()
	m.mu.Unlock()

	if err := m.api.CreateExpense(ctx, e); err != nil {
		return m.writeFailed(ctx, backend.OpCreateExpense, err, MsgCreateFailed)
	}
	m.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithExpense(e.ID, e.Name, e.Amount.String(), e.Group.Name).ToSlice()...)

	m.refetchExpenses(ctx)

	m.mu.Lock()
	m.successMessage = MsgCreated
	m.modals.Success = true
	m.closeNewExpenseLocked()
	m.mu.Unlock()
	return nil
}

// AddNewGroupExpense submits the new-group form and reloads both lists.
func (m *Manager) AddNewGroupExpense(ctx context.Context) error {
	m.metrics.Action("add_group")
	m.mu.Lock()
	g := m.newGroup
	m.mu.Unlock()

	if err := m.api.CreateGroup(ctx, g); err != nil {
		return m.writeFailed(ctx, backend.OpCreateGroup, err, MsgGroupFailed)
	}
	m.logger.InfoContext(ctx, "Expense group created", log.FieldGroup, g.Name)

	m.refetchExpenses(ctx)
	_ = m.FetchGroups(ctx)

	m.mu.Lock()
	m.successMessage = MsgGroupCreated
	m.modals.Success = true
	m.closeNewGroupLocked()
	m.mu.Unlock()
	return nil
}

// refetchExpenses reloads the selected month after a successful write. A
// failure here is only logged; the write itself already succeeded.
func (m *Manager) refetchExpenses(ctx context.Context) {
	m.mu.Lock()
	month, year := m.selectedMonth, m.selectedYear
	m.mu.Unlock()
	if month == "" {
		return
	}
	_ = m.FetchExpenses(ctx, month, year)
}

func (m *Manager) writeFailed(ctx context.Context, op string, err error, fallback string) error {
	m.metrics.WriteFailed(op)
	m.logger.ErrorContext(ctx, "Write rejected", log.FieldOperation, op, log.FieldError, err)

	m.mu.Lock()
	m.errorMessage = backend.UserMessage(err, fallback)
	m.modals.Error = true
	m.mu.Unlock()
	return fmt.Errorf("%s: %w", op, err)
}

// OpenEditModal snapshots e for editing. The snapshot's group is resolved
// against the loaded catalogue, or left zero when it is not there.
func (m *Manager) OpenEditModal(e core.Expense) {
	m.metrics.Action("open_edit")
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := e.Clone()
	snapshot.Group = m.findGroupLocked(e.Group.ID)
	m.selected = &snapshot
	m.modals.Edit = true
}

// OpenEditModalByID opens the edit modal for a listed expense. It reports
// false when the id is not in the current list.
func (m *Manager) OpenEditModalByID(id int64) bool {
	m.mu.Lock()
	var found *core.Expense
	for i := range m.expenses {
		if m.expenses[i].ID == id {
			e := m.expenses[i]
			found = &e
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return false
	}
	m.OpenEditModal(*found)
	return true
}

func (m *Manager) CloseEditModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeEditLocked()
}

func (m *Manager) closeEditLocked() {
	m.modals.Edit = false
	m.selected = nil
}

func (m *Manager) OpenNewExpenseModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.NewExpense = true
}

// CloseNewExpenseModal hides the form and resets its fields.
func (m *Manager) CloseNewExpenseModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeNewExpenseLocked()
}

func (m *Manager) closeNewExpenseLocked() {
	m.modals.NewExpense = false
	m.newExpense = core.Expense{}
}

func (m *Manager) OpenNewGroupExpenseModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.NewGroup = true
}

// CloseNewGroupExpenseModal hides the form and resets its fields.
func (m *Manager) CloseNewGroupExpenseModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeNewGroupLocked()
}

func (m *Manager) closeNewGroupLocked() {
	m.modals.NewGroup = false
	m.newGroup = core.ExpenseGroup{}
}

func (m *Manager) CloseSuccessModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.Success = false
}

func (m *Manager) OpenErrorModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.Error = true
}

// ShowError opens the error banner with msg. Used when a form value cannot
// be read at all, before anything reaches the backend.
func (m *Manager) ShowError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMessage = msg
	m.modals.Error = true
}

// CloseErrorModal hides the banner and clears its message.
func (m *Manager) CloseErrorModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.Error = false
	m.errorMessage = ""
}

// SetNewExpense binds the new-expense form fields.
func (m *Manager) SetNewExpense(e core.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newExpense = e.Clone()
}

// SetNewGroup binds the new-group form fields.
func (m *Manager) SetNewGroup(g core.ExpenseGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newGroup = g
}

// SetSelectedExpense binds the edit form fields to the snapshot.
func (m *Manager) SetSelectedExpense(e core.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := e.Clone()
	m.selected = &snapshot
}

// ResolveGroup looks a group up in the loaded catalogue; unknown ids give
// the zero group.
func (m *Manager) ResolveGroup(id int64) core.ExpenseGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findGroupLocked(id)
}

func (m *Manager) findGroupLocked(id int64) core.ExpenseGroup {
	for _, g := range m.groups {
		if g.ID == id {
			return g
		}
	}
	return core.ExpenseGroup{}
}

func periodOf(month string, year int) (core.Period, error) {
	mm, err := strconv.Atoi(month)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: month %q", core.ErrInvalidPeriod, month)
	}
	return core.NewPeriod(year, mm)
}
