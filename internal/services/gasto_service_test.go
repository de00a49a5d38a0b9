package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

type fakePublisher struct {
	events []amqp.GastoEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e amqp.GastoEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func newTestService(t *testing.T, pub Publisher) (*GastoService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewGastoService(repo, pub, log.Discard()), repo
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Message
}

func TestCreateGroup(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, pub)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, core.ExpenseGroup{Name: "  Casa "})
	require.NoError(t, err)
	assert.Equal(t, "Casa", g.Name)
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventGroupCreated, pub.events[0].Type)
	assert.Equal(t, g.ID, pub.events[0].ID)

	_, err = svc.CreateGroup(ctx, core.ExpenseGroup{Name: "Casa"})
	assert.Equal(t, MsgGroupExists, validationMessage(t, err))

	_, err = svc.CreateGroup(ctx, core.ExpenseGroup{Name: " "})
	assert.Equal(t, MsgGroupNameRequired, validationMessage(t, err))
	assert.Len(t, pub.events, 1)
}

func TestCreateExpenseValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, core.ExpenseGroup{Name: "Casa"})
	require.NoError(t, err)

	before := core.NewDate(2024, 1, 1)
	tests := []struct {
		name string
		in   core.Expense
		want string
	}{
		{"missing name", core.Expense{Group: g}, MsgNameRequired},
		{"missing group", core.Expense{Name: "Luz"}, MsgGroupRequired},
		{"unknown group", core.Expense{Name: "Luz", Group: core.ExpenseGroup{ID: 99}}, MsgGroupNotFound},
		{"end before start", core.Expense{Name: "Luz", Group: g, StartDate: core.NewDate(2024, 2, 1), EndDate: &before}, MsgEndBeforeStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, tt.in)
			assert.Equal(t, tt.want, validationMessage(t, err))
		})
	}
}

func TestCreateAndUpdateExpense(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newTestService(t, pub)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, core.ExpenseGroup{Name: "Casa"})
	require.NoError(t, err)

	// The group name comes from storage, not the request.
	created, err := svc.CreateExpense(ctx, core.Expense{
		Name:      "Luz",
		Amount:    decimal.RequireFromString("120.35"),
		Group:     core.ExpenseGroup{ID: g.ID, Name: "ignored"},
		StartDate: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Casa", created.Group.Name)

	created.Amount = decimal.RequireFromString("130")
	updated, err := svc.UpdateExpense(ctx, created.ID, created)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(130)))

	stored, err := repo.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(130)))

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.EventExpenseCreated, pub.events[1].Type)
	assert.Equal(t, amqp.EventExpenseUpdated, pub.events[2].Type)

	_, err = svc.UpdateExpense(ctx, 999, created)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, repo := newTestService(t, pub)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, core.ExpenseGroup{Name: "Lazer"})
	require.NoError(t, err)

	groups, err := repo.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ExpenseGroup{g}, groups)
	assert.Len(t, pub.events, 1)
}

func TestListExpensesByPeriod(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, core.ExpenseGroup{Name: "Casa"})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, core.Expense{Name: "Luz", Group: g, StartDate: core.NewDate(2024, 3, 5)})
	require.NoError(t, err)

	march, err := svc.ListExpensesByPeriod(ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Len(t, march, 1)

	april, err := svc.ListExpensesByPeriod(ctx, core.Period{Year: 2024, Month: 4})
	require.NoError(t, err)
	assert.Len(t, april, 1, "open-ended expenses keep running")

	all, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
