package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func TestMemoryStoreSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grupos.txt")
	require.NoError(t, os.WriteFile(path, []byte("# grupos\nCasa\n\nLazer\nCasa\n"), 0o644))

	groups, err := NewMemoryStoreFromFile(path).ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ExpenseGroup{{ID: 1, Name: "Casa"}, {ID: 2, Name: "Lazer"}}, groups)

	groups, err = NewMemoryStoreFromFile(filepath.Join(t.TempDir(), "missing.txt")).ListGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 3)
}

func TestMemoryStoreMatchesSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g, err := s.CreateGroup(ctx, core.ExpenseGroup{Name: "Fixos"})
	require.NoError(t, err)
	_, err = s.CreateGroup(ctx, core.ExpenseGroup{Name: "Fixos"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.GetGroup(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateExpense(ctx, core.Expense{Name: "Órfão", Group: core.ExpenseGroup{ID: 99}})
	assert.ErrorIs(t, err, ErrNotFound)

	feb := core.NewDate(2024, 2, 29)
	for _, e := range []core.Expense{
		{Name: "Aluguel", StartDate: core.NewDate(2023, 1, 5)},
		{Name: "Curso", StartDate: core.NewDate(2024, 1, 1), EndDate: &feb},
		{Name: "Viagem", StartDate: core.NewDate(2024, 3, 31)},
		{Name: "Sem data"},
	} {
		e.Group = core.ExpenseGroup{ID: g.ID}
		e.Amount = decimal.NewFromInt(1)
		_, err := s.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	march, err := s.ListExpensesByPeriod(ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, "Aluguel", march[0].Name)
	assert.Equal(t, "Fixos", march[0].Group.Name)
	assert.Equal(t, "Viagem", march[1].Name)

	edited := march[1]
	edited.Name = "Viagem longa"
	_, err = s.UpdateExpense(ctx, edited)
	require.NoError(t, err)
	got, err := s.GetExpense(ctx, edited.ID)
	require.NoError(t, err)
	assert.Equal(t, "Viagem longa", got.Name)

	_, err = s.UpdateExpense(ctx, core.Expense{ID: 404, Group: g})
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
