package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exp(id int64, amount string, group string) Expense {
	return Expense{
		ID:     id,
		Name:   "e",
		Amount: decimal.RequireFromString(amount),
		Group:  ExpenseGroup{ID: id * 10, Name: group},
	}
}

func TestGroupExpensesAndTotals(t *testing.T) {
	list := []Expense{exp(1, "10", "Food"), exp(2, "5", "Food"), exp(3, "20", "Rent")}

	g := GroupExpenses(list)
	assert.Equal(t, []string{"Food", "Rent"}, g.Names())
	assert.Len(t, g.Expenses("Food"), 2)
	assert.Len(t, g.Expenses("Rent"), 1)

	totals, grand := CalculateTotals(g)
	assert.True(t, totals["Food"].Equal(decimal.NewFromInt(15)), "Food=%s", totals["Food"])
	assert.True(t, totals["Rent"].Equal(decimal.NewFromInt(20)), "Rent=%s", totals["Rent"])
	assert.True(t, grand.Equal(decimal.NewFromInt(35)), "grand=%s", grand)
}

func TestGroupExpensesPartitionsInput(t *testing.T) {
	list := []Expense{
		exp(1, "1.10", "B"), exp(2, "2.20", "A"), exp(3, "3.30", "B"),
		exp(4, "4.40", "C"), exp(5, "5.50", "A"), exp(6, "0.01", ""),
	}
	g := GroupExpenses(list)

	seen := map[int64]int{}
	for _, name := range g.Names() {
		for _, e := range g.Expenses(name) {
			assert.Equal(t, name, e.Group.Name)
			seen[e.ID]++
		}
	}
	require.Len(t, seen, len(list))
	for id, n := range seen {
		assert.Equalf(t, 1, n, "expense %d seen %d times", id, n)
	}
	assert.Equal(t, []string{"B", "A", "C", ""}, g.Names())
}

func TestGrandTotalMatchesFlatSum(t *testing.T) {
	list := []Expense{
		exp(1, "0.10", "X"), exp(2, "0.20", "Y"), exp(3, "1234.56", "X"), exp(4, "-3.00", "Z"),
	}
	flat := decimal.Zero
	for _, e := range list {
		flat = flat.Add(e.Amount)
	}
	_, grand := CalculateTotals(GroupExpenses(list))
	assert.True(t, flat.Equal(grand), "flat=%s grand=%s", flat, grand)
}

func TestEmptyList(t *testing.T) {
	g := GroupExpenses(nil)
	assert.Equal(t, 0, g.Len())
	totals, grand := CalculateTotals(g)
	assert.Empty(t, totals)
	assert.True(t, grand.IsZero())
}

func TestBuildOverviewKeepsOrder(t *testing.T) {
	g := GroupExpenses([]Expense{exp(1, "3", "Rent"), exp(2, "4", "Food"), exp(3, "1", "Rent")})
	totals, grand := CalculateTotals(g)
	ov := BuildOverview(Period{Year: 2024, Month: 3}, g, totals, grand)

	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, "Rent", ov.ByCategory[0].Name)
	assert.True(t, ov.ByCategory[0].Total.Equal(decimal.NewFromInt(4)))
	assert.Len(t, ov.ByCategory[0].Expenses, 2)
	assert.Equal(t, "Food", ov.ByCategory[1].Name)
	assert.True(t, ov.Total.Equal(decimal.NewFromInt(8)))
}
