package core

import "github.com/shopspring/decimal"

// GroupedExpenses buckets expenses by group display name. Names keep the
// order in which each group was first seen.
type GroupedExpenses struct {
	names   []string
	buckets map[string][]Expense
}

// TotalByCategory maps a group name to the sum of its expenses.
type TotalByCategory map[string]decimal.Decimal

// CategoryTotal is one row of an Overview.
type CategoryTotal struct {
	Name     string
	Expenses []Expense
	Total    decimal.Decimal
}

// Overview is the grouped and totalled view of one listing.
type Overview struct {
	Period     Period
	Total      decimal.Decimal
	ByCategory []CategoryTotal
}

// GroupExpenses folds the list into buckets keyed by Group.Name.
// Every input expense lands in exactly one bucket.
func GroupExpenses(expenses []Expense) GroupedExpenses {
	g := GroupedExpenses{buckets: make(map[string][]Expense)}
	for _, e := range expenses {
		name := e.Group.Name
		if _, ok := g.buckets[name]; !ok {
			g.names = append(g.names, name)
		}
		g.buckets[name] = append(g.buckets[name], e)
	}
	return g
}

// Names returns the bucket keys in first-seen order.
func (g GroupedExpenses) Names() []string {
	return append([]string(nil), g.names...)
}

// Expenses returns the bucket for name, or nil.
func (g GroupedExpenses) Expenses(name string) []Expense {
	return g.buckets[name]
}

func (g GroupedExpenses) Len() int {
	return len(g.names)
}

// CalculateTotals sums each bucket and accumulates the grand total from the
// bucket sums.
func CalculateTotals(g GroupedExpenses) (TotalByCategory, decimal.Decimal) {
	totals := make(TotalByCategory, len(g.names))
	grand := decimal.Zero
	for _, name := range g.names {
		sum := decimal.Zero
		for _, e := range g.buckets[name] {
			sum = sum.Add(e.Amount)
		}
		totals[name] = sum
		grand = grand.Add(sum)
	}
	return totals, grand
}

// BuildOverview lays out grouped expenses and totals in display order.
func BuildOverview(p Period, g GroupedExpenses, totals TotalByCategory, grand decimal.Decimal) Overview {
	ov := Overview{Period: p, Total: grand}
	for _, name := range g.names {
		ov.ByCategory = append(ov.ByCategory, CategoryTotal{
			Name:     name,
			Expenses: append([]Expense(nil), g.buckets[name]...),
			Total:    totals[name],
		})
	}
	return ov
}
