package backend

import (
	"context"

	"gastos/internal/core"
)

// Ports consumed by the view-state layer.
type (
	ExpenseLister interface {
		// ListExpenses returns the expenses of one month.
		ListExpenses(ctx context.Context, p core.Period) ([]core.Expense, error)
		// ListAllExpenses returns every expense, unfiltered.
		ListAllExpenses(ctx context.Context) ([]core.Expense, error)
	}

	GroupLister interface {
		ListGroups(ctx context.Context) ([]core.ExpenseGroup, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) error
		UpdateExpense(ctx context.Context, e core.Expense) error
	}

	GroupWriter interface {
		CreateGroup(ctx context.Context, g core.ExpenseGroup) error
	}

	// API is everything the front-end needs from the expense backend.
	API interface {
		ExpenseLister
		GroupLister
		ExpenseWriter
		GroupWriter
	}
)
