package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// Store is the persistence the service writes through.
type Store interface {
	ListGroups(ctx context.Context) ([]core.ExpenseGroup, error)
	GetGroup(ctx context.Context, id int64) (core.ExpenseGroup, error)
	CreateGroup(ctx context.Context, g core.ExpenseGroup) (core.ExpenseGroup, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, e amqp.GastoEvent) error
}

// ValidationError is a rejected request; Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	MsgNameRequired      = "Informe o nome do gasto."
	MsgGroupNameRequired = "Informe o nome do grupo."
	MsgGroupRequired     = "Selecione um grupo de gastos."
	MsgGroupNotFound     = "Grupo de gastos não encontrado."
	MsgGroupExists       = "Já existe um grupo com esse nome."
	MsgEndBeforeStart    = "A data de fim não pode ser anterior à data de início."
)

// GastoService validates writes, persists them and publishes a change event
// once the write is committed. Publishing is best effort.
type GastoService struct {
	store     Store
	publisher Publisher
	logger    *log.Logger
}

// NewGastoService builds the service. publisher may be nil.
func NewGastoService(store Store, publisher Publisher, logger *log.Logger) *GastoService {
	if logger == nil {
		logger = log.Discard()
	}
	return &GastoService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAPI),
	}
}

func (s *GastoService) ListGroups(ctx context.Context) ([]core.ExpenseGroup, error) {
	return s.store.ListGroups(ctx)
}

func (s *GastoService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *GastoService) ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	return s.store.ListExpensesByPeriod(ctx, p)
}

func (s *GastoService) CreateGroup(ctx context.Context, g core.ExpenseGroup) (core.ExpenseGroup, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return core.ExpenseGroup{}, &ValidationError{Message: MsgGroupNameRequired}
	}

	created, err := s.store.CreateGroup(ctx, g)
	if errors.Is(err, storage.ErrDuplicate) {
		return core.ExpenseGroup{}, &ValidationError{Message: MsgGroupExists}
	}
	if err != nil {
		return core.ExpenseGroup{}, fmt.Errorf("save group: %w", err)
	}

	s.publish(ctx, amqp.NewGroupEvent(created))
	return created, nil
}

// CreateExpense stores e under the group named by e.Group.ID.
func (s *GastoService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := s.validateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, created))
	return created, nil
}

// UpdateExpense replaces expense id. A missing expense yields storage.ErrNotFound.
func (s *GastoService) UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	if _, err := s.store.GetExpense(ctx, id); err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	e, err := s.validateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseUpdated, updated))
	return updated, nil
}

// validateExpense checks e and fills in the stored group name.
func (s *GastoService) validateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return e, &ValidationError{Message: MsgNameRequired}
	}
	if e.Group.ID == 0 {
		return e, &ValidationError{Message: MsgGroupRequired}
	}
	if e.HasEndDate() && !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate.Time) {
		return e, &ValidationError{Message: MsgEndBeforeStart}
	}

	group, err := s.store.GetGroup(ctx, e.Group.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return e, &ValidationError{Message: MsgGroupNotFound}
	}
	if err != nil {
		return e, fmt.Errorf("load group: %w", err)
	}
	e.Group = group
	return e, nil
}

func (s *GastoService) publish(ctx context.Context, event amqp.GastoEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping event", "event", event.Type)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The write is committed; a lost event is only logged.
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			"event", event.Type,
			log.FieldExpenseID, event.ID,
			log.FieldError, err,
			log.FieldOperation, log.OpPublish)
	}
}
