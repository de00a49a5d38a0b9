package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// EventType doubles as the routing key on the exchange.
type EventType string

const (
	EventExpenseCreated EventType = "gasto.cadastrado"
	EventExpenseUpdated EventType = "gasto.atualizado"
	EventGroupCreated   EventType = "grupo.cadastrado"
)

// AllEventTypes lists every routing key a consumer queue is bound to.
var AllEventTypes = []EventType{EventExpenseCreated, EventExpenseUpdated, EventGroupCreated}

// GastoEvent announces a change in the backend. It carries identifiers and
// a short summary; consumers fetch the full record when they need it.
type GastoEvent struct {
	Type      EventType        `json:"tipo"`
	ID        int64            `json:"id"`
	Name      string           `json:"nome"`
	Amount    *decimal.Decimal `json:"valor,omitempty"`
	GroupID   int64            `json:"grupoGastosId,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewExpenseEvent describes a created or updated expense.
func NewExpenseEvent(t EventType, e core.Expense) GastoEvent {
	amount := e.Amount
	return GastoEvent{
		Type:      t,
		ID:        e.ID,
		Name:      e.Name,
		Amount:    &amount,
		GroupID:   e.Group.ID,
		Timestamp: time.Now().UTC(),
	}
}

func NewGroupEvent(g core.ExpenseGroup) GastoEvent {
	return GastoEvent{
		Type:      EventGroupCreated,
		ID:        g.ID,
		Name:      g.Name,
		Timestamp: time.Now().UTC(),
	}
}

func (e GastoEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes a delivery body and rejects unknown event types.
func EventFromJSON(data []byte) (GastoEvent, error) {
	var e GastoEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return GastoEvent{}, err
	}
	switch e.Type {
	case EventExpenseCreated, EventExpenseUpdated, EventGroupCreated:
		return e, nil
	}
	return GastoEvent{}, fmt.Errorf("unknown event type %q", e.Type)
}
