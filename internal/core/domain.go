package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func init() {
	// The backend reads valor as a JSON number.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	// Date is a calendar day exchanged as "YYYY-MM-DD".
	Date struct {
		time.Time
	}

	// ExpenseGroup is a named category used to bucket expenses.
	ExpenseGroup struct {
		ID   int64  `json:"id"`
		Name string `json:"nome"`
	}

	// Expense is a single dated outflow as stored by the backend.
	Expense struct {
		ID          int64           `json:"id"`
		Name        string          `json:"nome"`
		Description string          `json:"descricao"`
		Amount      decimal.Decimal `json:"valor"`
		Group       ExpenseGroup    `json:"grupoGastos"`
		StartDate   Date            `json:"dataInicio"`
		EndDate     *Date           `json:"dataFim"`
		Installment string          `json:"parcela"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "YYYY-MM-DD" and ISO timestamps that start with it.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseOptionalDate maps the empty string and the "0" placeholder to nil.
func ParseOptionalDate(s string) (*Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clone returns a copy that shares no pointers with e.
func (e Expense) Clone() Expense {
	out := e
	if e.EndDate != nil {
		end := *e.EndDate
		out.EndDate = &end
	}
	return out
}

// HasEndDate reports whether the expense ends on a concrete day.
func (e Expense) HasEndDate() bool {
	return e.EndDate != nil && !e.EndDate.IsZero()
}
