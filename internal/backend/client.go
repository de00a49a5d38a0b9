// Package backend is the data-fetch layer: a thin JSON client for the
// expense REST API. It never retries and never caches.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/metrics"
)

const maxErrorBody = 64 << 10

// Operation names used in logs, metrics and errors.
const (
	OpListExpenses    = "list_expenses"
	OpListAllExpenses = "list_all_expenses"
	OpListGroups      = "list_groups"
	OpCreateExpense   = "create_expense"
	OpUpdateExpense   = "update_expense"
	OpCreateGroup     = "create_group"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
	metrics *metrics.Metrics
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentBackend) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for the backend rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  log.New(log.Config{Component: log.ComponentBackend}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// expensePayload is the write body: the expense plus a flat group id.
type expensePayload struct {
	core.Expense
	GroupID int64 `json:"grupoGastosId"`
}

func newExpensePayload(e core.Expense) expensePayload {
	e = e.Clone()
	if !e.HasEndDate() {
		e.EndDate = nil
	}
	return expensePayload{Expense: e, GroupID: e.Group.ID}
}

// ListExpenses implements ExpenseLister
func (c *Client) ListExpenses(ctx context.Context, p core.Period) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, OpListExpenses, http.MethodGet, "/gastos/listar/"+p.String(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllExpenses implements ExpenseLister
func (c *Client) ListAllExpenses(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, OpListAllExpenses, http.MethodGet, "/gastos/listar", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListGroups implements GroupLister
func (c *Client) ListGroups(ctx context.Context) ([]core.ExpenseGroup, error) {
	var out []core.ExpenseGroup
	if err := c.do(ctx, OpListGroups, http.MethodGet, "/grupo-gastos/listar", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExpense implements ExpenseWriter
func (c *Client) CreateExpense(ctx context.Context, e core.Expense) error {
	return c.do(ctx, OpCreateExpense, http.MethodPost, "/gastos/cadastrar", newExpensePayload(e), nil)
}

// UpdateExpense implements ExpenseWriter
func (c *Client) UpdateExpense(ctx context.Context, e core.Expense) error {
	path := "/gastos/atualizar/" + strconv.FormatInt(e.ID, 10)
	return c.do(ctx, OpUpdateExpense, http.MethodPut, path, newExpensePayload(e), nil)
}

// CreateGroup implements GroupWriter
func (c *Client) CreateGroup(ctx context.Context, g core.ExpenseGroup) error {
	return c.do(ctx, OpCreateGroup, http.MethodPost, "/grupo-gastos/cadastrar", g, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	url := c.baseURL + path
	defer func() {
		elapsed := time.Since(start)
		c.metrics.ObserveBackend(op, elapsed, err)
		if err != nil {
			c.logger.ErrorContext(ctx, "Backend request failed",
				log.FieldOperation, op,
				log.FieldMethod, method,
				log.FieldURL, url,
				log.FieldDuration, elapsed.Milliseconds(),
				log.FieldError, err)
			return
		}
		c.logger.DebugContext(ctx, "Backend request completed",
			log.FieldOperation, op,
			log.FieldMethod, method,
			log.FieldURL, url,
			log.FieldDuration, elapsed.Milliseconds())
	}()

	if c.breaker == nil {
		return c.roundTrip(ctx, op, method, url, in, out)
	}
	_, err = c.breaker.Execute(func() (any, error) {
		err := c.roundTrip(ctx, op, method, url, in, out)
		if err != nil && ctx.Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var gone *callerGoneError
	if errors.As(err, &gone) {
		return gone.err
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(op, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
