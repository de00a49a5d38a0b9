package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.New()
	return New(srv.URL, 5*time.Second, WithLogger(log.Discard()), WithMetrics(m)), m
}

func TestListExpensesUsesPeriodPath(t *testing.T) {
	var gotPath string
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `[{"id":1,"nome":"Mercado","valor":10.5,"grupoGastos":{"id":2,"nome":"Food"},"dataInicio":"2024-03-02","dataFim":null,"parcela":""}]`)
	})

	got, err := c.ListExpenses(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, "/gastos/listar/03-2024", gotPath)
	require.Len(t, got, 1)
	assert.Equal(t, "Food", got[0].Group.Name)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues(OpListExpenses, "success")))
}

func TestListAllExpensesAndGroups(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gastos/listar":
			_, _ = io.WriteString(w, `[]`)
		case "/grupo-gastos/listar":
			_, _ = io.WriteString(w, `[{"id":1,"nome":"Casa"},{"id":2,"nome":"Lazer"}]`)
		default:
			http.NotFound(w, r)
		}
	})

	all, err := c.ListAllExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ExpenseGroup{{ID: 1, Name: "Casa"}, {ID: 2, Name: "Lazer"}}, groups)
}

func TestCreateExpenseSendsFlatGroupIDAndNullEnd(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gastos/cadastrar", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	zeroEnd := core.Date{}
	err := c.CreateExpense(context.Background(), core.Expense{
		Name:      "Curso",
		Amount:    decimal.RequireFromString("300"),
		Group:     core.ExpenseGroup{ID: 4, Name: "Educação"},
		StartDate: core.NewDate(2024, 1, 5),
		EndDate:   &zeroEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, body["grupoGastosId"])
	assert.Nil(t, body["dataFim"])
	assert.Equal(t, 300.0, body["valor"])
	assert.Equal(t, "Curso", body["nome"])
	grupo, ok := body["grupoGastos"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Educação", grupo["nome"])
}

func TestUpdateExpenseUsesIDPath(t *testing.T) {
	var method, path string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	end := core.NewDate(2024, 6, 30)
	require.NoError(t, c.UpdateExpense(context.Background(), core.Expense{ID: 42, EndDate: &end}))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/gastos/atualizar/42", path)
}

func TestCreateGroup(t *testing.T) {
	var got core.ExpenseGroup
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grupo-gastos/cadastrar", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":9,"nome":"Saúde"}`)
	})
	require.NoError(t, c.CreateGroup(context.Background(), core.ExpenseGroup{Name: "Saúde"}))
	assert.Equal(t, "Saúde", got.Name)
}

func TestBackendErrorCarriesMessage(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":400,"error":"Bad Request","message":"Grupo de gastos não encontrado"}`)
	})

	err := c.CreateExpense(context.Background(), core.Expense{Name: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, OpCreateExpense, apiErr.Op)
	assert.Equal(t, "Grupo de gastos não encontrado", UserMessage(err, "fallback"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues(OpCreateExpense, "error")))
}

func TestBackendErrorWithoutMessageFallsBack(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	_, err := c.ListGroups(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Erro ao cadastrar o grupo", UserMessage(err, "Erro ao cadastrar o grupo"))
	assert.Contains(t, err.Error(), "500")
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, WithLogger(log.Discard()))
	_, err := c.ListExpenses(context.Background(), core.Period{Year: 2024, Month: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), OpListExpenses)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestMalformedResponseIsAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	})
	_, err := c.ListGroups(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, 5*time.Second, WithLogger(log.Discard()), WithCircuitBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := c.ListGroups(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.ListGroups(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "open breaker does not reach the backend")
	assert.Contains(t, err.Error(), OpListGroups)
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"nome obrigatório"}`)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, 5*time.Second, WithLogger(log.Discard()), WithCircuitBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		err := c.CreateGroup(context.Background(), core.ExpenseGroup{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "nome obrigatório", apiErr.Message)
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestCircuitBreakerIgnoresAbandonedCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = io.WriteString(w, `[{"id":1,"nome":"Casa"}]`)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, 5*time.Second, WithLogger(log.Discard()), WithCircuitBreaker(2, time.Minute))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := c.ListGroups(cancelled)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", c.BreakerState())

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := c.ListGroups(ctx)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, "closed", c.BreakerState())

	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestCircuitBreakerCountsClientTimeouts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, 20*time.Millisecond, WithLogger(log.Discard()), WithCircuitBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := c.ListGroups(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil, nil, nil)
	require.Error(t, err)

	c, err := FromAppConfig(&config.Config{
		APIBaseURL:      "http://backend:8080",
		RequestTimeout:  2 * time.Second,
		BreakerFailures: 3,
		BreakerCooldown: 10 * time.Second,
	}, log.Discard(), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8080", c.baseURL)
	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Equal(t, "closed", c.BreakerState())

	c, err = FromAppConfig(&config.Config{APIBaseURL: "http://backend"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "disabled", c.BreakerState())
}
