package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func resolveFixture(id int64) core.ExpenseGroup {
	if id == 7 {
		return core.ExpenseGroup{ID: 7, Name: "Saúde"}
	}
	return core.ExpenseGroup{}
}

func TestParseExpenseForm(t *testing.T) {
	form := url.Values{
		"nome":        {"  Consulta\x00 "},
		"descricao":   {"Dermatologista"},
		"valor":       {"R$ 1.250,00"},
		"grupoGastos": {"7"},
		"dataInicio":  {"2024-05-02"},
		"dataFim":     {"2024-08-02"},
		"parcela":     {"1/3"},
	}

	e, err := ParseExpenseForm(form, core.Expense{ID: 15}, resolveFixture)
	require.NoError(t, err)
	assert.Equal(t, int64(15), e.ID, "fields outside the form come from base")
	assert.Equal(t, "Consulta", e.Name)
	assert.Equal(t, "Dermatologista", e.Description)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, core.ExpenseGroup{ID: 7, Name: "Saúde"}, e.Group)
	assert.Equal(t, core.NewDate(2024, 5, 2), e.StartDate)
	require.NotNil(t, e.EndDate)
	assert.Equal(t, core.NewDate(2024, 8, 2), *e.EndDate)
	assert.Equal(t, "1/3", e.Installment)
}

func TestParseExpenseFormEmptyFields(t *testing.T) {
	end := core.NewDate(2024, 1, 1)
	base := core.Expense{Group: core.ExpenseGroup{ID: 7, Name: "Saúde"}, EndDate: &end}

	e, err := ParseExpenseForm(url.Values{}, base, resolveFixture)
	require.NoError(t, err)
	assert.True(t, e.Amount.IsZero())
	assert.Equal(t, core.ExpenseGroup{}, e.Group)
	assert.True(t, e.StartDate.IsZero())
	assert.Nil(t, e.EndDate)
}

func TestParseExpenseFormCollectsErrors(t *testing.T) {
	form := url.Values{
		"nome":        {"Uber"},
		"valor":       {"doze"},
		"grupoGastos": {"x"},
		"dataInicio":  {"02/05/2024"},
		"dataFim":     {"ontem"},
	}

	e, err := ParseExpenseForm(form, core.Expense{}, resolveFixture)
	require.Error(t, err)
	var ferr *FormError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, []string{msgBadAmount, msgBadGroup, msgBadStartDate, msgBadEndDate}, ferr.Messages)
	assert.Equal(t, "Uber", e.Name, "readable fields are still bound")
	assert.Equal(t, ferr.Error(), UserFacing(err))
}

func TestParseGroupForm(t *testing.T) {
	g := ParseGroupForm(url.Values{"nome": {" Transporte\t"}})
	assert.Equal(t, core.ExpenseGroup{Name: "Transporte"}, g)
}

func TestParseMonthField(t *testing.T) {
	v, err := ParseMonthField(url.Values{"mes": {" 2024-11 "}})
	require.NoError(t, err)
	assert.Equal(t, "2024-11", v)

	_, err = ParseMonthField(url.Values{"mes": {"2024-13"}})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
	assert.Equal(t, msgBadMonth, UserFacing(err))
}

func TestParseExpenseID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var gotErr error
	mux.HandleFunc("POST /g/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParseExpenseID(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/g/42", nil))
	assert.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	for _, bad := range []string{"0", "-3", "abc"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/g/"+bad, nil))
		assert.Error(t, gotErr, bad)
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "a\tb", sanitizeInput(" a\tb\x07 "))
	assert.Equal(t, "", sanitizeInput("   "))
}
