package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthInput(t *testing.T) {
	p, err := ParseMonthInput("2024-03")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: 3}, p)
	assert.Equal(t, "03-2024", p.String())
	assert.Equal(t, "03", p.MonthString())
	assert.Equal(t, "2024-03", p.InputValue())

	for _, bad := range []string{"", "2024", "2024-13", "2024-00", "abcd-01", "03-x"} {
		_, err := ParseMonthInput(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "input %q", bad)
	}
}

func TestParsePeriodPathForm(t *testing.T) {
	p, err := ParsePeriod("11-2023")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2023, Month: 11}, p)

	_, err = ParsePeriod("2023-11")
	assert.Error(t, err)
}

func TestPeriodBounds(t *testing.T) {
	first, last := Period{Year: 2024, Month: 2}.Bounds()
	assert.Equal(t, "2024-02-01", first.String())
	assert.Equal(t, "2024-02-29", last.String())
}

func TestCurrentPeriod(t *testing.T) {
	p := CurrentPeriod(time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, Period{Year: 2025, Month: 7}, p)
}
