package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Period is the month/year pair that scopes an expense listing.
type Period struct {
	Year  int
	Month int // 1-12
}

func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 || year < 1 {
		return Period{}, fmt.Errorf("%w: month=%d year=%d", ErrInvalidPeriod, month, year)
	}
	return Period{Year: year, Month: month}, nil
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// ParseMonthInput parses the "YYYY-MM" value produced by a month picker.
func ParseMonthInput(s string) (Period, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return parseParts(year, month, s)
}

// ParsePeriod parses the "MM-YYYY" form used in backend paths.
func ParsePeriod(s string) (Period, error) {
	month, year, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return parseParts(year, month, s)
}

func parseParts(year, month, raw string) (Period, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return NewPeriod(y, m)
}

// String renders the period as "MM-YYYY".
func (p Period) String() string {
	return fmt.Sprintf("%02d-%d", p.Month, p.Year)
}

// MonthString returns the zero-padded month, e.g. "03".
func (p Period) MonthString() string {
	return fmt.Sprintf("%02d", p.Month)
}

// InputValue renders the period as "YYYY-MM" for a month picker.
func (p Period) InputValue() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Bounds returns the first and last day of the month.
func (p Period) Bounds() (Date, Date) {
	first := NewDate(p.Year, p.Month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}
