package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gastos/internal/core"
)

// MemoryStore keeps groups and expenses in process memory. It answers the
// same queries as SQLiteRepository and is meant for demos and tests.
type MemoryStore struct {
	mu       sync.Mutex
	groups   []core.ExpenseGroup
	expenses []core.Expense
	nextID   int64
}

// NewMemoryStore creates a store seeded with the given group names.
func NewMemoryStore(groupNames ...string) *MemoryStore {
	s := &MemoryStore{}
	for _, name := range dedupe(groupNames) {
		s.nextID++
		s.groups = append(s.groups, core.ExpenseGroup{ID: s.nextID, Name: name})
	}
	return s
}

// NewMemoryStoreFromFile seeds groups from a file with one name per line;
// blank lines and # comments are skipped. A missing file gives defaults.
func NewMemoryStoreFromFile(path string) *MemoryStore {
	names := readLines(path)
	if len(names) == 0 {
		names = []string{"Casa", "Alimentação", "Transporte"}
	}
	return NewMemoryStore(names...)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListGroups(context.Context) ([]core.ExpenseGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.ExpenseGroup{}, s.groups...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id int64) (core.ExpenseGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return core.ExpenseGroup{}, fmt.Errorf("group %d: %w", id, ErrNotFound)
}

func (s *MemoryStore) CreateGroup(_ context.Context, g core.ExpenseGroup) (core.ExpenseGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing.Name == g.Name {
			return core.ExpenseGroup{}, fmt.Errorf("group %q: %w", g.Name, ErrDuplicate)
		}
	}
	s.nextID++
	g.ID = s.nextID
	s.groups = append(s.groups, g)
	return g, nil
}

func (s *MemoryStore) ListExpenses(context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshotLocked(func(core.Expense) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate.Time) })
	return out, nil
}

// ListExpensesByPeriod applies the same overlap rule as the SQLite query.
func (s *MemoryStore) ListExpensesByPeriod(_ context.Context, p core.Period) ([]core.Expense, error) {
	first, last := p.Bounds()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshotLocked(func(e core.Expense) bool {
		if e.StartDate.IsZero() || e.StartDate.After(last.Time) {
			return false
		}
		return !e.HasEndDate() || !e.EndDate.Before(first.Time)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate.Time) })
	return out, nil
}

func (s *MemoryStore) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.withGroupLocked(s.expenses[i]), nil
	}
	return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
}

func (s *MemoryStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasGroupLocked(e.Group.ID) {
		return core.Expense{}, fmt.Errorf("create expense: group %d: %w", e.Group.ID, ErrNotFound)
	}
	s.nextID++
	e = e.Clone()
	e.ID = s.nextID
	s.expenses = append(s.expenses, e)
	return s.withGroupLocked(e), nil
}

func (s *MemoryStore) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(e.ID)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, ErrNotFound)
	}
	if !s.hasGroupLocked(e.Group.ID) {
		return core.Expense{}, fmt.Errorf("update expense: group %d: %w", e.Group.ID, ErrNotFound)
	}
	s.expenses[i] = e.Clone()
	return s.withGroupLocked(e), nil
}

func (s *MemoryStore) snapshotLocked(keep func(core.Expense) bool) []core.Expense {
	out := []core.Expense{}
	for _, e := range s.expenses {
		if keep(e) {
			out = append(out, s.withGroupLocked(e))
		}
	}
	return out
}

// withGroupLocked returns a copy of e carrying the current group name.
func (s *MemoryStore) withGroupLocked(e core.Expense) core.Expense {
	e = e.Clone()
	for _, g := range s.groups {
		if g.ID == e.Group.ID {
			e.Group = g
			break
		}
	}
	return e
}

func (s *MemoryStore) indexLocked(id int64) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) hasGroupLocked(id int64) bool {
	for _, g := range s.groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
