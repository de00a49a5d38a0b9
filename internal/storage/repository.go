package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"gastos/internal/core"
	"gastos/internal/log"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

const expenseColumns = `
	g.id, g.nome, g.descricao, g.valor, g.grupo_gastos_id,
	gg.nome AS grupo_nome, g.data_inicio, g.data_fim, g.parcela`

type expenseRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"nome"`
	Description string         `db:"descricao"`
	Amount      string         `db:"valor"`
	GroupID     int64          `db:"grupo_gastos_id"`
	GroupName   string         `db:"grupo_nome"`
	StartDate   sql.NullString `db:"data_inicio"`
	EndDate     sql.NullString `db:"data_fim"`
	Installment string         `db:"parcela"`
}

func (r expenseRow) toCore() (core.Expense, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", r.ID, core.ErrInvalidAmount)
	}
	e := core.Expense{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Amount:      amount,
		Group:       core.ExpenseGroup{ID: r.GroupID, Name: r.GroupName},
		Installment: r.Installment,
	}
	if r.StartDate.Valid && r.StartDate.String != "" {
		if e.StartDate, err = core.ParseDate(r.StartDate.String); err != nil {
			return core.Expense{}, fmt.Errorf("expense %d start date: %w", r.ID, err)
		}
	}
	if r.EndDate.Valid {
		if e.EndDate, err = core.ParseOptionalDate(r.EndDate.String); err != nil {
			return core.Expense{}, fmt.Errorf("expense %d end date: %w", r.ID, err)
		}
	}
	return e, nil
}

// SQLiteRepository stores groups and expenses for the development backend.
type SQLiteRepository struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.ExpenseGroup, error) {
	var groups []core.ExpenseGroup
	err := r.db.SelectContext(ctx, &groups, `SELECT id, nome AS name FROM grupo_gastos ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []core.ExpenseGroup{}
	}
	return groups, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id int64) (core.ExpenseGroup, error) {
	var g core.ExpenseGroup
	err := r.db.GetContext(ctx, &g, `SELECT id, nome AS name FROM grupo_gastos WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseGroup{}, fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.ExpenseGroup{}, fmt.Errorf("get group %d: %w", id, err)
	}
	return g, nil
}

// CreateGroup inserts g and returns it with its new id. Names are unique.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.ExpenseGroup) (core.ExpenseGroup, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO grupo_gastos (nome) VALUES (?)`, g.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseGroup{}, fmt.Errorf("group %q: %w", g.Name, ErrDuplicate)
		}
		return core.ExpenseGroup{}, fmt.Errorf("create group: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.ExpenseGroup{}, fmt.Errorf("create group: %w", err)
	}

	r.logger.InfoContext(ctx, "Group saved", "id", g.ID, log.FieldGroup, g.Name)
	return g, nil
}

// ListExpenses returns every expense, newest start date first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.selectExpenses(ctx, `SELECT`+expenseColumns+`
		FROM gastos g JOIN grupo_gastos gg ON gg.id = g.grupo_gastos_id
		ORDER BY g.data_inicio DESC, g.id`)
}

// ListExpensesByPeriod returns expenses whose [data_inicio, data_fim]
// interval overlaps the month; a missing end date means still running.
// Expenses without a start date never match a month.
func (r *SQLiteRepository) ListExpensesByPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	first, last := p.Bounds()
	return r.selectExpenses(ctx, `SELECT`+expenseColumns+`
		FROM gastos g JOIN grupo_gastos gg ON gg.id = g.grupo_gastos_id
		WHERE g.data_inicio IS NOT NULL AND g.data_inicio <= ?
		  AND (g.data_fim IS NULL OR g.data_fim >= ?)
		ORDER BY g.data_inicio, g.id`, last.String(), first.String())
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var row expenseRow
	err := r.db.GetContext(ctx, &row, `SELECT`+expenseColumns+`
		FROM gastos g JOIN grupo_gastos gg ON gg.id = g.grupo_gastos_id
		WHERE g.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return row.toCore()
}

// CreateExpense inserts e and returns it with its new id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO gastos (nome, descricao, valor, grupo_gastos_id, data_inicio, data_fim, parcela)
		VALUES (:nome, :descricao, :valor, :grupo_gastos_id, :data_inicio, :data_fim, :parcela)`,
		toParams(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved", log.NewFields().
		WithExpense(e.ID, e.Name, e.Amount.StringFixed(2), e.Group.Name).ToSlice()...)
	return e, nil
}

// UpdateExpense overwrites every column of expense e.ID.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	params := toParams(e)
	params["id"] = e.ID
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE gastos SET
			nome = :nome, descricao = :descricao, valor = :valor,
			grupo_gastos_id = :grupo_gastos_id, data_inicio = :data_inicio,
			data_fim = :data_fim, parcela = :parcela, updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`, params)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Expense updated", log.FieldExpenseID, e.ID)
	return e, nil
}

func (r *SQLiteRepository) selectExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toParams(e core.Expense) map[string]any {
	params := map[string]any{
		"nome":            e.Name,
		"descricao":       e.Description,
		"valor":           e.Amount.String(),
		"grupo_gastos_id": e.Group.ID,
		"data_inicio":     nil,
		"data_fim":        nil,
		"parcela":         e.Installment,
	}
	if !e.StartDate.IsZero() {
		params["data_inicio"] = e.StartDate.String()
	}
	if e.HasEndDate() {
		params["data_fim"] = e.EndDate.String()
	}
	return params
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
