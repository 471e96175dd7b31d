package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TransactionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL,
	currency TEXT NOT NULL DEFAULT 'EUR',
	description TEXT,
	category TEXT,
	date TEXT NOT NULL,
	payment_date TEXT,
	due_date TEXT,
	start_date TEXT,
	end_date TEXT,
	recurring_id TEXT,
	document_id TEXT,
	tags JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);
CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category);
CREATE INDEX IF NOT EXISTS idx_transactions_search ON transactions
	USING GIN (to_tsvector('simple', coalesce(description, '') || ' ' || coalesce(category, '')));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const transactionColumns = `id, type, amount, currency, description, category, date, payment_date, due_date, start_date, end_date, recurring_id, document_id, tags, created_at, updated_at`

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	tagsJSON, err := json.Marshal(tx.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO transactions (`+transactionColumns+`
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		tx.ID, string(tx.Type), tx.Amount, tx.Currency, tx.Description, tx.Category,
		tx.Date, nullable(tx.PaymentDate), nullable(tx.DueDate), nullable(tx.StartDate), nullable(tx.EndDate),
		nullable(tx.RecurringID), nullable(tx.DocumentID), tagsJSON, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE id = $1
`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// ListTransactions returns records ordered by date descending. The date
// column stores ISO strings, so lexicographic comparison matches calendar
// order.
func (r *TransactionRepository) ListTransactions(ctx context.Context, filters domain.FilterSet, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Type != "" {
		conditions = append(conditions, "type = "+arg(string(filters.Type)))
	}
	if filters.Category != "" {
		conditions = append(conditions, "category = "+arg(filters.Category))
	}
	if filters.DateRange != nil {
		conditions = append(conditions, "date >= "+arg(filters.DateRange.Start.Format("2006-01-02")))
		conditions = append(conditions, "date <= "+arg(filters.DateRange.End.Format("2006-01-02")))
	}
	if filters.MinAmount != nil {
		conditions = append(conditions, "amount >= "+arg(*filters.MinAmount))
	}
	if filters.MaxAmount != nil {
		conditions = append(conditions, "amount <= "+arg(*filters.MaxAmount))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// TextSearch returns ids of records whose description or category matches
// the query, best rank first.
func (r *TransactionRepository) TextSearch(ctx context.Context, query string, txType domain.TransactionType, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := `
SELECT id
FROM transactions
WHERE to_tsvector('simple', coalesce(description, '') || ' ' || coalesce(category, ''))
	@@ plainto_tsquery('simple', $1)
`
	args := []any{query}
	if txType != "" {
		sqlQuery += " AND type = $2"
		args = append(args, string(txType))
	}
	sqlQuery += fmt.Sprintf(`
ORDER BY ts_rank(to_tsvector('simple', coalesce(description, '') || ' ' || coalesce(category, '')),
	plainto_tsquery('simple', $1)) DESC, date DESC
LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan text search id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType string
	var paymentDate, dueDate, startDate, endDate, recurringID, documentID sql.NullString
	var description, category sql.NullString
	var tagsJSON []byte

	err := row.Scan(
		&tx.ID, &txType, &tx.Amount, &tx.Currency, &description, &category,
		&tx.Date, &paymentDate, &dueDate, &startDate, &endDate,
		&recurringID, &documentID, &tagsJSON, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan transaction: %w", domain.ErrMalformedRecord, err)
	}

	tx.Type = domain.TransactionType(txType)
	tx.Description = description.String
	tx.Category = category.String
	tx.PaymentDate = paymentDate.String
	tx.DueDate = dueDate.String
	tx.StartDate = startDate.String
	tx.EndDate = endDate.String
	tx.RecurringID = recurringID.String
	tx.DocumentID = documentID.String
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &tx.Tags); err != nil {
			return nil, fmt.Errorf("%w: unmarshal tags: %w", domain.ErrMalformedRecord, err)
		}
	}
	return &tx, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
