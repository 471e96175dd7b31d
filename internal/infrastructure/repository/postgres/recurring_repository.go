package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

type RecurringRepository struct {
	db *sql.DB
}

func NewRecurringRepository(db *sql.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func (r *RecurringRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030402)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS recurring_items (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL,
	currency TEXT NOT NULL DEFAULT 'EUR',
	description TEXT,
	category TEXT,
	frequency TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ,
	next_date TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recurring_due ON recurring_items(next_date) WHERE active;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const recurringColumns = `id, type, amount, currency, description, category, frequency, start_date, end_date, next_date, active, created_at, updated_at`

func (r *RecurringRepository) CreateRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt

	_, err := r.db.ExecContext(ctx, `
INSERT INTO recurring_items (`+recurringColumns+`
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		item.ID, string(item.Type), item.Amount, item.Currency, item.Description, item.Category,
		string(item.Frequency), item.StartDate, item.EndDate, item.NextDate, item.Active,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recurring item: %w", err)
	}
	return nil
}

func (r *RecurringRepository) GetRecurringItem(ctx context.Context, id string) (*domain.RecurringItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recurringColumns+`
FROM recurring_items
WHERE id = $1
`, id)

	item, err := scanRecurringItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *RecurringRepository) ListDueItems(ctx context.Context, now time.Time, limit int) ([]domain.RecurringItem, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+recurringColumns+`
FROM recurring_items
WHERE active AND next_date <= $1
ORDER BY next_date ASC
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}
	defer rows.Close()

	var out []domain.RecurringItem
	for rows.Next() {
		item, err := scanRecurringItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (r *RecurringRepository) UpdateNextDate(ctx context.Context, id string, next time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE recurring_items SET next_date = $1, updated_at = $2 WHERE id = $3
`, next, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update next date: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *RecurringRepository) MarkInactive(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE recurring_items SET active = FALSE, updated_at = $1 WHERE id = $2
`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark inactive: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func scanRecurringItem(row rowScanner) (*domain.RecurringItem, error) {
	var item domain.RecurringItem
	var itemType, frequency string
	var description, category sql.NullString
	var endDate sql.NullTime

	err := row.Scan(
		&item.ID, &itemType, &item.Amount, &item.Currency, &description, &category,
		&frequency, &item.StartDate, &endDate, &item.NextDate, &item.Active,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan recurring item: %w", domain.ErrMalformedRecord, err)
	}

	item.Type = domain.TransactionType(itemType)
	item.Frequency = domain.Frequency(frequency)
	item.Description = description.String
	item.Category = category.String
	if endDate.Valid {
		end := endDate.Time
		item.EndDate = &end
	}
	return &item, nil
}
