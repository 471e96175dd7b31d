package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// bareAmountPattern picks the first standalone number out of free text when
// the extraction model failed to produce one. Comma decimals are accepted.
var bareAmountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Transactions owns the record lifecycle: create, fetch, list, delete, and
// creation from natural language through the intent classifier. Every
// created record is also embedded into the vector index so semantic search
// can find it.
type Transactions struct {
	records    ports.RecordStore
	recurring  ports.RecurringStore
	index      ports.VectorIndex
	embedder   ports.Embedder
	classifier ports.IntentClassifier
	logger     *slog.Logger
	now        func() time.Time
}

func NewTransactions(
	records ports.RecordStore,
	recurring ports.RecurringStore,
	index ports.VectorIndex,
	embedder ports.Embedder,
	classifier ports.IntentClassifier,
	logger *slog.Logger,
) *Transactions {
	return &Transactions{
		records:    records,
		recurring:  recurring,
		index:      index,
		embedder:   embedder,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

func (t *Transactions) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := t.now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if err := tx.Validate(); err != nil {
		return err
	}

	if err := t.records.CreateTransaction(ctx, tx); err != nil {
		return domain.WrapError(domain.ErrRecordUnavailable, "create transaction", err)
	}
	t.indexTransaction(ctx, tx)
	return nil
}

// indexTransaction embeds and upserts a record. Index failures degrade
// semantic search for this record but never fail the write, so they are
// only logged.
func (t *Transactions) indexTransaction(ctx context.Context, tx *domain.Transaction) {
	vectors, err := t.embedder.Embed(ctx, []string{searchText(tx)})
	if err != nil || len(vectors) == 0 {
		t.logger.Warn("embed transaction", "transaction_id", tx.ID, "error", err)
		return
	}
	metadata := map[string]any{
		"reference_type": "transaction",
		"type":           string(tx.Type),
		"category":       tx.Category,
		"amount":         tx.Amount.InexactFloat64(),
		"date":           tx.Date,
	}
	if err := t.index.Upsert(ctx, tx.ID, vectors[0], metadata); err != nil {
		t.logger.Warn("index transaction", "transaction_id", tx.ID, "error", err)
	}
}

func searchText(tx *domain.Transaction) string {
	parts := []string{string(tx.Type), tx.Description, tx.Category}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// CreateFromText extracts a transaction from a natural language sentence.
// When the sentence describes a recurring charge, the recurring item is
// registered alongside the first materialized transaction and both are
// returned.
func (t *Transactions) CreateFromText(ctx context.Context, text string) (*domain.Transaction, *domain.RecurringItem, error) {
	draft, err := t.classifier.ExtractTransaction(ctx, text)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrTemporary, "extract transaction", err)
	}

	amount := draft.Amount
	if amount.IsZero() {
		if match := bareAmountPattern.FindString(text); match != "" {
			parsed, perr := decimal.NewFromString(strings.ReplaceAll(match, ",", "."))
			if perr == nil {
				amount = parsed
			}
		}
	}
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: no positive amount found in %q", domain.ErrInvalidInput, text)
	}

	tx := &domain.Transaction{
		Type:        draft.Type,
		Amount:      amount,
		Currency:    draft.Currency,
		Description: draft.Description,
		Category:    draft.Category,
		Date:        draft.Date,
	}
	if tx.Date == "" {
		tx.Date = t.now().Format("2006-01-02")
	}

	var item *domain.RecurringItem
	if draft.Recurring && draft.Frequency != "" {
		item, err = t.registerRecurring(ctx, draft, amount)
		if err != nil {
			return nil, nil, err
		}
		tx.RecurringID = item.ID
	}

	if err := t.Create(ctx, tx); err != nil {
		return nil, nil, err
	}
	return tx, item, nil
}

func (t *Transactions) registerRecurring(ctx context.Context, draft domain.TransactionDraft, amount decimal.Decimal) (*domain.RecurringItem, error) {
	start := t.now()
	if parsed, _, ok := parseStoredDate(draft.StartDate); ok {
		start = parsed
	}
	item := &domain.RecurringItem{
		ID:          uuid.NewString(),
		Type:        draft.Type,
		Amount:      amount,
		Currency:    draft.Currency,
		Description: draft.Description,
		Category:    draft.Category,
		Frequency:   draft.Frequency,
		StartDate:   start,
		NextDate:    advanceNextDate(start, draft.Frequency),
		Active:      true,
		CreatedAt:   t.now(),
	}
	if parsed, _, ok := parseStoredDate(draft.EndDate); ok {
		item.EndDate = &parsed
	}
	if err := t.recurring.CreateRecurringItem(ctx, item); err != nil {
		return nil, domain.WrapError(domain.ErrRecordUnavailable, "create recurring item", err)
	}
	return item, nil
}

func (t *Transactions) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := t.records.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	normalized := normalizeRecordDates(*tx, t.now())
	return &normalized, nil
}

func (t *Transactions) Delete(ctx context.Context, id string) error {
	if err := t.records.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	if err := t.index.Delete(ctx, id); err != nil {
		t.logger.Warn("delete vector", "transaction_id", id, "error", err)
	}
	return nil
}

func (t *Transactions) List(ctx context.Context, filters domain.FilterSet, limit, offset int) ([]domain.Transaction, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	records, err := t.records.ListTransactions(ctx, filters, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRecordUnavailable, "list transactions", err)
	}
	now := t.now()
	for i := range records {
		records[i] = normalizeRecordDates(records[i], now)
	}
	return records, nil
}
