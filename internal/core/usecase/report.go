package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// reportBatchLimit bounds how many records a single report aggregates.
const reportBatchLimit = 5000

// topCategoryCount is how many leading categories a summary names per type.
const topCategoryCount = 3

// Reports aggregates stored records into period summaries and category
// breakdowns. All money math happens in decimals; floats appear only in
// the percentage shares of the final report.
type Reports struct {
	records ports.RecordStore
	now     func() time.Time
}

func NewReports(records ports.RecordStore) *Reports {
	return &Reports{records: records, now: time.Now}
}

func (r *Reports) Summary(ctx context.Context, rng domain.DateRange) (*domain.SummaryReport, error) {
	records, err := r.load(ctx, rng)
	if err != nil {
		return nil, err
	}

	report := &domain.SummaryReport{
		Period:   rng,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	incomeByCategory := map[string]decimal.Decimal{}
	expenseByCategory := map[string]decimal.Decimal{}
	for _, rec := range records {
		switch rec.Type {
		case domain.TypeIncome:
			report.Income = report.Income.Add(rec.Amount)
			report.IncomeCount++
			addCategory(incomeByCategory, rec)
		case domain.TypeExpense:
			report.Expenses = report.Expenses.Add(rec.Amount)
			report.ExpenseCount++
			addCategory(expenseByCategory, rec)
		}
	}
	report.Net = report.Income.Sub(report.Expenses)
	report.TopIncome = rankCategories(incomeByCategory, report.Income, topCategoryCount)
	report.TopExpenses = rankCategories(expenseByCategory, report.Expenses, topCategoryCount)
	return report, nil
}

func (r *Reports) CategoryAnalysis(ctx context.Context, rng domain.DateRange, txType domain.TransactionType) (*domain.CategoryReport, error) {
	records, err := r.load(ctx, rng)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	for _, rec := range records {
		if txType != "" && rec.Type != txType {
			continue
		}
		addCategory(byCategory, rec)
		total = total.Add(rec.Amount)
	}

	return &domain.CategoryReport{
		Period:     rng,
		Type:       txType,
		Total:      total,
		Categories: rankCategories(byCategory, total, len(byCategory)),
	}, nil
}

func (r *Reports) load(ctx context.Context, rng domain.DateRange) ([]domain.Transaction, error) {
	filters := domain.FilterSet{DateRange: &rng}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	records, err := r.records.ListTransactions(ctx, filters, reportBatchLimit, 0)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRecordUnavailable, "load report records", err)
	}
	now := r.now()
	for i := range records {
		records[i] = normalizeRecordDates(records[i], now)
	}
	return records, nil
}

func addCategory(totals map[string]decimal.Decimal, rec domain.Transaction) {
	category := rec.Category
	if category == "" {
		category = "Uncategorized"
	}
	totals[category] = totals[category].Add(rec.Amount)
}

func rankCategories(totals map[string]decimal.Decimal, grandTotal decimal.Decimal, n int) []domain.CategoryTotal {
	out := make([]domain.CategoryTotal, 0, len(totals))
	for category, amount := range totals {
		entry := domain.CategoryTotal{Category: category, Amount: amount}
		if grandTotal.IsPositive() {
			entry.Percentage, _ = amount.Div(grandTotal).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
