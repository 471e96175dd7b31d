package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

const (
	defaultRunwayMonths     = 3
	defaultComparisonMonths = 12
	maxProjectionMonths     = 60
)

// Analyzer derives burn rate, runway and forward projections from stored
// records. Records whose primary date does not parse are left out of the
// month buckets; they cannot be attributed to a month.
type Analyzer struct {
	records ports.RecordStore
	now     func() time.Time
}

func NewAnalyzer(records ports.RecordStore) *Analyzer {
	return &Analyzer{records: records, now: time.Now}
}

// Runway reports the average monthly burn over the recent window and how
// many months the historical balance covers at that rate.
func (a *Analyzer) Runway(ctx context.Context, monthsBack int) (*domain.RunwayAnalysis, error) {
	if monthsBack <= 0 {
		monthsBack = defaultRunwayMonths
	}

	months, err := a.monthBuckets(ctx, monthsBack)
	if err != nil {
		return nil, err
	}

	avgBurn := decimal.Zero
	if len(months) > 0 {
		total := decimal.Zero
		for _, m := range months {
			total = total.Add(m.BurnRate)
		}
		avgBurn = total.Div(decimal.NewFromInt(int64(len(months))))
	}

	balance, err := a.cashBalance(ctx)
	if err != nil {
		return nil, err
	}

	analysis := &domain.RunwayAnalysis{
		CashBalance:    balance,
		AvgMonthlyBurn: avgBurn,
		Months:         months,
	}
	switch {
	case avgBurn.IsPositive():
		analysis.RunwayMonths, _ = balance.Div(avgBurn).Round(1).Float64()
	case balance.IsPositive():
		analysis.Unbounded = true
	}
	return analysis, nil
}

// MonthlyComparison buckets the recent window into calendar months and
// annotates month-over-month percentage changes.
func (a *Analyzer) MonthlyComparison(ctx context.Context, monthsBack int) (*domain.MonthlyComparison, error) {
	if monthsBack <= 0 {
		monthsBack = defaultComparisonMonths
	}

	months, err := a.monthBuckets(ctx, monthsBack)
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(months); i++ {
		prev := months[i-1]
		months[i].IncomeChange = percentChange(prev.Income, months[i].Income)
		months[i].ExpensesChange = percentChange(prev.Expenses, months[i].Expenses)
		months[i].NetChange = percentChange(prev.Net, months[i].Net)
	}

	return &domain.MonthlyComparison{
		Period: a.window(monthsBack),
		Months: months,
	}, nil
}

// Project compounds the latest observed month forward. The baseline is the
// most recent month with any activity; no history means nothing to project.
func (a *Analyzer) Project(ctx context.Context, name string, months int, assumptions domain.ProjectionAssumptions) (*domain.Projection, error) {
	if months <= 0 {
		months = defaultComparisonMonths
	}
	if months > maxProjectionMonths {
		months = maxProjectionMonths
	}

	history, err := a.monthBuckets(ctx, defaultComparisonMonths)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no historical records to project from", domain.ErrInvalidInput)
	}
	baseline := history[len(history)-1]

	balance, err := a.cashBalance(ctx)
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	incomeFactor := decimal.NewFromInt(1).Add(assumptions.IncomeGrowthPct.Div(hundred))
	expenseFactor := decimal.NewFromInt(1).Add(assumptions.ExpenseGrowthPct.Div(hundred))

	now := a.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	projected := make([]domain.ProjectedMonth, 0, months)
	running := balance
	income := baseline.Income
	expenses := baseline.Expenses
	burnTotal := decimal.Zero
	burnMonths := 0

	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0)
		net := income.Sub(expenses)
		running = running.Add(net)
		if net.IsNegative() {
			burnTotal = burnTotal.Add(net.Neg())
			burnMonths++
		}
		projected = append(projected, domain.ProjectedMonth{
			Month:    month.Format("2006-01"),
			Income:   income.Round(2),
			Expenses: expenses.Round(2),
			Net:      net.Round(2),
			Balance:  running.Round(2),
		})
		income = income.Mul(incomeFactor)
		expenses = expenses.Mul(expenseFactor)
	}

	projection := &domain.Projection{
		Name: name,
		Period: domain.DateRange{
			Start: start,
			End:   start.AddDate(0, months, -1),
		},
		Months:         projected,
		InitialBalance: balance,
		FinalBalance:   running.Round(2),
		Assumptions:    assumptions,
	}

	if burnMonths > 0 {
		avgBurn := burnTotal.Div(decimal.NewFromInt(int64(burnMonths)))
		projection.AvgMonthlyBurn = avgBurn.Round(2)
		if avgBurn.IsPositive() {
			projection.RunwayMonths, _ = projection.FinalBalance.Div(avgBurn).Round(1).Float64()
		}
	} else if projection.FinalBalance.IsPositive() {
		projection.Unbounded = true
	}
	return projection, nil
}

// monthBuckets loads the recent window and aggregates per calendar month,
// oldest first.
func (a *Analyzer) monthBuckets(ctx context.Context, monthsBack int) ([]domain.MonthlyFlow, error) {
	rng := a.window(monthsBack)
	records, err := a.records.ListTransactions(ctx, domain.FilterSet{DateRange: &rng}, reportBatchLimit, 0)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRecordUnavailable, "load analysis records", err)
	}

	buckets := make(map[string]*domain.MonthlyFlow)
	for _, rec := range records {
		rec = normalizeRecordDates(rec, a.now())
		parsed, _, ok := parseStoredDate(rec.Date)
		if !ok {
			continue
		}
		key := parsed.Format("2006-01")
		flow, exists := buckets[key]
		if !exists {
			flow = &domain.MonthlyFlow{Month: key}
			buckets[key] = flow
		}
		switch rec.Type {
		case domain.TypeIncome:
			flow.Income = flow.Income.Add(rec.Amount)
		case domain.TypeExpense:
			flow.Expenses = flow.Expenses.Add(rec.Amount)
		}
	}

	months := make([]domain.MonthlyFlow, 0, len(buckets))
	for _, flow := range buckets {
		flow.Net = flow.Income.Sub(flow.Expenses)
		if flow.Expenses.GreaterThan(flow.Income) {
			flow.BurnRate = flow.Expenses.Sub(flow.Income)
		}
		months = append(months, *flow)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months, nil
}

// window covers the current month plus the monthsBack-1 before it.
func (a *Analyzer) window(monthsBack int) domain.DateRange {
	now := a.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthsBack - 1), 0)
	return domain.DateRange{
		Start: start,
		End:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// cashBalance is lifetime income minus lifetime expenses.
func (a *Analyzer) cashBalance(ctx context.Context) (decimal.Decimal, error) {
	records, err := a.records.ListTransactions(ctx, domain.FilterSet{}, reportBatchLimit, 0)
	if err != nil {
		return decimal.Zero, domain.WrapError(domain.ErrRecordUnavailable, "load balance records", err)
	}
	balance := decimal.Zero
	for _, rec := range records {
		switch rec.Type {
		case domain.TypeIncome:
			balance = balance.Add(rec.Amount)
		case domain.TypeExpense:
			balance = balance.Sub(rec.Amount)
		}
	}
	return balance, nil
}

func percentChange(prev, curr decimal.Decimal) float64 {
	if prev.IsZero() {
		return 0
	}
	change, _ := curr.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return change
}
