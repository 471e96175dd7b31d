package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func newTestAnalyzer(store *fakeRecordStore) *Analyzer {
	a := NewAnalyzer(store)
	a.now = func() time.Time { return day(2024, time.June, 15) }
	return a
}

func analysisFixture() *fakeRecordStore {
	return &fakeRecordStore{listResults: []domain.Transaction{
		{ID: "a1", Type: domain.TypeIncome, Amount: decimal.NewFromInt(15000), Date: "2024-04-05"},
		{ID: "a2", Type: domain.TypeExpense, Amount: decimal.NewFromInt(3000), Date: "2024-04-20"},
		{ID: "m1", Type: domain.TypeIncome, Amount: decimal.NewFromInt(1000), Date: "2024-05-02"},
		{ID: "m2", Type: domain.TypeExpense, Amount: decimal.NewFromInt(4000), Date: "2024-05-18"},
		{ID: "j1", Type: domain.TypeIncome, Amount: decimal.NewFromInt(2000), Date: "2024-06-01"},
		{ID: "j2", Type: domain.TypeExpense, Amount: decimal.NewFromInt(3500), Date: "2024-06-10"},
	}}
}

func TestRunwayAveragesBurnAndDividesBalance(t *testing.T) {
	a := newTestAnalyzer(analysisFixture())

	result, err := a.Runway(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// April nets +12000 (no burn), May burns 3000, June burns 1500.
	if !result.AvgMonthlyBurn.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected avg burn 1500, got %s", result.AvgMonthlyBurn)
	}
	if !result.CashBalance.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("expected balance 7500, got %s", result.CashBalance)
	}
	if result.RunwayMonths != 5.0 {
		t.Fatalf("expected 5 months runway, got %v", result.RunwayMonths)
	}
	if result.Unbounded {
		t.Fatal("runway must not be unbounded while burning")
	}
	if len(result.Months) != 3 {
		t.Fatalf("expected 3 month buckets, got %d", len(result.Months))
	}
	if result.Months[0].Month != "2024-04" || result.Months[2].Month != "2024-06" {
		t.Fatalf("buckets out of order: %+v", result.Months)
	}
}

func TestRunwayUnboundedWithoutBurn(t *testing.T) {
	a := newTestAnalyzer(&fakeRecordStore{listResults: []domain.Transaction{
		{ID: "i1", Type: domain.TypeIncome, Amount: decimal.NewFromInt(5000), Date: "2024-06-01"},
	}})

	result, err := a.Runway(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Unbounded {
		t.Fatal("positive balance with zero burn should be unbounded")
	}
	if result.RunwayMonths != 0 {
		t.Fatalf("unbounded runway should not carry a month count, got %v", result.RunwayMonths)
	}
}

func TestRunwayStoreOutage(t *testing.T) {
	a := newTestAnalyzer(&fakeRecordStore{listErr: errors.New("connection refused")})

	if _, err := a.Runway(context.Background(), 3); !domain.IsKind(err, domain.ErrRecordUnavailable) {
		t.Fatalf("expected record store outage, got %v", err)
	}
}

func TestMonthlyComparisonChangePercentages(t *testing.T) {
	a := newTestAnalyzer(analysisFixture())

	result, err := a.MonthlyComparison(context.Background(), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(result.Months))
	}

	first := result.Months[0]
	if first.IncomeChange != 0 || first.ExpensesChange != 0 || first.NetChange != 0 {
		t.Fatalf("first month must carry zero changes: %+v", first)
	}

	may := result.Months[1]
	if may.IncomeChange != -93.3 {
		t.Fatalf("expected May income change -93.3, got %v", may.IncomeChange)
	}
	if may.ExpensesChange != 33.3 {
		t.Fatalf("expected May expenses change 33.3, got %v", may.ExpensesChange)
	}
	if may.NetChange != -125.0 {
		t.Fatalf("expected May net change -125, got %v", may.NetChange)
	}

	june := result.Months[2]
	if june.IncomeChange != 100.0 {
		t.Fatalf("expected June income change 100, got %v", june.IncomeChange)
	}
	if june.NetChange != 50.0 {
		t.Fatalf("expected June net change 50, got %v", june.NetChange)
	}
}

func TestMonthlyComparisonSkipsUnparseableDates(t *testing.T) {
	a := newTestAnalyzer(&fakeRecordStore{listResults: []domain.Transaction{
		{ID: "ok", Type: domain.TypeExpense, Amount: decimal.NewFromInt(100), Date: "2024-06-01"},
		{ID: "bad", Type: domain.TypeExpense, Amount: decimal.NewFromInt(900), Date: "whenever"},
	}})

	result, err := a.MonthlyComparison(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Months) != 1 {
		t.Fatalf("expected a single bucket, got %d", len(result.Months))
	}
	if !result.Months[0].Expenses.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unattributable record leaked into bucket: %s", result.Months[0].Expenses)
	}
}

func TestProjectCompoundsBaseline(t *testing.T) {
	a := newTestAnalyzer(analysisFixture())

	projection, err := a.Project(context.Background(), "base case", 3, domain.ProjectionAssumptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(projection.Months) != 3 {
		t.Fatalf("expected 3 projected months, got %d", len(projection.Months))
	}
	if projection.Months[0].Month != "2024-06" || projection.Months[2].Month != "2024-08" {
		t.Fatalf("unexpected projected months: %+v", projection.Months)
	}

	// Baseline June: income 2000, expenses 3500, so each flat month nets -1500.
	for i, month := range projection.Months {
		if !month.Net.Equal(decimal.NewFromInt(-1500)) {
			t.Fatalf("month %d net = %s, want -1500", i, month.Net)
		}
	}
	if !projection.InitialBalance.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("expected initial balance 7500, got %s", projection.InitialBalance)
	}
	if !projection.FinalBalance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected final balance 3000, got %s", projection.FinalBalance)
	}
	if !projection.AvgMonthlyBurn.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected projected burn 1500, got %s", projection.AvgMonthlyBurn)
	}
	if projection.RunwayMonths != 2.0 {
		t.Fatalf("expected 2 months projected runway, got %v", projection.RunwayMonths)
	}
}

func TestProjectAppliesGrowthRates(t *testing.T) {
	a := newTestAnalyzer(analysisFixture())

	projection, err := a.Project(context.Background(), "growth", 3, domain.ProjectionAssumptions{
		IncomeGrowthPct: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2000", "2200", "2420"}
	for i, month := range projection.Months {
		if month.Income.String() != want[i] {
			t.Fatalf("month %d income = %s, want %s", i, month.Income, want[i])
		}
	}
}

func TestProjectRequiresHistory(t *testing.T) {
	a := newTestAnalyzer(&fakeRecordStore{})

	if _, err := a.Project(context.Background(), "empty", 6, domain.ProjectionAssumptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without history, got %v", err)
	}
}
