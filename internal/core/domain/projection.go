package domain

import "github.com/shopspring/decimal"

// MonthlyFlow is one calendar month's aggregated income and expenses.
// Change fields are month-over-month percentages; the first month of a
// comparison carries zeros.
type MonthlyFlow struct {
	Month          string          `json:"month"`
	Income         decimal.Decimal `json:"income"`
	Expenses       decimal.Decimal `json:"expenses"`
	Net            decimal.Decimal `json:"net"`
	BurnRate       decimal.Decimal `json:"burn_rate"`
	IncomeChange   float64         `json:"income_change,omitempty"`
	ExpensesChange float64         `json:"expenses_change,omitempty"`
	NetChange      float64         `json:"net_change,omitempty"`
}

// RunwayAnalysis reports how long the current balance lasts at the recent
// burn rate. Unbounded is set instead of an infinite month count when
// nothing is being burned.
type RunwayAnalysis struct {
	CashBalance    decimal.Decimal `json:"cash_balance"`
	AvgMonthlyBurn decimal.Decimal `json:"avg_monthly_burn_rate"`
	RunwayMonths   float64         `json:"runway_months"`
	Unbounded      bool            `json:"unbounded"`
	Months         []MonthlyFlow   `json:"monthly_data"`
}

// MonthlyComparison is an income-versus-expense view over recent months
// with month-over-month change percentages.
type MonthlyComparison struct {
	Period DateRange     `json:"period"`
	Months []MonthlyFlow `json:"monthly_data"`
}

// ProjectionAssumptions drive a forward projection. Growth percentages
// compound monthly and may be negative.
type ProjectionAssumptions struct {
	IncomeGrowthPct  decimal.Decimal `json:"income_growth_pct"`
	ExpenseGrowthPct decimal.Decimal `json:"expense_growth_pct"`
}

// ProjectedMonth is one month of a projection, including the running
// balance after that month closes.
type ProjectedMonth struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
	Balance  decimal.Decimal `json:"balance"`
}

// Projection is a multi-month forecast seeded from the latest observed
// month and compounded by the assumptions.
type Projection struct {
	Name           string                `json:"name"`
	Period         DateRange             `json:"period"`
	Months         []ProjectedMonth      `json:"months"`
	InitialBalance decimal.Decimal       `json:"initial_balance"`
	FinalBalance   decimal.Decimal       `json:"final_balance"`
	AvgMonthlyBurn decimal.Decimal       `json:"avg_monthly_burn"`
	RunwayMonths   float64               `json:"projected_runway"`
	Unbounded      bool                  `json:"unbounded"`
	Assumptions    ProjectionAssumptions `json:"assumptions"`
}
