package domain

import "github.com/shopspring/decimal"

// SummaryReport is a basic income/expense summary over a period.
type SummaryReport struct {
	Period       DateRange       `json:"period"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Net          decimal.Decimal `json:"net"`
	IncomeCount  int             `json:"income_count"`
	ExpenseCount int             `json:"expense_count"`
	TopIncome    []CategoryTotal `json:"top_income_categories"`
	TopExpenses  []CategoryTotal `json:"top_expense_categories"`
}

// CategoryReport breaks one transaction type down by category.
type CategoryReport struct {
	Period     DateRange       `json:"period"`
	Type       TransactionType `json:"type"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

type CategoryTotal struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}
