package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction is a single financial record. Date fields are kept as the
// raw ISO strings persisted by the extraction pipeline: the upstream LLM is
// known to emit stale or malformed dates, and the presentation-layer
// normalizer must be able to pass unparseable values through untouched.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Date        string            `json:"date"`
	PaymentDate string            `json:"payment_date,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	RecurringID string            `json:"recurring_id,omitempty"`
	DocumentID  string            `json:"document_id,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t *Transaction) Validate() error {
	switch t.Type {
	case TypeIncome, TypeExpense:
	default:
		return fmt.Errorf("%w: transaction type %q", ErrInvalidInput, t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if t.Date == "" {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	return nil
}

// TransactionDraft carries the structured fields the extraction step pulled
// out of free text, before the draft becomes a persisted Transaction.
type TransactionDraft struct {
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Date        string            `json:"date"`
	PaymentDate string            `json:"payment_date,omitempty"`
	Recurring   bool              `json:"recurring,omitempty"`
	Frequency   Frequency         `json:"frequency,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}
