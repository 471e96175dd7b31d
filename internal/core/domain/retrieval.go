package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is an inclusive calendar interval resolved from a query phrase.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FilterSet holds the structured constraints derived from one query. It is
// built fresh per retrieval call and not mutated afterwards.
type FilterSet struct {
	Type      TransactionType  `json:"type,omitempty"`
	Category  string           `json:"category,omitempty"`
	DateRange *DateRange       `json:"date_range,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

func (f FilterSet) Validate() error {
	if f.DateRange != nil && f.DateRange.End.Before(f.DateRange.Start) {
		return fmt.Errorf("%w: date range start after end", ErrInvalidInput)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		return fmt.Errorf("%w: min amount above max amount", ErrInvalidInput)
	}
	return nil
}

func (f FilterSet) IsEmpty() bool {
	return f.Type == "" && f.Category == "" && f.DateRange == nil &&
		f.MinAmount == nil && f.MaxAmount == nil
}

type RetrievalTier string

const (
	TierExact  RetrievalTier = "exact"
	TierVector RetrievalTier = "vector"
	TierText   RetrievalTier = "text"
	TierRecent RetrievalTier = "recent"
)

// ExactMatchScore is the placeholder relevance for exact-match candidates,
// which carry no real similarity score.
const ExactMatchScore = 1.0

// Candidate is one retrieved record reference. Scores are a relevance proxy
// only and are not comparable across tiers.
type Candidate struct {
	RecordID string        `json:"record_id"`
	Score    float64       `json:"score"`
	Tier     RetrievalTier `json:"source_tier"`
}

type VectorMatch struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RetrievalResult is the retrieval core's complete response: the surviving
// candidates, the normalized records they reference, and a one-paragraph
// summary for the user.
type RetrievalResult struct {
	Candidates  []Candidate   `json:"candidates"`
	Records     []Transaction `json:"records"`
	Explanation string        `json:"explanation"`
}
