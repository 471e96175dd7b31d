package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// defaultSearchLimit applies when neither the caller nor the configuration
// constrains the result size.
const defaultSearchLimit = 5

// Retriever answers free text queries about stored financial records by
// walking a fixed chain of retrieval tiers: exact metadata match, vector
// similarity, full text search, and finally the most recent records
// unfiltered. Earlier tiers are preferred; later tiers only top up what is
// still missing.
type Retriever struct {
	records      ports.RecordStore
	defaultLimit int
	strategies   []retrievalStrategy
	logger       *slog.Logger
	now          func() time.Time
}

// NewRetriever builds the tier chain. defaultLimit caps searches that do
// not name their own limit; values below one fall back to a small built-in.
func NewRetriever(records ports.RecordStore, index ports.VectorIndex, embedder ports.Embedder, defaultLimit int, logger *slog.Logger) *Retriever {
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchLimit
	}
	return &Retriever{
		records:      records,
		defaultLimit: defaultLimit,
		strategies: []retrievalStrategy{
			&exactMatchStrategy{records: records},
			&vectorStrategy{embedder: embedder, index: index},
			&textStrategy{records: records},
			&recentStrategy{records: records},
		},
		logger: logger,
		now:    time.Now,
	}
}

// Search resolves temporal expressions and keyword filters from the query,
// merges them under any filters the caller already extracted, and runs the
// tier chain until the limit is filled. Candidates are deduplicated by
// record id with the earliest tier winning. Records are date-normalized
// before they are returned, and records that fall outside a requested date
// window after normalization are dropped unless they came from the
// unfiltered last resort tier.
func (r *Retriever) Search(ctx context.Context, query string, limit int, seed domain.FilterSet) (*domain.RetrievalResult, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}

	filters := mergeFilters(seed, extractFilters(query))
	if filters.DateRange == nil {
		if window, ok := resolveDateRange(query, r.now()); ok {
			filters.DateRange = &window
		}
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, limit)
	var candidates []domain.Candidate
	for i, strategy := range r.strategies {
		remaining := limit - len(candidates)
		if remaining <= 0 {
			break
		}
		if strategy.tier() == domain.TierRecent && len(candidates) > 0 {
			break
		}

		batch, err := strategy.attempt(ctx, query, filters, seen, remaining)
		if err != nil {
			if i == len(r.strategies)-1 {
				return nil, domain.WrapError(domain.ErrRecordUnavailable, "recent fallback", err)
			}
			r.logger.Warn("retrieval tier degraded", "tier", strategy.tier(), "error", err)
			continue
		}
		for _, c := range batch {
			if _, dup := seen[c.RecordID]; dup {
				continue
			}
			seen[c.RecordID] = struct{}{}
			candidates = append(candidates, c)
		}
	}

	result := &domain.RetrievalResult{}
	for _, c := range candidates {
		rec, err := r.records.GetTransaction(ctx, c.RecordID)
		if err != nil {
			if domain.IsKind(err, domain.ErrRecordNotFound) || domain.IsKind(err, domain.ErrMalformedRecord) {
				r.logger.Warn("candidate dropped", "record_id", c.RecordID, "error", err)
				continue
			}
			return nil, domain.WrapError(domain.ErrRecordUnavailable, "fetch candidate", err)
		}

		normalized := normalizeRecordDates(*rec, r.now())
		if c.Tier != domain.TierRecent && !withinWindow(normalized.Date, filters.DateRange) {
			continue
		}
		result.Candidates = append(result.Candidates, c)
		result.Records = append(result.Records, normalized)
	}

	result.Explanation = buildExplanation(result.Records)
	return result, nil
}

// withinWindow reports whether a stored date value falls inside the window.
// Records whose date cannot be parsed are kept rather than silently lost.
func withinWindow(raw string, window *domain.DateRange) bool {
	if window == nil {
		return true
	}
	parsed, _, ok := parseStoredDate(raw)
	if !ok {
		return true
	}
	d := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(window.Start) && !d.After(window.End)
}

// buildExplanation writes a short human readable summary of what was found:
// result count, breakdown by transaction type, and the dominant categories.
func buildExplanation(records []domain.Transaction) string {
	if len(records) == 0 {
		return "No matching records were found. Try different terms or widen the date range."
	}

	typeCounts := map[string]int{}
	categoryCounts := map[string]int{}
	for _, rec := range records {
		typeCounts[string(rec.Type)]++
		if rec.Category != "" {
			categoryCounts[rec.Category]++
		}
	}

	var b strings.Builder
	if len(records) == 1 {
		b.WriteString("Found 1 record")
	} else {
		fmt.Fprintf(&b, "Found %d records", len(records))
	}

	var typeParts []string
	for _, name := range []string{string(domain.TypeExpense), string(domain.TypeIncome)} {
		if n := typeCounts[name]; n > 0 {
			label := name
			if n != 1 {
				label += "s"
			}
			typeParts = append(typeParts, fmt.Sprintf("%d %s", n, label))
		}
	}
	if len(typeParts) > 0 {
		b.WriteString(": " + strings.Join(typeParts, ", "))
	}
	b.WriteString(".")

	if top := topCategories(categoryCounts, 3); len(top) > 0 {
		b.WriteString(" Main categories: " + strings.Join(top, ", ") + ".")
	}
	return b.String()
}

func topCategories(counts map[string]int, n int) []string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%s (%d)", e.name, e.count)
	}
	return out
}
