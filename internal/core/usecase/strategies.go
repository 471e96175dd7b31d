package usecase

import (
	"context"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// exactMatchLimit caps how many records the metadata tier pulls before the
// semantic tiers run.
const exactMatchLimit = 10

// retrievalStrategy is one tier of the fallback chain. Implementations
// return at most remaining candidates, skipping ids already in exclude, and
// signal a degraded backend with domain.ErrRetrievalUnavailable so the
// orchestrator can move on to the next tier.
type retrievalStrategy interface {
	tier() domain.RetrievalTier
	attempt(ctx context.Context, query string, filters domain.FilterSet, exclude map[string]struct{}, remaining int) ([]domain.Candidate, error)
}

// exactMatchStrategy serves queries that name a known category or
// transaction type straight from the record store, bypassing embeddings.
// Matches carry a fixed placeholder score because no similarity was
// computed for them.
type exactMatchStrategy struct {
	records ports.RecordStore
}

func (s *exactMatchStrategy) tier() domain.RetrievalTier { return domain.TierExact }

func (s *exactMatchStrategy) attempt(ctx context.Context, query string, filters domain.FilterSet, exclude map[string]struct{}, remaining int) ([]domain.Candidate, error) {
	derived := extractFilters(query)
	if derived.Category == "" && derived.Type == "" {
		return nil, nil
	}

	// Text-derived values refine the seeded filters; an empty derivation
	// must not erase a category or type the caller already pinned down.
	lookup := filters
	if derived.Category != "" {
		lookup.Category = derived.Category
	}
	if derived.Type != "" {
		lookup.Type = derived.Type
	}

	limit := exactMatchLimit
	if remaining < limit {
		limit = remaining
	}
	records, err := s.records.ListTransactions(ctx, lookup, limit+len(exclude), 0)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "exact match lookup", err)
	}

	out := make([]domain.Candidate, 0, limit)
	for _, rec := range records {
		if _, seen := exclude[rec.ID]; seen {
			continue
		}
		out = append(out, domain.Candidate{
			RecordID: rec.ID,
			Score:    domain.ExactMatchScore,
			Tier:     domain.TierExact,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// vectorStrategy embeds the query and searches the vector index with the
// structured filters translated into index predicates.
type vectorStrategy struct {
	embedder ports.Embedder
	index    ports.VectorIndex
}

func (s *vectorStrategy) tier() domain.RetrievalTier { return domain.TierVector }

func (s *vectorStrategy) attempt(ctx context.Context, query string, filters domain.FilterSet, exclude map[string]struct{}, remaining int) ([]domain.Candidate, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	matches, err := s.index.Query(ctx, vector, filters, remaining+len(exclude))
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "vector search", err)
	}

	out := make([]domain.Candidate, 0, remaining)
	for _, m := range matches {
		if _, seen := exclude[m.ID]; seen {
			continue
		}
		out = append(out, domain.Candidate{RecordID: m.ID, Score: m.Score, Tier: domain.TierVector})
		if len(out) == remaining {
			break
		}
	}
	return out, nil
}

// textStrategy tops up from the record store's full text search when the
// semantic tier is unavailable or under-delivers. Text hits carry no
// similarity score.
type textStrategy struct {
	records ports.RecordStore
}

func (s *textStrategy) tier() domain.RetrievalTier { return domain.TierText }

func (s *textStrategy) attempt(ctx context.Context, query string, filters domain.FilterSet, exclude map[string]struct{}, remaining int) ([]domain.Candidate, error) {
	ids, err := s.records.TextSearch(ctx, query, filters.Type, remaining+len(exclude))
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "text search", err)
	}

	out := make([]domain.Candidate, 0, remaining)
	for _, id := range ids {
		if _, seen := exclude[id]; seen {
			continue
		}
		out = append(out, domain.Candidate{RecordID: id, Tier: domain.TierText})
		if len(out) == remaining {
			break
		}
	}
	return out, nil
}

// recentStrategy is the unfiltered last resort: the most recent records,
// whatever they are, so the caller never gets an empty answer while data
// exists.
type recentStrategy struct {
	records ports.RecordStore
}

func (s *recentStrategy) tier() domain.RetrievalTier { return domain.TierRecent }

func (s *recentStrategy) attempt(ctx context.Context, _ string, _ domain.FilterSet, exclude map[string]struct{}, remaining int) ([]domain.Candidate, error) {
	records, err := s.records.ListTransactions(ctx, domain.FilterSet{}, remaining+len(exclude), 0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, remaining)
	for _, rec := range records {
		if _, seen := exclude[rec.ID]; seen {
			continue
		}
		out = append(out, domain.Candidate{RecordID: rec.ID, Tier: domain.TierRecent})
		if len(out) == remaining {
			break
		}
	}
	return out, nil
}
