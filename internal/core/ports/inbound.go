package ports

import (
	"context"
	"io"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

// RetrievalService is the inbound contract for free-text search over
// financial records. It always returns a result (possibly with zero
// records) unless the record store itself is unreachable.
type RetrievalService interface {
	Search(ctx context.Context, query string, limit int, seed domain.FilterSet) (*domain.RetrievalResult, error)
}

// AssistantService routes one natural-language message to the operation
// its classified intent calls for.
type AssistantService interface {
	Handle(ctx context.Context, message string, log *domain.ConversationLog) (*domain.AssistantReply, error)
}

// TransactionService is the inbound contract for the transaction lifecycle.
type TransactionService interface {
	CreateFromText(ctx context.Context, text string) (*domain.Transaction, *domain.RecurringItem, error)
	Create(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters domain.FilterSet, limit, offset int) ([]domain.Transaction, error)
}

// AnalysisService derives burn rate, runway and forward projections from
// stored records.
type AnalysisService interface {
	Runway(ctx context.Context, monthsBack int) (*domain.RunwayAnalysis, error)
	MonthlyComparison(ctx context.Context, monthsBack int) (*domain.MonthlyComparison, error)
	Project(ctx context.Context, name string, months int, assumptions domain.ProjectionAssumptions) (*domain.Projection, error)
}

// RecurringProcessor runs one batch pass over due recurring items.
type RecurringProcessor interface {
	ProcessDueItems(ctx context.Context) (processed, terminated int, err error)
}

// DocumentIngestor uploads a document and schedules its processing.
type DocumentIngestor interface {
	Upload(ctx context.Context, name string, docType domain.DocumentType, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor extracts, classifies and indexes an uploaded document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ReportService aggregates records into period reports.
type ReportService interface {
	Summary(ctx context.Context, rng domain.DateRange) (*domain.SummaryReport, error)
	CategoryAnalysis(ctx context.Context, rng domain.DateRange, txType domain.TransactionType) (*domain.CategoryReport, error)
}
