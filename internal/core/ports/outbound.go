package ports

import (
	"context"
	"io"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

// RecordStore persists and reads financial records. List returns records
// ordered by primary date descending.
type RecordStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, filters domain.FilterSet, limit, offset int) ([]domain.Transaction, error)
	TextSearch(ctx context.Context, query string, referenceType domain.TransactionType, limit int) ([]string, error)
}

// RecurringStore persists recurring items and the scheduler's state changes.
type RecurringStore interface {
	CreateRecurringItem(ctx context.Context, item *domain.RecurringItem) error
	GetRecurringItem(ctx context.Context, id string) (*domain.RecurringItem, error)
	ListDueItems(ctx context.Context, now time.Time, limit int) ([]domain.RecurringItem, error)
	UpdateNextDate(ctx context.Context, id string, next time.Time) error
	MarkInactive(ctx context.Context, id string) error
}

// DocumentStore persists uploaded document metadata and extraction results.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveExtraction(ctx context.Context, id string, contentText string, draft *domain.DocumentDraft, transactionID string) error
}

// VectorIndex is the semantic search collaborator. Query translates the
// filter set into the index's native predicate language.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, filters domain.FilterSet, topK int) ([]domain.VectorMatch, error)
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
}

// Embedder builds vectors for record text and query text. Output must be
// deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IntentClassifier supplies the {intent, parameters} verdict for a query
// and structured field extraction from free text.
type IntentClassifier interface {
	AnalyzeQuery(ctx context.Context, text string, history []domain.ConversationEntry) (domain.QueryIntent, error)
	ExtractTransaction(ctx context.Context, text string) (domain.TransactionDraft, error)
	ExtractDocument(ctx context.Context, text string, docType domain.DocumentType) (domain.DocumentDraft, error)
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes background-processing events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishRecurringRun(ctx context.Context) error
	SubscribeRecurringRun(ctx context.Context, handler func(context.Context) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}
