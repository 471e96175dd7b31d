package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// DocumentIngest accepts an uploaded file, stores it, records its metadata
// and hands processing off to the worker through the queue.
type DocumentIngest struct {
	docs    ports.DocumentStore
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
	now     func() time.Time
}

func NewDocumentIngest(docs ports.DocumentStore, storage ports.ObjectStorage, queue ports.MessageQueue, logger *slog.Logger) *DocumentIngest {
	return &DocumentIngest{docs: docs, storage: storage, queue: queue, logger: logger, now: time.Now}
}

func (u *DocumentIngest) Upload(ctx context.Context, name string, docType domain.DocumentType, body io.Reader) (*domain.Document, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}
	if docType == "" {
		docType = domain.DocumentOther
	}

	doc := &domain.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      docType,
		Status:    domain.StatusUploaded,
		CreatedAt: u.now(),
		UpdatedAt: u.now(),
	}
	doc.StoragePath = doc.ID + "_" + name

	if err := u.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if err := u.docs.CreateDocument(ctx, doc); err != nil {
		return nil, domain.WrapError(domain.ErrRecordUnavailable, "create document", err)
	}
	if err := u.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// The record exists; processing can be replayed later.
		u.logger.Error("publish document event", "document_id", doc.ID, "error", err)
	}
	return doc, nil
}

// DocumentProcess is the worker side: extract text, pull structured fields
// through the classifier, auto-create the matching transaction and index
// the content for semantic search.
type DocumentProcess struct {
	docs         ports.DocumentStore
	extractor    ports.TextExtractor
	classifier   ports.IntentClassifier
	transactions ports.TransactionService
	embedder     ports.Embedder
	index        ports.VectorIndex
	logger       *slog.Logger
	now          func() time.Time
}

func NewDocumentProcess(
	docs ports.DocumentStore,
	extractor ports.TextExtractor,
	classifier ports.IntentClassifier,
	transactions ports.TransactionService,
	embedder ports.Embedder,
	index ports.VectorIndex,
	logger *slog.Logger,
) *DocumentProcess {
	return &DocumentProcess{
		docs:         docs,
		extractor:    extractor,
		classifier:   classifier,
		transactions: transactions,
		embedder:     embedder,
		index:        index,
		logger:       logger,
		now:          time.Now,
	}
}

func (u *DocumentProcess) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := u.docs.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := u.docs.UpdateDocumentStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return err
	}

	if err := u.process(ctx, doc); err != nil {
		if statusErr := u.docs.UpdateDocumentStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); statusErr != nil {
			u.logger.Error("mark document failed", "document_id", doc.ID, "error", statusErr)
		}
		return err
	}
	return u.docs.UpdateDocumentStatus(ctx, doc.ID, domain.StatusReady, "")
}

func (u *DocumentProcess) process(ctx context.Context, doc *domain.Document) error {
	text, err := u.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: document has no extractable text", domain.ErrMalformedRecord)
	}

	draft, err := u.classifier.ExtractDocument(ctx, text, doc.Type)
	if err != nil {
		return fmt.Errorf("extract fields: %w", err)
	}

	transactionID := ""
	if tx := u.draftTransaction(doc, draft); tx != nil {
		if err := u.transactions.Create(ctx, tx); err != nil {
			u.logger.Warn("document transaction not created", "document_id", doc.ID, "error", err)
		} else {
			transactionID = tx.ID
		}
	}

	u.indexDocument(ctx, doc, text, draft)

	return u.docs.SaveExtraction(ctx, doc.ID, text, &draft, transactionID)
}

// draftTransaction builds the expense record implied by an invoice or
// receipt. Documents without a parseable positive total produce none.
func (u *DocumentProcess) draftTransaction(doc *domain.Document, draft domain.DocumentDraft) *domain.Transaction {
	amount, err := decimal.NewFromString(strings.ReplaceAll(draft.TotalAmount, ",", "."))
	if err != nil || !amount.IsPositive() {
		return nil
	}

	date := draft.Date
	if date == "" {
		date = u.now().Format("2006-01-02")
	}
	description := draft.Issuer
	if description == "" {
		description = doc.Name
	}
	return &domain.Transaction{
		Type:        domain.TypeExpense,
		Amount:      amount,
		Currency:    draft.Currency,
		Description: description,
		Category:    "Other Expense",
		Date:        date,
		DueDate:     draft.DueDate,
		PaymentDate: draft.PaymentDate,
		DocumentID:  doc.ID,
	}
}

func (u *DocumentProcess) indexDocument(ctx context.Context, doc *domain.Document, text string, draft domain.DocumentDraft) {
	vectors, err := u.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		u.logger.Warn("embed document", "document_id", doc.ID, "error", err)
		return
	}
	metadata := map[string]any{
		"reference_type": "document",
		"document_type":  string(doc.Type),
		"issuer":         draft.Issuer,
		"date":           draft.Date,
	}
	if err := u.index.Upsert(ctx, doc.ID, vectors[0], metadata); err != nil {
		u.logger.Warn("index document", "document_id", doc.ID, "error", err)
	}
}
