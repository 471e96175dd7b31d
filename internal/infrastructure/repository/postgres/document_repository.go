package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030403)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	content_text TEXT,
	extracted JSONB,
	transaction_id TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, name, type, storage_path, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		doc.ID, doc.Name, string(doc.Type), doc.StoragePath, string(doc.Status),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, type, storage_path, content_text, extracted, transaction_id, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var docType, status string
	var contentText, transactionID, errMessage sql.NullString
	var extractedJSON []byte

	err := row.Scan(
		&doc.ID, &doc.Name, &docType, &doc.StoragePath, &contentText, &extractedJSON,
		&transactionID, &status, &errMessage, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: scan document: %w", domain.ErrMalformedRecord, err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	doc.ContentText = contentText.String
	doc.TransactionID = transactionID.String
	doc.Error = errMessage.String
	if len(extractedJSON) > 0 {
		doc.Extracted = &domain.DocumentDraft{}
		if err := json.Unmarshal(extractedJSON, doc.Extracted); err != nil {
			return nil, fmt.Errorf("%w: unmarshal extraction: %w", domain.ErrMalformedRecord, err)
		}
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4
`, string(status), nullable(errMessage), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *DocumentRepository) SaveExtraction(ctx context.Context, id string, contentText string, draft *domain.DocumentDraft, transactionID string) error {
	extractedJSON, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET content_text = $1, extracted = $2, transaction_id = $3, updated_at = $4
WHERE id = $5
`, contentText, extractedJSON, nullable(transactionID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
