package domain

import "time"

type DocumentType string

const (
	DocumentInvoice  DocumentType = "invoice"
	DocumentReceipt  DocumentType = "receipt"
	DocumentContract DocumentType = "contract"
	DocumentOther    DocumentType = "other"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded source file (invoice, receipt) plus the fields
// extracted from it. TransactionID links the transaction auto-created from
// the document, when one was.
type Document struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          DocumentType   `json:"type"`
	StoragePath   string         `json:"storage_path"`
	ContentText   string         `json:"content_text,omitempty"`
	Extracted     *DocumentDraft `json:"extracted,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DocumentDraft holds the fields the extraction step pulled from a document.
// Dates stay raw strings for the same reason Transaction dates do.
type DocumentDraft struct {
	Type        string `json:"type"`
	Issuer      string `json:"issuer"`
	Recipient   string `json:"recipient,omitempty"`
	Date        string `json:"date"`
	DueDate     string `json:"due_date,omitempty"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	PaymentDate string `json:"payment_date,omitempty"`
	Reference   string `json:"reference_number,omitempty"`
	Notes       string `json:"notes,omitempty"`
}
