package domain

import "time"

// Intent categories produced by the natural-language classifier.
const (
	IntentTransactionCreate = "transaction_create"
	IntentTransactionList   = "transaction_list"
	IntentTransactionSearch = "transaction_search"
	IntentDocumentProcess   = "document_process"
	IntentFinancialAnalysis = "financial_analysis"
	IntentReportGenerate    = "report_generate"
	IntentGeneralQuery      = "general_query"
)

// QueryIntent is the classifier's verdict for one query. Filters may be
// partially filled; the retrieval core only fills the gaps and never
// overwrites fields the classifier already set.
type QueryIntent struct {
	Intent     string            `json:"intent"`
	Filters    FilterSet         `json:"filters"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// AssistantReply is the routed outcome of one assistant message. Exactly
// one payload field is set, matching the intent.
type AssistantReply struct {
	Intent      string             `json:"intent"`
	Message     string             `json:"message"`
	Transaction *Transaction       `json:"transaction,omitempty"`
	Recurring   *RecurringItem     `json:"recurring,omitempty"`
	Retrieval   *RetrievalResult   `json:"retrieval,omitempty"`
	Report      *SummaryReport     `json:"report,omitempty"`
	Runway      *RunwayAnalysis    `json:"runway,omitempty"`
	Monthly     *MonthlyComparison `json:"monthly,omitempty"`
	Categories  *CategoryReport    `json:"categories,omitempty"`
}

// ConversationEntry is one turn of the caller-owned conversation log. The
// log is passed in explicitly and bounded by the caller; the core holds no
// session state of its own.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationLog is a bounded append-only window of recent turns.
type ConversationLog struct {
	entries []ConversationEntry
	limit   int
}

func NewConversationLog(limit int) *ConversationLog {
	if limit <= 0 {
		limit = 20
	}
	return &ConversationLog{limit: limit}
}

func (l *ConversationLog) Append(role, content string) {
	l.entries = append(l.entries, ConversationEntry{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

func (l *ConversationLog) Recent(n int) []ConversationEntry {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]ConversationEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
