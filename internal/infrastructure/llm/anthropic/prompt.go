package anthropic

import (
	"fmt"
	"strings"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

const maxPromptText = 6000

const analyzeSystemPrompt = `You are the intent classifier of a finance assistant.
Return a strict JSON object with keys:
intent (one of: transaction_create, transaction_list, transaction_search, document_process, financial_analysis, report_generate, general_query),
parameters (object of strings; allowed keys: type, category, date_from, date_to, min_amount, max_amount, analysis_type).
analysis_type applies to financial_analysis only and is one of: runway, monthly, categories.
Dates use YYYY-MM-DD. Amounts are plain numbers. Omit parameters you are not sure about.
No markdown, no extra keys, no commentary.`

const extractSystemPrompt = `You extract structured financial data.
Return strict JSON only. No markdown, no commentary, no extra keys.`

func analyzeUserPrompt(text string, history []domain.ConversationEntry) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, entry := range history {
			fmt.Fprintf(&b, "%s: %s\n", entry.Role, clip(entry.Content, 500))
		}
		b.WriteString("\n")
	}
	b.WriteString("Query:\n")
	b.WriteString(clip(text, maxPromptText))
	return b.String()
}

func extractTransactionPrompt(text string) string {
	return `Extract one financial transaction from the text below.
JSON keys: type ("income" or "expense"), amount (number), currency (ISO code),
description (string), category (string), date (YYYY-MM-DD or empty),
recurring (boolean), frequency (daily|weekly|monthly|quarterly|yearly or empty),
start_date, end_date (YYYY-MM-DD or empty).

Text:
` + clip(text, maxPromptText)
}

func extractDocumentPrompt(text string, docType domain.DocumentType) string {
	return fmt.Sprintf(`Extract the fields of this %s.
JSON keys: type, issuer, recipient, date, due_date, total_amount, currency,
payment_date, reference_number, notes. Dates use YYYY-MM-DD.
Use empty strings for fields that are not present.

Document text:
%s`, docType, clip(text, maxPromptText))
}

func clip(text string, max int) string {
	if len(text) > max {
		return text[:max]
	}
	return text
}
