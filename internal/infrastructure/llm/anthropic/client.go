// Package anthropic implements the intent classifier port against the
// Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/resilience"
)

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	guard      *resilience.Guard
	logger     *slog.Logger
}

func New(baseURL, apiKey, model string, requestsPerMinute int, logger *slog.Logger) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		guard:      resilience.NewGuard("anthropic", resilience.DefaultConfig(), classifyAnthropicError, logger),
		logger:     logger,
	}
}

func (c *Client) AnalyzeQuery(ctx context.Context, text string, history []domain.ConversationEntry) (domain.QueryIntent, error) {
	raw, err := c.complete(ctx, "analyze query", analyzeSystemPrompt, analyzeUserPrompt(text, history))
	if err != nil {
		return domain.QueryIntent{}, err
	}

	var parsed struct {
		Intent     string            `json:"intent"`
		Parameters map[string]string `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.QueryIntent{}, fmt.Errorf("parse intent json: %w", err)
	}

	intent := domain.QueryIntent{
		Intent:     normalizeIntent(parsed.Intent),
		Parameters: parsed.Parameters,
	}
	intent.Filters = filtersFromParameters(parsed.Parameters)
	return intent, nil
}

func (c *Client) ExtractTransaction(ctx context.Context, text string) (domain.TransactionDraft, error) {
	raw, err := c.complete(ctx, "extract transaction", extractSystemPrompt, extractTransactionPrompt(text))
	if err != nil {
		return domain.TransactionDraft{}, err
	}

	var parsed struct {
		Type        string            `json:"type"`
		Amount      json.Number       `json:"amount"`
		Currency    string            `json:"currency"`
		Description string            `json:"description"`
		Category    string            `json:"category"`
		Date        string            `json:"date"`
		Recurring   bool              `json:"recurring"`
		Frequency   string            `json:"frequency"`
		StartDate   string            `json:"start_date"`
		EndDate     string            `json:"end_date"`
		Tags        map[string]string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.TransactionDraft{}, fmt.Errorf("parse transaction json: %w", err)
	}

	draft := domain.TransactionDraft{
		Type:        domain.TransactionType(parsed.Type),
		Currency:    parsed.Currency,
		Description: parsed.Description,
		Category:    parsed.Category,
		Date:        parsed.Date,
		Recurring:   parsed.Recurring,
		Frequency:   domain.Frequency(parsed.Frequency),
		StartDate:   parsed.StartDate,
		EndDate:     parsed.EndDate,
		Tags:        parsed.Tags,
	}
	if amount, err := decimal.NewFromString(parsed.Amount.String()); err == nil {
		draft.Amount = amount
	}
	return draft, nil
}

func (c *Client) ExtractDocument(ctx context.Context, text string, docType domain.DocumentType) (domain.DocumentDraft, error) {
	raw, err := c.complete(ctx, "extract document", extractSystemPrompt, extractDocumentPrompt(text, docType))
	if err != nil {
		return domain.DocumentDraft{}, err
	}

	var draft domain.DocumentDraft
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &draft); err != nil {
		return domain.DocumentDraft{}, fmt.Errorf("parse document json: %w", err)
	}
	return draft, nil
}

// complete sends one user message and returns the first text block of the
// response. Calls pass through the rate limiter first, then the guard.
func (c *Client) complete(ctx context.Context, operation, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	request := map[string]any{
		"model":      c.model,
		"max_tokens": defaultMaxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	err := c.guard.Do(ctx, operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/messages", request, &response, operation)
	})
	if err != nil {
		return "", wrapTemporary(operation, err)
	}

	for _, block := range response.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic %s: empty response", operation)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(detail)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// extractJSONObject strips markdown fences and prose around the first JSON
// object in a model response.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func normalizeIntent(intent string) string {
	switch intent {
	case domain.IntentTransactionCreate, domain.IntentTransactionList,
		domain.IntentTransactionSearch, domain.IntentDocumentProcess,
		domain.IntentFinancialAnalysis, domain.IntentReportGenerate:
		return intent
	default:
		return domain.IntentGeneralQuery
	}
}

// filtersFromParameters lifts the classifier's string parameters into a
// typed filter set. Unparseable values are dropped, never guessed at.
func filtersFromParameters(params map[string]string) domain.FilterSet {
	var out domain.FilterSet
	if params == nil {
		return out
	}

	switch params["type"] {
	case "income":
		out.Type = domain.TypeIncome
	case "expense":
		out.Type = domain.TypeExpense
	}
	out.Category = params["category"]

	if min, err := decimal.NewFromString(params["min_amount"]); err == nil {
		out.MinAmount = &min
	}
	if max, err := decimal.NewFromString(params["max_amount"]); err == nil {
		out.MaxAmount = &max
	}

	from, fromErr := time.Parse("2006-01-02", params["date_from"])
	to, toErr := time.Parse("2006-01-02", params["date_to"])
	if fromErr == nil && toErr == nil {
		out.DateRange = &domain.DateRange{Start: from, End: to}
	}
	return out
}
