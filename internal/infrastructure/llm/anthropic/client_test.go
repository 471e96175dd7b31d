package anthropic

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func messageResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(body)
}

func newTestClient(serverURL string) *Client {
	return New(serverURL, "test-key", "claude-test", 600, slog.New(slog.DiscardHandler))
}

func TestAnalyzeQueryParsesIntentAndFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") == "" {
			t.Error("missing auth headers")
		}
		w.Write([]byte(messageResponse(`{"intent":"transaction_search","parameters":{"type":"expense","category":"Marketing","date_from":"2024-05-01","date_to":"2024-05-31","min_amount":"100"}}`)))
	}))
	defer server.Close()

	intent, err := newTestClient(server.URL).AnalyzeQuery(context.Background(), "gastos de marketing de mayo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if intent.Intent != domain.IntentTransactionSearch {
		t.Fatalf("intent %q", intent.Intent)
	}
	if intent.Filters.Type != domain.TypeExpense || intent.Filters.Category != "Marketing" {
		t.Fatalf("filters %+v", intent.Filters)
	}
	if intent.Filters.DateRange == nil || intent.Filters.DateRange.Start.Day() != 1 {
		t.Fatalf("date range %+v", intent.Filters.DateRange)
	}
	if intent.Filters.MinAmount == nil || !intent.Filters.MinAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("min amount %v", intent.Filters.MinAmount)
	}
}

func TestAnalyzeQueryStripsMarkdownFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(messageResponse("```json\n{\"intent\":\"report_generate\",\"parameters\":{}}\n```")))
	}))
	defer server.Close()

	intent, err := newTestClient(server.URL).AnalyzeQuery(context.Background(), "monthly report", nil)
	if err != nil {
		t.Fatal(err)
	}
	if intent.Intent != domain.IntentReportGenerate {
		t.Fatalf("intent %q", intent.Intent)
	}
}

func TestAnalyzeQueryUnknownIntentFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(messageResponse(`{"intent":"weather_forecast","parameters":{}}`)))
	}))
	defer server.Close()

	intent, err := newTestClient(server.URL).AnalyzeQuery(context.Background(), "will it rain", nil)
	if err != nil {
		t.Fatal(err)
	}
	if intent.Intent != domain.IntentGeneralQuery {
		t.Fatalf("intent %q", intent.Intent)
	}
}

func TestExtractTransactionParsesDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(messageResponse(`{"type":"expense","amount":49.99,"currency":"EUR","description":"Figma","category":"Software","date":"2024-06-10","recurring":true,"frequency":"monthly"}`)))
	}))
	defer server.Close()

	draft, err := newTestClient(server.URL).ExtractTransaction(context.Background(), "figma 49,99 al mes")
	if err != nil {
		t.Fatal(err)
	}
	if draft.Type != domain.TypeExpense || !draft.Amount.Equal(decimal.NewFromFloat(49.99)) {
		t.Fatalf("draft %+v", draft)
	}
	if !draft.Recurring || draft.Frequency != domain.FrequencyMonthly {
		t.Fatalf("recurrence not captured: %+v", draft)
	}
}

func TestExtractDocumentParsesDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(messageResponse(`{"type":"invoice","issuer":"Hetzner","date":"2024-06-01","total_amount":"42.90","currency":"EUR"}`)))
	}))
	defer server.Close()

	draft, err := newTestClient(server.URL).ExtractDocument(context.Background(), "invoice text", domain.DocumentInvoice)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Issuer != "Hetzner" || draft.TotalAmount != "42.90" {
		t.Fatalf("draft %+v", draft)
	}
}

func TestClientErrorStatusIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).AnalyzeQuery(context.Background(), "anything", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("auth failure misclassified as temporary: %v", err)
	}
}

func TestFiltersFromParametersDropsPartialDates(t *testing.T) {
	got := filtersFromParameters(map[string]string{"date_from": "2024-05-01"})
	if got.DateRange != nil {
		t.Fatalf("half-open range should be dropped: %+v", got.DateRange)
	}
}
