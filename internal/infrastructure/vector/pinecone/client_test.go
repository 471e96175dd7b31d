package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func TestBuildFilterMergesAmountBounds(t *testing.T) {
	min := decimal.NewFromInt(100)
	max := decimal.NewFromInt(500)
	filter := buildFilter(domain.FilterSet{MinAmount: &min, MaxAmount: &max})

	amount, ok := filter["amount"].(map[string]any)
	if !ok {
		t.Fatalf("filter %v has no amount predicate", filter)
	}
	if amount["$gte"] != 100.0 || amount["$lte"] != 500.0 {
		t.Fatalf("amount predicate %v", amount)
	}
	if len(filter) != 1 {
		t.Fatalf("amount bounds must share one predicate object: %v", filter)
	}
}

func TestBuildFilterFullSet(t *testing.T) {
	min := decimal.NewFromInt(10)
	window := domain.DateRange{
		Start: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	filter := buildFilter(domain.FilterSet{
		Type:      domain.TypeExpense,
		Category:  "Marketing",
		DateRange: &window,
		MinAmount: &min,
	})

	if eq := filter["type"].(map[string]any)["$eq"]; eq != "expense" {
		t.Fatalf("type predicate %v", eq)
	}
	if eq := filter["category"].(map[string]any)["$eq"]; eq != "Marketing" {
		t.Fatalf("category predicate %v", eq)
	}
	date := filter["date"].(map[string]any)
	if date["$gte"] != "2024-05-01" || date["$lte"] != "2024-05-31" {
		t.Fatalf("date predicate %v", date)
	}
}

func TestBuildFilterEmpty(t *testing.T) {
	if filter := buildFilter(domain.FilterSet{}); len(filter) != 0 {
		t.Fatalf("empty filter set produced %v", filter)
	}
}

func TestQuerySendsPredicatesAndParsesMatches(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "secret" {
			t.Error("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "tx-1", "score": 0.92},
				{"id": "tx-2", "score": 0.87},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "secret", "records")
	matches, err := client.Query(context.Background(), []float32{0.1, 0.2}, domain.FilterSet{Category: "Travel"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].ID != "tx-1" || matches[0].Score != 0.92 {
		t.Fatalf("matches %+v", matches)
	}
	if captured["topK"] != 5.0 || captured["namespace"] != "records" {
		t.Fatalf("request %v", captured)
	}
	filter := captured["filter"].(map[string]any)
	if filter["category"].(map[string]any)["$eq"] != "Travel" {
		t.Fatalf("filter %v", filter)
	}
}

func TestQueryErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "secret", "")
	if _, err := client.Query(context.Background(), []float32{0.1}, domain.FilterSet{}, 3); err == nil {
		t.Fatal("expected an error for a non-2xx status")
	}
}

func TestUpsertAndDeletePayloads(t *testing.T) {
	var paths []string
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "secret", "")
	err := client.Upsert(context.Background(), "tx-9", []float32{0.5}, map[string]any{"category": "Rent"})
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Delete(context.Background(), "tx-9"); err != nil {
		t.Fatal(err)
	}

	if paths[0] != "/vectors/upsert" || paths[1] != "/vectors/delete" {
		t.Fatalf("paths %v", paths)
	}
	vectors := bodies[0]["vectors"].([]any)
	point := vectors[0].(map[string]any)
	if point["id"] != "tx-9" {
		t.Fatalf("upsert point %v", point)
	}
	ids := bodies[1]["ids"].([]any)
	if ids[0] != "tx-9" {
		t.Fatalf("delete ids %v", ids)
	}
}
