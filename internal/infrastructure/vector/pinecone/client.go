// Package pinecone implements the vector index port against a
// Pinecone-compatible HTTP API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

type Client struct {
	baseURL    string
	apiKey     string
	namespace  string
	httpClient *http.Client
}

func New(baseURL, apiKey, namespace string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		namespace:  namespace,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Query(ctx context.Context, vector []float32, filters domain.FilterSet, topK int) ([]domain.VectorMatch, error) {
	reqBody := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": false,
	}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}
	if filter := buildFilter(filters); len(filter) > 0 {
		reqBody["filter"] = filter
	}

	var out struct {
		Matches []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"matches"`
	}
	if err := c.postJSON(ctx, "/query", reqBody, &out, "vector query"); err != nil {
		return nil, err
	}

	matches := make([]domain.VectorMatch, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, domain.VectorMatch{ID: m.ID, Score: m.Score})
	}
	return matches, nil
}

func (c *Client) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	type point struct {
		ID       string         `json:"id"`
		Values   []float32      `json:"values"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	reqBody := map[string]any{
		"vectors": []point{{ID: id, Values: vector, Metadata: metadata}},
	}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}
	return c.postJSON(ctx, "/vectors/upsert", reqBody, nil, "vector upsert")
}

func (c *Client) Delete(ctx context.Context, id string) error {
	reqBody := map[string]any{"ids": []string{id}}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}
	return c.postJSON(ctx, "/vectors/delete", reqBody, nil, "vector delete")
}

// buildFilter translates a FilterSet into the index's predicate language.
// Scalar fields become $eq predicates. Both amount bounds merge into one
// predicate object on the amount field, and a date range becomes a single
// inclusive range on the date field.
func buildFilter(filters domain.FilterSet) map[string]any {
	filter := map[string]any{}
	if filters.Type != "" {
		filter["type"] = map[string]any{"$eq": string(filters.Type)}
	}
	if filters.Category != "" {
		filter["category"] = map[string]any{"$eq": filters.Category}
	}

	amount := map[string]any{}
	if filters.MinAmount != nil {
		amount["$gte"] = filters.MinAmount.InexactFloat64()
	}
	if filters.MaxAmount != nil {
		amount["$lte"] = filters.MaxAmount.InexactFloat64()
	}
	if len(amount) > 0 {
		filter["amount"] = amount
	}

	if filters.DateRange != nil {
		filter["date"] = map[string]any{
			"$gte": filters.DateRange.Start.Format("2006-01-02"),
			"$lte": filters.DateRange.End.Format("2006-01-02"),
		}
	}
	return filter
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %s: %s", operation, resp.Status, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
