package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
	"github.com/emontoro/finance-ai-assistant/internal/observability/metrics"
)

const (
	serviceName  = "finance-api"
	historyLimit = 20
)

type Router struct {
	assistant    ports.AssistantService
	retrieval    ports.RetrievalService
	transactions ports.TransactionService
	reports      ports.ReportService
	analysis     ports.AnalysisService
	ingest       ports.DocumentIngestor
	documents    ports.DocumentStore
	queue        ports.MessageQueue
	metrics      *metrics.HTTPServerMetrics
	logger       *slog.Logger
}

func NewRouter(
	assistant ports.AssistantService,
	retrieval ports.RetrievalService,
	transactions ports.TransactionService,
	reports ports.ReportService,
	analysis ports.AnalysisService,
	ingest ports.DocumentIngestor,
	documents ports.DocumentStore,
	queue ports.MessageQueue,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		assistant:    assistant,
		retrieval:    retrieval,
		transactions: transactions,
		reports:      reports,
		analysis:     analysis,
		ingest:       ingest,
		documents:    documents,
		queue:        queue,
		metrics:      m,
		logger:       logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/messages", rt.handleMessage)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/transactions", rt.transactionsCollection)
	mux.HandleFunc("/v1/transactions/", rt.transactionByID)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/reports/summary", rt.summaryReport)
	mux.HandleFunc("/v1/reports/categories", rt.categoryReport)
	mux.HandleFunc("/v1/analysis/runway", rt.runwayAnalysis)
	mux.HandleFunc("/v1/analysis/monthly", rt.monthlyAnalysis)
	mux.HandleFunc("/v1/projections", rt.createProjection)
	mux.HandleFunc("/v1/recurring/run", rt.triggerRecurringRun)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	Message string `json:"message"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

func (rt *Router) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	log := domain.NewConversationLog(historyLimit)
	for _, entry := range req.History {
		log.Append(entry.Role, entry.Content)
	}

	reply, err := rt.assistant.Handle(r.Context(), req.Message, log)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIntent(serviceName, reply.Intent)
	}
	writeJSON(w, http.StatusOK, reply)
}

type searchRequest struct {
	Query     string           `json:"query"`
	Limit     int              `json:"limit"`
	Type      string           `json:"type"`
	Category  string           `json:"category"`
	DateFrom  string           `json:"date_from"`
	DateTo    string           `json:"date_to"`
	MinAmount *decimal.Decimal `json:"min_amount"`
	MaxAmount *decimal.Decimal `json:"max_amount"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	seed, err := seedFilters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	result, err := rt.retrieval.Search(r.Context(), req.Query, req.Limit, seed)
	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, tierCounts(result), recordCount(result), time.Since(start), err)
	}
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func seedFilters(req searchRequest) (domain.FilterSet, error) {
	seed := domain.FilterSet{
		Category:  strings.TrimSpace(req.Category),
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
	}
	if req.Type != "" {
		seed.Type = domain.TransactionType(req.Type)
	}
	rng, err := parseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return domain.FilterSet{}, err
	}
	seed.DateRange = rng
	return seed, nil
}

func tierCounts(result *domain.RetrievalResult) map[string]int {
	if result == nil {
		return nil
	}
	counts := make(map[string]int, 4)
	for _, c := range result.Candidates {
		counts[string(c.Tier)]++
	}
	return counts
}

func recordCount(result *domain.RetrievalResult) int {
	if result == nil {
		return 0
	}
	return len(result.Records)
}

type createTransactionRequest struct {
	// Text, when set, is classified and extracted by the language model.
	// Otherwise Transaction is stored as given.
	Text        string              `json:"text"`
	Transaction *domain.Transaction `json:"transaction"`
}

type createTransactionResponse struct {
	Transaction *domain.Transaction   `json:"transaction"`
	Recurring   *domain.RecurringItem `json:"recurring,omitempty"`
}

func (rt *Router) transactionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createTransaction(w, r)
	case http.MethodGet:
		rt.listTransactions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if text := strings.TrimSpace(req.Text); text != "" {
		tx, recurring, err := rt.transactions.CreateFromText(r.Context(), text)
		if err != nil {
			rt.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: tx, Recurring: recurring})
		return
	}

	if req.Transaction == nil {
		writeError(w, http.StatusBadRequest, "either 'text' or 'transaction' is required")
		return
	}
	if err := rt.transactions.Create(r.Context(), req.Transaction); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: req.Transaction})
}

func (rt *Router) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := domain.FilterSet{
		Type:     domain.TransactionType(q.Get("type")),
		Category: q.Get("category"),
	}
	rng, err := parseDateRange(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters.DateRange = rng

	limit := parseIntParam(q.Get("limit"), 50)
	offset := parseIntParam(q.Get("offset"), 0)

	items, err := rt.transactions.List(r.Context(), filters, limit, offset)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": items})
}

func (rt *Router) transactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "transaction id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := rt.transactions.Get(r.Context(), id)
		if err != nil {
			rt.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	case http.MethodDelete:
		if err := rt.transactions.Delete(r.Context(), id); err != nil {
			rt.writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	docType := domain.DocumentType(r.FormValue("type"))
	doc, err := rt.ingest.Upload(r.Context(), fileHeader.Filename, docType, file)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.documents.GetDocument(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) summaryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rng, err := requiredDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := rt.reports.Summary(r.Context(), *rng)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) categoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rng, err := requiredDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txType := domain.TransactionType(r.URL.Query().Get("type"))
	if txType == "" {
		txType = domain.TypeExpense
	}

	report, err := rt.reports.CategoryAnalysis(r.Context(), *rng, txType)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) runwayAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	months := parseIntParam(r.URL.Query().Get("months"), 0)
	analysis, err := rt.analysis.Runway(r.Context(), months)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) monthlyAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	months := parseIntParam(r.URL.Query().Get("months"), 0)
	comparison, err := rt.analysis.MonthlyComparison(r.Context(), months)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

type projectionRequest struct {
	Name             string          `json:"name"`
	Months           int             `json:"months"`
	IncomeGrowthPct  decimal.Decimal `json:"income_growth_pct"`
	ExpenseGrowthPct decimal.Decimal `json:"expense_growth_pct"`
}

func (rt *Router) createProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	projection, err := rt.analysis.Project(r.Context(), req.Name, req.Months, domain.ProjectionAssumptions{
		IncomeGrowthPct:  req.IncomeGrowthPct,
		ExpenseGrowthPct: req.ExpenseGrowthPct,
	})
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projection)
}

func (rt *Router) triggerRecurringRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := rt.queue.PublishRecurringRun(r.Context()); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func requiredDateRange(r *http.Request) (*domain.DateRange, error) {
	q := r.URL.Query()
	rng, err := parseDateRange(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errMissingRange
	}
	return rng, nil
}

var errMissingRange = &paramError{"date_from and date_to are required"}

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

func parseDateRange(from, to string) (*domain.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, &paramError{"date_from and date_to must be set together"}
	}
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, &paramError{"date_from must be formatted as 2006-01-02"}
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, &paramError{"date_to must be formatted as 2006-01-02"}
	}
	return &domain.DateRange{Start: start, End: end}, nil
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
