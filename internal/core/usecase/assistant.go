package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

const historyWindow = 10

// Assistant turns one free-text message into an action: the classifier
// picks the intent, the assistant routes to transaction creation, record
// search, or report generation. The conversation log is owned by the caller
// and passed in per message.
type Assistant struct {
	classifier   ports.IntentClassifier
	retrieval    ports.RetrievalService
	transactions ports.TransactionService
	reports      ports.ReportService
	analysis     ports.AnalysisService
	logger       *slog.Logger
	now          func() time.Time
}

func NewAssistant(
	classifier ports.IntentClassifier,
	retrieval ports.RetrievalService,
	transactions ports.TransactionService,
	reports ports.ReportService,
	analysis ports.AnalysisService,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		classifier:   classifier,
		retrieval:    retrieval,
		transactions: transactions,
		reports:      reports,
		analysis:     analysis,
		logger:       logger,
		now:          time.Now,
	}
}

func (a *Assistant) Handle(ctx context.Context, message string, log *domain.ConversationLog) (*domain.AssistantReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	var history []domain.ConversationEntry
	if log != nil {
		history = log.Recent(historyWindow)
	}

	verdict, err := a.classifier.AnalyzeQuery(ctx, message, history)
	if err != nil {
		a.logger.Warn("intent classification failed, falling back to search",
			"error", err,
		)
		verdict = domain.QueryIntent{Intent: domain.IntentGeneralQuery}
	}

	reply, err := a.dispatch(ctx, message, verdict)
	if err != nil {
		return nil, err
	}
	reply.Intent = verdict.Intent

	if log != nil {
		log.Append("user", message)
		log.Append("assistant", reply.Message)
	}
	return reply, nil
}

func (a *Assistant) dispatch(ctx context.Context, message string, verdict domain.QueryIntent) (*domain.AssistantReply, error) {
	switch verdict.Intent {
	case domain.IntentTransactionCreate:
		return a.createTransaction(ctx, message)
	case domain.IntentReportGenerate:
		return a.generateReport(ctx, message, verdict)
	case domain.IntentFinancialAnalysis:
		return a.analyze(ctx, message, verdict)
	default:
		// transaction_list, transaction_search and general_query all
		// resolve through retrieval.
		return a.search(ctx, message, verdict)
	}
}

func (a *Assistant) createTransaction(ctx context.Context, message string) (*domain.AssistantReply, error) {
	tx, recurring, err := a.transactions.CreateFromText(ctx, message)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Recorded %s of %s in %s.", tx.Type, tx.Amount.StringFixed(2), categoryLabel(tx.Category))
	if recurring != nil {
		text += fmt.Sprintf(" It repeats %s; next occurrence on %s.",
			recurring.Frequency, recurring.NextDate.Format("2006-01-02"))
	}

	return &domain.AssistantReply{
		Message:     text,
		Transaction: tx,
		Recurring:   recurring,
	}, nil
}

func (a *Assistant) search(ctx context.Context, message string, verdict domain.QueryIntent) (*domain.AssistantReply, error) {
	result, err := a.retrieval.Search(ctx, message, 0, verdict.Filters)
	if err != nil {
		return nil, err
	}
	return &domain.AssistantReply{
		Message:   result.Explanation,
		Retrieval: result,
	}, nil
}

func (a *Assistant) generateReport(ctx context.Context, message string, verdict domain.QueryIntent) (*domain.AssistantReply, error) {
	rng := verdict.Filters.DateRange
	if rng == nil {
		if resolved, ok := resolveDateRange(message, a.now()); ok {
			rng = &resolved
		}
	}
	if rng == nil {
		// Without a period a report is meaningless; fall back to search so
		// the user still gets an answer.
		return a.search(ctx, message, verdict)
	}

	report, err := a.reports.Summary(ctx, *rng)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Between %s and %s: income %s, expenses %s, net %s.",
		rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"),
		report.Income.StringFixed(2), report.Expenses.StringFixed(2), report.Net.StringFixed(2))

	return &domain.AssistantReply{
		Message: text,
		Report:  report,
	}, nil
}

// analyze routes a financial_analysis verdict by its analysis_type
// parameter: runway (the default), a monthly income-versus-expense
// comparison, or a category breakdown over the requested period.
func (a *Assistant) analyze(ctx context.Context, message string, verdict domain.QueryIntent) (*domain.AssistantReply, error) {
	switch verdict.Parameters["analysis_type"] {
	case "categories", "category", "expenses":
		return a.analyzeCategories(ctx, message, verdict)
	case "monthly", "comparison":
		comparison, err := a.analysis.MonthlyComparison(ctx, 0)
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf("Income versus expenses over the last %d months.", len(comparison.Months))
		return &domain.AssistantReply{
			Message: text,
			Monthly: comparison,
		}, nil
	default:
		runway, err := a.analysis.Runway(ctx, 0)
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf("Cash balance %s with an average monthly burn of %s",
			runway.CashBalance.StringFixed(2), runway.AvgMonthlyBurn.StringFixed(2))
		if runway.Unbounded {
			text += "; the balance is not shrinking."
		} else {
			text += fmt.Sprintf("; roughly %.1f months of runway.", runway.RunwayMonths)
		}
		return &domain.AssistantReply{
			Message: text,
			Runway:  runway,
		}, nil
	}
}

func (a *Assistant) analyzeCategories(ctx context.Context, message string, verdict domain.QueryIntent) (*domain.AssistantReply, error) {
	rng := verdict.Filters.DateRange
	if rng == nil {
		if resolved, ok := resolveDateRange(message, a.now()); ok {
			rng = &resolved
		}
	}
	if rng == nil {
		// Category breakdowns default to the last three calendar months.
		now := a.now()
		rng = &domain.DateRange{
			Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -2, 0),
			End:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		}
	}

	txType := verdict.Filters.Type
	if txType == "" {
		txType = domain.TypeExpense
	}

	report, err := a.reports.CategoryAnalysis(ctx, *rng, txType)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Total %s of %s across %d categories between %s and %s.",
		report.Type, report.Total.StringFixed(2), len(report.Categories),
		rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))

	return &domain.AssistantReply{
		Message:    text,
		Categories: report,
	}, nil
}

func categoryLabel(category string) string {
	if category == "" {
		return "Uncategorized"
	}
	return category
}
