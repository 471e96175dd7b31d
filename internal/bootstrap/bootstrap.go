package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emontoro/finance-ai-assistant/internal/config"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
	"github.com/emontoro/finance-ai-assistant/internal/core/usecase"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/embedding"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/extractor/pdfdoc"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/llm/anthropic"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/queue/nats"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/repository/postgres"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/storage/localfs"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/vector/pinecone"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentStore

	Assistant    ports.AssistantService
	Retrieval    ports.RetrievalService
	Transactions ports.TransactionService
	Reports      ports.ReportService
	Analysis     ports.AnalysisService
	Ingest       ports.DocumentIngestor
	Processor    ports.DocumentProcessor
	Scheduler    ports.RecurringProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	records := postgres.NewTransactionRepository(db)
	recurring := postgres.NewRecurringRepository(db)
	documents := postgres.NewDocumentRepository(db)
	for _, ensure := range []func(context.Context) error{
		records.EnsureSchema,
		recurring.EnsureSchema,
		documents.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSDocumentsSubject, cfg.NATSRecurringSubject, nats.Options{}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier := anthropic.New(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicRequestsPM, logger)
	embedder := embedding.NewHashEmbedder(cfg.EmbedDimension)
	index := pinecone.New(cfg.PineconeURL, cfg.PineconeAPIKey, cfg.PineconeNamespace)
	extractor := pdfdoc.New(storage)

	transactions := usecase.NewTransactions(records, recurring, index, embedder, classifier, logger)
	retriever := usecase.NewRetriever(records, index, embedder, cfg.SearchLimit, logger)
	reports := usecase.NewReports(records)
	analyzer := usecase.NewAnalyzer(records)
	ingest := usecase.NewDocumentIngest(documents, storage, queue, logger)
	processor := usecase.NewDocumentProcess(documents, extractor, classifier, transactions, embedder, index, logger)
	scheduler := usecase.NewRecurringScheduler(recurring, transactions, logger)
	assistant := usecase.NewAssistant(classifier, retriever, transactions, reports, analyzer, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: documents,

		Assistant:    assistant,
		Retrieval:    retriever,
		Transactions: transactions,
		Reports:      reports,
		Analysis:     analyzer,
		Ingest:       ingest,
		Processor:    processor,
		Scheduler:    scheduler,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
