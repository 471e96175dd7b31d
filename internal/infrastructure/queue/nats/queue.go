// Package nats implements the message queue port on NATS core subjects:
// one for document processing hand-off and one for triggering a recurring
// scheduling pass.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/resilience"
)

const workerGroup = "workers"

type Queue struct {
	conn             *nats.Conn
	documentsSubject string
	recurringSubject string
	guard            *resilience.Guard
	logger           *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, documentsSubject, recurringSubject string, options Options, logger *slog.Logger) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("finance-ai-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:             conn,
		documentsSubject: documentsSubject,
		recurringSubject: recurringSubject,
		guard:            resilience.NewGuard("nats", resilience.DefaultConfig(), classifyNATSError, logger),
		logger:           logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	return q.publish(ctx, q.documentsSubject, []byte(documentID))
}

func (q *Queue) PublishRecurringRun(ctx context.Context) error {
	return q.publish(ctx, q.recurringSubject, []byte("run"))
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	err := q.guard.Do(ctx, "publish "+subject, func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	})
	return wrapTemporaryIfNeeded(err)
}

func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.documentsSubject, func(handlerCtx context.Context, msg *nats.Msg) error {
		return handler(handlerCtx, string(msg.Data))
	})
}

func (q *Queue) SubscribeRecurringRun(ctx context.Context, handler func(context.Context) error) error {
	return q.subscribe(ctx, q.recurringSubject, func(handlerCtx context.Context, _ *nats.Msg) error {
		return handler(handlerCtx)
	})
}

// subscribe blocks until ctx is cancelled, then drains the subscription so
// in-flight messages finish before shutdown.
func (q *Queue) subscribe(ctx context.Context, subject string, handle func(context.Context, *nats.Msg) error) error {
	sub, err := q.conn.QueueSubscribe(subject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handle(handlerCtx, msg); err != nil {
			q.logger.Error("queue handler failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
