package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/halden-labs/answercore/internal/core/domain"
	"github.com/halden-labs/answercore/internal/infrastructure/resilience"
)

// Publisher emits safety-gate audit events onto a NATS subject. Delivery is
// best effort; the answer path never blocks on the audit trail.
type Publisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
}

func New(url, subject string, options Options) (*Publisher, error) {
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
		nats.Name("answercore"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) PublishSafetyEvent(ctx context.Context, event domain.SafetyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal safety event: %w", err)
	}

	call := func(context.Context) error {
		if err := p.conn.Publish(p.subject, data); err != nil {
			return domain.WrapError(domain.ErrTemporary, "nats publish", err)
		}
		return nil
	}

	if p.executor != nil {
		return p.executor.Execute(ctx, "audit.publish", call, classifyPublishError)
	}
	return call(ctx)
}

func classifyPublishError(err error) resilience.Classification {
	return resilience.Classification{
		Retryable:     domain.IsKind(err, domain.ErrTemporary),
		RecordFailure: domain.IsKind(err, domain.ErrTemporary),
	}
}
