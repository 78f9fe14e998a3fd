package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// Event is the envelope published for every state transition.
type Event struct {
	EventType  types.EventType `json:"event_type"`
	ContractID string          `json:"contract_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type QueueManager struct {
	cfg     *config.QueueConfig
	logger  *zap.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig, logger *zap.Logger) (*QueueManager, error) {
	if !cfg.Enabled {
		logger.Info("queue disabled, events will not be published")
		return &QueueManager{cfg: cfg, logger: logger}, nil
	}

	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue at %s: %w", cfg.Url, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}

	return &QueueManager{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		channel: channel,
	}, nil
}

// PublishEvent sends an event to the queue, retrying transient failures.
func (qm *QueueManager) PublishEvent(ctx context.Context, event *Event) error {
	if qm.channel == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType, err)
	}

	err = retry.Do(
		func() error {
			publishCtx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
			defer cancel()

			return qm.channel.PublishWithContext(
				publishCtx,
				"",
				qm.cfg.QueueName,
				false, // mandatory
				false, // immediate
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					Body:         body,
				},
			)
		},
		retry.Context(ctx),
		retry.Attempts(qm.cfg.MaxRetryTimes),
		retry.Delay(qm.cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			qm.logger.Warn("failed to publish event, retrying",
				zap.Uint("attempt", n),
				zap.String("event_type", string(event.EventType)),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to publish event %s: %w", event.EventType, err)
	}

	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	qm.logger.Info("shutting down queue manager")
	if qm.channel != nil {
		if err := qm.channel.Close(); err != nil {
			qm.logger.Error("failed to close queue channel", zap.Error(err))
		}
	}
	if qm.conn != nil {
		if err := qm.conn.Close(); err != nil {
			qm.logger.Error("failed to close queue connection", zap.Error(err))
		}
	}
}
