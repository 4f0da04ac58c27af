package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
)

// RabbitMQ announces link changes on a durable direct exchange so other
// processes can refresh their views of an event.
type RabbitMQ struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}, nil
}

type LinkChangeMessage struct {
	Action    domain.LinkAction     `json:"action"`
	Kind      domain.AttachmentKind `json:"kind"`
	EventID   string                `json:"event_id"`
	ItemID    string                `json:"item_id"`
	UserID    string                `json:"user_id,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

func (r *RabbitMQ) Publish(ctx context.Context, change domain.LinkChange) error {
	msg := LinkChangeMessage{
		Action:    change.Action,
		Kind:      change.Kind,
		EventID:   change.EventID,
		ItemID:    change.ItemID,
		UserID:    auth.CurrentUserID(ctx),
		Timestamp: change.At,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         string(change.Kind) + "." + string(change.Action),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published link change",
		"kind", change.Kind,
		"action", change.Action,
		"event_id", change.EventID,
		"item_id", change.ItemID,
	)

	return nil
}

// OnLinkChange publishes change and logs failures. It has the shape of a
// link change subscriber; a broker outage never fails the mutation itself.
func (r *RabbitMQ) OnLinkChange(ctx context.Context, change domain.LinkChange) {
	if err := r.Publish(ctx, change); err != nil {
		r.logger.Error("failed to publish link change", "event_id", change.EventID, "item_id", change.ItemID, "error", err)
	}
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
