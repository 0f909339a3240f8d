package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"media_syndicator/internal/domain"
)

var (
	ErrUnroutable = errors.New("no queue bound for destination")
	ErrNacked     = errors.New("broker rejected delivery")
)

// RabbitMQ is a delivery sink that publishes each message to a topic exchange,
// routed by destination id. Consumers bind queues to the destinations they serve.
// Publishes are mandatory and confirmed: Send returns only once the broker has
// accepted the message into at least one queue.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	returns  chan amqp.Return
	exchange string
	logger   *slog.Logger

	// amqp channels are not safe for concurrent publishing, and confirms
	// are matched to returns one publish at a time.
	mu sync.Mutex
}

type Config struct {
	URL      string
	Exchange string
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
		"topic",
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

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	returns := ch.NotifyReturn(make(chan amqp.Return, 16))

	logger.Info("connected to rabbitmq", "exchange", cfg.Exchange)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		returns:  returns,
		exchange: cfg.Exchange,
		logger:   logger.With("sink", "rabbitmq"),
	}, nil
}

type DeliveryMessage struct {
	Destination string         `json:"destination"`
	Message     domain.Message `json:"message"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Resolve accepts any non-empty routing key; the broker has no notion of a
// missing destination.
func (r *RabbitMQ) Resolve(_ context.Context, destinationID string) (domain.Destination, error) {
	if destinationID == "" {
		return domain.Destination{}, fmt.Errorf("empty routing key: %w", domain.ErrDestinationUnresolvable)
	}

	return domain.Destination{
		ID:        destinationID,
		Reference: Reference(r.exchange, destinationID),
	}, nil
}

func (r *RabbitMQ) Send(ctx context.Context, dest domain.Destination, msg domain.Message) error {
	body, err := json.Marshal(DeliveryMessage{
		Destination: dest.ID,
		Message:     msg,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.drainReturns()

	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		r.exchange,
		dest.ID,
		true,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.ItemID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("item %s: %w", msg.ItemID, ErrNacked)
	}

	// The broker sends basic.return before the ack of the same publish.
	select {
	case ret := <-r.returns:
		return fmt.Errorf("routing key %q: %s: %w", ret.RoutingKey, ret.ReplyText, ErrUnroutable)
	default:
	}

	r.logger.Debug("published delivery",
		"item_id", msg.ItemID,
		"routing_key", dest.ID,
	)

	return nil
}

func (r *RabbitMQ) drainReturns() {
	for {
		select {
		case ret := <-r.returns:
			r.logger.Warn("discarding stale return", "message_id", ret.MessageId)
		default:
			return
		}
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

func Reference(exchange, routingKey string) string {
	return fmt.Sprintf("amqp:%s/%s", exchange, routingKey)
}
