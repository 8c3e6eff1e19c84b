package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// RecipeEventsQueue is the durable queue carrying recipe lifecycle events.
const RecipeEventsQueue = "recipe_events"

// Recipe event types.
const (
	RecipeCreated = "recipe.created"
	RecipeUpdated = "recipe.updated"
	RecipeDeleted = "recipe.deleted"
)

// RecipeEvent is the JSON body published for every recipe change.
type RecipeEvent struct {
	Type       string    `json:"type"`
	RecipeID   uint      `json:"recipe_id"`
	AuthorID   uint      `json:"author_id"`
	UserID     uint      `json:"user_id"` // the user who made the change
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends recipe events somewhere.
type Publisher interface {
	PublishRecipeEvent(ctx context.Context, event RecipeEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRecipeEvent(context.Context, RecipeEvent) error { return nil }

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the
// recipe events queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	slog.Info("RabbitMQ client connected", "queue", RecipeEventsQueue)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		RecipeEventsQueue, // name
		true,              // durable (persists messages across broker restarts)
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", RecipeEventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishRecipeEvent publishes the event as persistent JSON to the recipe events queue.
func (c *Client) PublishRecipeEvent(_ context.Context, event RecipeEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",                // exchange: default exchange
		RecipeEventsQueue, // routing key: the queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	slog.Debug("recipe event published", "type", event.Type, "recipe_id", event.RecipeID)
	return nil
}

// Handler processes one decoded recipe event.
type Handler func(ctx context.Context, event RecipeEvent) error

// ConsumeRecipeEvents starts a goroutine delivering recipe events to handler
// until ctx is done or the channel closes.
func (c *Client) ConsumeRecipeEvents(ctx context.Context, handler Handler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack: acknowledged manually below
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("waiting for recipe events", "queue", queue.Name)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				Dispatch(ctx, msg, handler)
			}
		}
	}()

	return nil
}

type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	body() []byte
}

// Dispatch decodes one delivery and acks it on success. Undecodable messages
// are dropped; handler failures are requeued.
func Dispatch(ctx context.Context, msg amqp.Delivery, handler Handler) {
	dispatch(ctx, amqpDelivery{msg}, handler)
}

type amqpDelivery struct{ amqp.Delivery }

func (d amqpDelivery) body() []byte { return d.Body }

func dispatch(ctx context.Context, msg delivery, handler Handler) {
	var event RecipeEvent
	if err := json.Unmarshal(msg.body(), &event); err != nil {
		slog.Warn("dropping malformed recipe event", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		slog.Error("failed to handle recipe event", "type", event.Type, "recipe_id", event.RecipeID, "error", err)
		if err := msg.Nack(false, true); err != nil {
			slog.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message", "error", err)
	}
}
