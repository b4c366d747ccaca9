package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
	heartbeat      = 10 * time.Second
)

var (
	// ErrCircuitOpen is returned by publish calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrNotConnected is returned by publish calls while the link is being restored.
	ErrNotConnected = errors.New("broker connection not ready")
	errClientClosed = errors.New("client closed")
)

// EventHandler processes one decoded ledger event.
type EventHandler func(ctx context.Context, event *LedgerEvent) error

// Client publishes and consumes ledger events on a direct exchange.
// The queue is bound with its own name as routing key.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger
	onState      func(state int)

	dial         func(url string) (*amqp091.Connection, error)
	reconnecting atomic.Bool

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool

	failureMu    sync.Mutex
	lastFailure  time.Time
	failureCount int64
	state        int32
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStateObserver is called with the breaker state after every change.
func WithStateObserver(fn func(state int)) Option {
	return func(c *Client) { c.onState = fn }
}

func NewClient(url, exchangeName, queueName string, opts ...Option) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dialBroker,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = applog.Wrap(nil, applog.ComponentAMQP)
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// dialBroker bounds the TCP and handshake time so a black-holed broker
// fails within dialTimeout.
func dialBroker(url string) (*amqp091.Connection, error) {
	return amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
}

// connect dials the broker and declares the topology. Callers hold no lock.
func (c *Client) connect() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errClientClosed
	}
	conn, err := c.dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		channel.Close()
		conn.Close()
		return errClientClosed
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		queueName,    // queue name
		queueName,    // routing key (same as queue name for direct exchange)
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// liveChannel returns the current channel if it is still open.
func (c *Client) liveChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel
	}
	return nil
}

// openChannel returns a live channel, reconnecting in the caller's goroutine
// if the previous one died. Only the consumer uses it.
func (c *Client) openChannel() (*amqp091.Channel, error) {
	if ch := c.liveChannel(); ch != nil {
		return ch, nil
	}
	c.closeConn()
	if err := c.connect(); err != nil {
		return nil, err
	}
	if ch := c.liveChannel(); ch != nil {
		return ch, nil
	}
	return nil, fmt.Errorf("open channel: %w", amqp091.ErrClosed)
}

// publishChannel never dials. Without a live channel it starts one
// background reconnect and fails with ErrNotConnected.
func (c *Client) publishChannel() (*amqp091.Channel, error) {
	if ch := c.liveChannel(); ch != nil {
		return ch, nil
	}
	c.reconnectAsync()
	return nil, ErrNotConnected
}

func (c *Client) reconnectAsync() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.reconnecting.Store(false)
		c.closeConn()
		if err := c.connect(); err != nil {
			if !errors.Is(err, errClientClosed) {
				c.logger.Warn("Publisher reconnect failed", applog.FieldError, err)
			}
			return
		}
		c.logger.Info("Publisher reconnected", "exchange", c.exchangeName)
	}()
}

// PublishSummaryRecorded announces the summary written for month.
func (c *Client) PublishSummaryRecorded(ctx context.Context, month string, summary core.MonthlySummary, at time.Time) error {
	return c.publish(ctx, NewSummaryRecordedEvent(month, summary, at))
}

// PublishLedgerCleared announces a full reset.
func (c *Client) PublishLedgerCleared(ctx context.Context, at time.Time) error {
	return c.publish(ctx, NewLedgerClearedEvent(at))
}

func (c *Client) publish(ctx context.Context, event *LedgerEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", event.Type, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.publishChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         event.Type,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published ledger event",
		applog.FieldEventType, event.Type,
		applog.FieldMonth, event.Month,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Consume delivers queue messages to handler until ctx is done. A lost
// connection is retried with exponential backoff.
func (c *Client) Consume(ctx context.Context, handler EventHandler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "Consumer lost connection, retrying",
			applog.FieldError, err,
			"attempt", attempt,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler EventHandler, connected func()) error {
	ch, err := c.openChannel()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks processed messages. Undecodable bodies are dropped,
// handler failures are requeued.
func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler EventHandler) {
	event, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.ErrorContext(ctx, "Failed to nack message", applog.FieldError, nerr)
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			applog.FieldError, err,
			applog.FieldEventType, event.Type)
		if nerr := d.Nack(false, true); nerr != nil {
			c.logger.ErrorContext(ctx, "Failed to nack message", applog.FieldError, nerr)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.ErrorContext(ctx, "Failed to ack message", applog.FieldError, err)
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
		c.conn = nil
	}
	return errors.Join(errs...)
}
