// Package service holds the booking domain logic: the hold manager, the
// booking flow, the authorization ledger and the notification publisher.
// Handlers stay thin; everything here is written against small store
// interfaces so the state machines can be tested with in-memory stubs.
package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/aquadapt/swimbook/internal/queue"
)

// Notifier publishes domain events for the notification dispatcher.  All
// implementations are fire-and-forget: a failed publish is logged and
// swallowed, never failing the booking or approval that triggered it.
type Notifier interface {
    BookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent)
    AuthorizationDecided(ctx context.Context, ev q.AuthorizationDecidedEvent)
    RenewalAlert(ctx context.Context, ev q.RenewalAlertEvent)
}

// AMQPNotifier publishes events to RabbitMQ.  Each publish dials its own
// short-lived connection; notification volume is low enough that connection
// pooling would buy nothing.
type AMQPNotifier struct {
    URL string
}

// NewAMQPNotifier returns a notifier publishing to the given broker URL.
func NewAMQPNotifier(url string) *AMQPNotifier { return &AMQPNotifier{URL: url} }

func (n *AMQPNotifier) BookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent) {
    n.publish(ctx, q.BookingConfirmedQueue, ev)
}

func (n *AMQPNotifier) AuthorizationDecided(ctx context.Context, ev q.AuthorizationDecidedEvent) {
    n.publish(ctx, q.AuthorizationDecidedQueue, ev)
}

func (n *AMQPNotifier) RenewalAlert(ctx context.Context, ev q.RenewalAlertEvent) {
    n.publish(ctx, q.RenewalAlertQueue, ev)
}

// publish declares the queue (idempotent, durable) and sends one persistent
// JSON message.  Errors are logged and dropped.
func (n *AMQPNotifier) publish(ctx context.Context, queueName string, event interface{}) {
    conn, err := amqp.Dial(n.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
    }
}

// NopNotifier drops all events.  Used when no broker URL is configured and
// in tests.
type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(context.Context, q.BookingConfirmedEvent)         {}
func (NopNotifier) AuthorizationDecided(context.Context, q.AuthorizationDecidedEvent) {}
func (NopNotifier) RenewalAlert(context.Context, q.RenewalAlertEvent)                 {}
