// Package queue_publisher publishes auth domain events to RabbitMQ.
// Errors are logged and returned so callers can ignore failures without
// interrupting the request flow: a broker outage must never block a
// login.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iradmi/vidstream-backend/internal/queue"
)

const activityQueueName = "auth.activity"

// Publisher publishes AuthActivityEvents. A zero URL disables publishing
// entirely, which keeps local development working without a broker.
type Publisher struct {
	url string
}

func New(url string) *Publisher { return &Publisher{url: url} }

// Publish sends ev to the auth.activity queue, stamping OccurredAt if the
// caller left it empty. Messages are marked persistent and the queue is
// declared durable so events survive broker restarts.
func (p *Publisher) Publish(ctx context.Context, ev q.AuthActivityEvent) error {
	if p == nil || p.url == "" {
		return nil
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		activityQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", activityQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
