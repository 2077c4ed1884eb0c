package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fundoo/notes-api/internal/mail"
)

// StartMailConsumer connects to RabbitMQ, declares the mail.outbound
// queue (durable), and delivers each job through the given sender. It
// runs a reconnect loop with exponential backoff and keeps running for
// the lifetime of the process; processing errors are logged and the
// offending message is rejected without requeue so a poison job cannot
// wedge the worker.
func StartMailConsumer(url string, sender mail.Sender) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("mail-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender mail.Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("mail-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var job MailJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Printf("mail-consumer: bad payload: %v", err)
			_ = d.Nack(false, false)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := sender.Send(ctx, job.To, job.Subject, job.Body)
		cancel()
		if err != nil {
			log.Printf("mail-consumer: send %s to %s failed: %v", job.ID, job.To, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}
