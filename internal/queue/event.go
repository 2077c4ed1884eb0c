// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// MailQueueName is the durable queue carrying outbound mail jobs.
const MailQueueName = "mail.outbound"

// MailJob is published for non-critical email (e.g. the welcome message
// after verification). It contains everything the consumer needs so no
// database access is required on the worker side.
type MailJob struct {
	ID         string `json:"id"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	EnqueuedAt string `json:"enqueued_at"`
}
