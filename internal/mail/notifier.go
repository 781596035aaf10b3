package mail

import "context"

// Notifier delivers a single message to a recipient. Implementations
// may send directly or hand the message to a queue for a worker.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is the serializable mail job shared by the queue notifier
// and the delivery worker.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
