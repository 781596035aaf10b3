package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/assigna-app/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
)

// QueueNotifier publishes mail jobs to a message-queue channel instead
// of sending inline. A Worker on the other side performs the delivery,
// keeping SMTP latency and retries out of the request path.
type QueueNotifier struct {
	queue   *mq.MQ
	channel string
}

func NewQueueNotifier(queue *mq.MQ, channel string) *QueueNotifier {
	return &QueueNotifier{queue: queue, channel: channel}
}

// Send enqueues one mail job.
func (n *QueueNotifier) Send(ctx context.Context, to, subject, body string) error {
	data, err := json.Marshal(Message{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("encode mail job: %w", err)
	}
	_, err = n.queue.Publish(ctx, n.channel, data, map[string]string{"kind": "mail"})
	return err
}

// Worker consumes mail jobs from a queue channel and hands each to the
// underlying sender. A send failure nacks the job for redelivery.
type Worker struct {
	queue   *mq.MQ
	channel string
	sender  Notifier
	log     *logrus.Logger
}

func NewWorker(queue *mq.MQ, channel string, sender Notifier, log *logrus.Logger) *Worker {
	return &Worker{queue: queue, channel: channel, sender: sender, log: log}
}

// Run blocks consuming jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.WithField("channel", w.channel).Info("mail worker started")

	return w.queue.Subscribe(ctx, w.channel, func(ctx context.Context, msg mq.Message) error {
		var job Message
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			// Undecodable jobs are dropped, not retried forever.
			w.log.WithError(err).WithField("id", msg.ID).Warn("dropping malformed mail job")
			return nil
		}

		if err := w.sender.Send(ctx, job.To, job.Subject, job.Body); err != nil {
			w.log.WithError(err).WithField("to", job.To).Error("mail delivery failed")
			return err
		}

		w.log.WithField("to", job.To).Debug("mail delivered")
		return nil
	})
}
