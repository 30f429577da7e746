package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"cmms/internal/platform/metrics"
)

// Worker consumes registration-submitted events and delivers receipt emails.
// A record that cannot be decoded or delivered is logged and skipped; receipts
// are best-effort and must never wedge the consumer group.
type Worker struct {
	client  *kgo.Client
	sender  EmailSender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(brokers []string, topic, group string, sender EmailSender, logger *slog.Logger, m *metrics.Metrics) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Worker{client: client, sender: sender, logger: logger, metrics: m}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	defer w.client.Close()

	for {
		fetches := w.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			w.logger.ErrorContext(ctx, "notify fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			w.handle(ctx, record)
		})
	}
}

func (w *Worker) handle(ctx context.Context, record *kgo.Record) {
	var event RegistrationSubmitted
	if err := json.Unmarshal(record.Value, &event); err != nil {
		w.logger.ErrorContext(ctx, "dropping undecodable notification",
			"offset", record.Offset,
			"error", err,
		)
		w.countFailure()
		return
	}

	if err := w.sender.SendReceipt(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "receipt delivery failed",
			"registration_id", event.RegistrationID,
			"recipient", event.RecipientEmail,
			"error", err,
		)
		w.countFailure()
		return
	}

	w.logger.InfoContext(ctx, "receipt delivered",
		"registration_id", event.RegistrationID,
		"recipient", event.RecipientEmail,
	)
}

func (w *Worker) countFailure() {
	if w.metrics != nil {
		w.metrics.NotificationsFailed.Inc()
	}
}
