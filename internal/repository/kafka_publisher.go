package repository

import (
	"context"

	"BrentShift/internal/domain/models"
	pkgkafka "BrentShift/pkg/kafka"
)

// KafkaPublisher announces completed runs on a Kafka topic and doubles as the
// sink for the warn-level log collector.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishResult emits a compact run announcement keyed by run id. Consumers
// wanting the full artifact fetch it from the store or the API.
func (p *KafkaPublisher) PublishResult(ctx context.Context, res *models.AnalysisResult) error {
	dates := make([]string, 0, len(res.ChangePoints))
	for _, cp := range res.ChangePoints {
		dates = append(dates, cp.Date)
	}
	return p.producer.Publish(ctx, p.topic, []byte(res.RunID), map[string]interface{}{
		"run_id":             res.RunID,
		"generated_at":       res.GeneratedAt,
		"breaks":             res.Breaks,
		"change_point_dates": dates,
		"max_rhat":           res.Diagnostics.MaxRHat,
		"converged":          res.Diagnostics.Converged,
	})
}

// PublishMessage forwards an arbitrary payload, which is the shape the log
// collector flushes batched warnings through.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher is wired when run announcements are disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishResult(ctx context.Context, res *models.AnalysisResult) error { return nil }

func (NoopPublisher) Close() error { return nil }
