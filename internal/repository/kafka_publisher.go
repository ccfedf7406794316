package repository

import (
	"context"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/domain/repository"
	pkgkafka "SignalFusion/pkg/kafka"
)

// KafkaCandlePublisher publishes closed candles keyed by series so each
// coin/timeframe stays ordered on one partition.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaCandlePublisher(producer *pkgkafka.Producer, topic string) *KafkaCandlePublisher {
	return &KafkaCandlePublisher{producer: producer, topic: topic}
}

func (p *KafkaCandlePublisher) PublishCandle(ctx context.Context, c *models.StreamCandle) error {
	return p.producer.Publish(ctx, p.topic, []byte(c.Key()), c)
}

func (p *KafkaCandlePublisher) PublishCandles(ctx context.Context, candles []*models.StreamCandle) error {
	if len(candles) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(candles))
	for _, c := range candles {
		if c == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(c.Key()), Value: c})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// KafkaPredictionPublisher emits every finished prediction.
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, pr *models.Prediction) error {
	return p.producer.Publish(ctx, p.topic, []byte(pr.Coin+":"+pr.Timeframe), pr)
}

// NoopPredictionPublisher drops predictions when Kafka is disabled.
type NoopPredictionPublisher struct{}

func (NoopPredictionPublisher) PublishPrediction(context.Context, *models.Prediction) error {
	return nil
}

var (
	_ repository.CandlePublisher     = (*KafkaCandlePublisher)(nil)
	_ repository.PredictionPublisher = (*KafkaPredictionPublisher)(nil)
	_ repository.PredictionPublisher = NoopPredictionPublisher{}
)

// KafkaLogPublisher ships aggregated log entries from the logger collector.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
