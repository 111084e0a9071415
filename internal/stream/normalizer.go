// Package stream runs the Kafka streaming normalizer: term-count vectors
// arrive on an input topic, are normalized with the currently fitted model,
// and the weight vectors are published to an output topic.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexstat/pivotnorm/internal/normd"
	"github.com/lexstat/pivotnorm/internal/weighting"
	"github.com/lexstat/pivotnorm/pkg/config"
	"github.com/lexstat/pivotnorm/pkg/kafka"
	"github.com/lexstat/pivotnorm/pkg/metrics"
)

// CountMessage is the inbound wire format.
type CountMessage struct {
	DocID string                `json:"doc_id"`
	Terms weighting.CountVector `json:"terms"`
}

// WeightMessage is the outbound wire format.
type WeightMessage struct {
	DocID   string                 `json:"doc_id"`
	Weights weighting.WeightVector `json:"weights"`
	Model   string                 `json:"model"`
}

// Normalizer consumes count vectors and publishes normalized vectors.
// Messages arriving before a model has been fitted are skipped and logged;
// they are committed so the consumer does not wedge on them.
type Normalizer struct {
	service  *normd.Service
	consumer *kafka.Consumer
	producer *kafka.Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New wires a Normalizer onto the configured input and output topics.
func New(service *normd.Service, kafkaCfg config.KafkaConfig, streamCfg config.StreamConfig, m *metrics.Metrics) *Normalizer {
	n := &Normalizer{
		service:  service,
		producer: kafka.NewProducer(kafkaCfg, streamCfg.OutputTopic),
		metrics:  m,
		logger:   slog.Default().With("component", "stream-normalizer"),
	}
	n.consumer = kafka.NewConsumer(kafkaCfg, streamCfg.InputTopic, n.handle)
	return n
}

// Start runs the consume loop until ctx is cancelled.
func (n *Normalizer) Start(ctx context.Context) error {
	n.logger.Info("stream normalizer started")
	return n.consumer.Start(ctx)
}

// Close releases the Kafka clients.
func (n *Normalizer) Close() error {
	if err := n.consumer.Close(); err != nil {
		return err
	}
	return n.producer.Close()
}

func (n *Normalizer) handle(ctx context.Context, key []byte, value []byte) error {
	if n.metrics != nil {
		n.metrics.StreamConsumedTotal.Inc()
	}
	var msg CountMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		n.logger.Error("dropping malformed message", "key", string(key), "error", err)
		return nil
	}

	transformer, digest, err := n.service.Current()
	if err != nil {
		n.logger.Warn("no fitted model, skipping document", "doc_id", msg.DocID)
		return nil
	}

	start := time.Now()
	weights := transformer.Transform(msg.Terms)
	if n.metrics != nil {
		n.metrics.TransformDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
		n.metrics.DocsNormalizedTotal.Inc()
		if len(weights) == 0 {
			n.metrics.ZeroVectorDocsTotal.Inc()
		}
	}

	out := WeightMessage{
		DocID:   msg.DocID,
		Weights: weights,
		Model:   digest,
	}
	if err := n.producer.Publish(ctx, kafka.Event{Key: msg.DocID, Value: out}); err != nil {
		return fmt.Errorf("publishing normalized vector for %s: %w", msg.DocID, err)
	}
	if n.metrics != nil {
		n.metrics.StreamPublishedTotal.Inc()
	}
	return nil
}
