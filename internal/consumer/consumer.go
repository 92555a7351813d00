package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/observability"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/pkg/mqtt"
)

// ReadingProcessor is the ingestion pipeline surface the consumer drives.
type ReadingProcessor interface {
	Process(ctx context.Context, reading models.SensorReading) (*models.Observation, error)
}

// Subscriber is the broker client surface: register a handler on a topic.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Consumer subscribes to the sensor telemetry topic and feeds each decoded
// payload into the pipeline. Drops are logged and counted, never retried: the
// sensor re-transmits on its own cadence.
type Consumer struct {
	cfg       *config.Config
	broker    Subscriber
	processor ReadingProcessor
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func New(cfg *config.Config, broker Subscriber, processor ReadingProcessor, metrics *observability.Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{
		cfg:       cfg,
		broker:    broker,
		processor: processor,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start subscribes to the telemetry topic.
func (c *Consumer) Start() error {
	topic := c.cfg.MQTT.Topic
	if err := c.broker.Subscribe(topic, c.cfg.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to start telemetry consumer: %w", err)
	}

	c.logger.Info("Telemetry consumer started", zap.String("topic", topic))
	return nil
}

// Stop removes the subscription.
func (c *Consumer) Stop() error {
	return c.broker.Unsubscribe(c.cfg.MQTT.Topic)
}

func (c *Consumer) handleMessage(topic string, payload []byte) error {
	reading, err := ParseReading(payload)
	if err != nil {
		c.metrics.MessagesDropped.WithLabelValues("decode").Inc()
		c.logger.Warn("Dropped undecodable telemetry message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}

	if _, err := c.processor.Process(context.Background(), reading); err != nil {
		// the pipeline already counted the drop reason
		c.logger.Warn("Dropped telemetry message",
			zap.String("topic", topic),
			zap.String("sensor_id", reading.SensorID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// ParseReading decodes one telemetry payload. sensor_id and a numeric value
// are mandatory; checksum and timestamp are optional.
func ParseReading(payload []byte) (models.SensorReading, error) {
	var reading models.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return models.SensorReading{}, fmt.Errorf("malformed telemetry payload: %w", err)
	}

	if reading.SensorID == "" {
		return models.SensorReading{}, fmt.Errorf("telemetry payload missing sensor_id")
	}

	return reading, nil
}
