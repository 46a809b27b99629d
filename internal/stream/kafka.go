// Package stream publishes delivered notifications to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwise1/geofence_reminders/config"
	"github.com/bwise1/geofence_reminders/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

const writeTimeout = 5 * time.Second

// NotificationWriter produces one message per delivered notification.
// It implements platform.Sink.
type NotificationWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotificationWriter creates a Kafka producer for the configured topic.
func NewNotificationWriter(cfg *config.Config, logger *slog.Logger) *NotificationWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &NotificationWriter{writer: w, logger: logger}
}

// Deliver publishes n keyed by its notification id.
func (w *NotificationWriter) Deliver(ctx context.Context, n model.DeliveredNotification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	w.logger.Debug("notification published", "id", n.ID, "topic", w.writer.Topic)
	return nil
}

func (w *NotificationWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DeliveredNotification into a Kafka message.
func serializeToMessage(n model.DeliveredNotification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "delivered_at", Value: []byte(n.DeliveredAt.Format(time.RFC3339))},
	}
	if n.Event != "" {
		headers = append(headers, kafkago.Header{Key: "region_event", Value: []byte(n.Event)})
	}
	return kafkago.Message{
		Key:     []byte(n.ID),
		Value:   data,
		Headers: headers,
	}, nil
}
