package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/model"
)

type recordEvent func(ctx context.Context, ev model.ReservationEvent) error

// Consumer persists reservation lifecycle events to the audit table.
type Consumer struct {
	recordEventHandler recordEvent
	log                *zap.Logger
}

func NewConsumer(recordEvent recordEvent, log *zap.Logger) *Consumer {
	return &Consumer{
		recordEventHandler: recordEvent,
		log:                log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var ev model.ReservationEvent
			if err := json.Unmarshal(message.Value, &ev); err != nil {
				consumer.log.Error("unmarshal event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.recordEventHandler(context.Background(), ev); err != nil {
				consumer.log.Error("consumer.recordEventHandler", zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
