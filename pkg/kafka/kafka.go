package kafka

import (
	"context"
	"log"

	"github.com/IBM/sarama"
)

const (
	ReservationEventsTopic = "reservation-events"

	AuditConsumerGroup = "catalog-audit"
)

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
}

// Enabled reports whether brokers are configured; events are optional at runtime.
func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume runs the consumer-group session loop until ctx is cancelled.
func Consume(ctx context.Context, consumer sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topic string) {
	for {
		if err := consumer.Consume(ctx, []string{topic}, handler); err != nil {
			log.Printf("kafka consume: %v", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
