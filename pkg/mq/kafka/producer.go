package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/huynhanx03/go-mongorepo/pkg/settings"
	"github.com/huynhanx03/go-mongorepo/pkg/utils"
)

var (
	ErrNoBrokers       = errors.New("kafka: no brokers configured")
	ErrNoTopic         = errors.New("kafka: no topic configured")
	ErrProducerFailed  = errors.New("kafka: failed to create producer")
	ErrPublishFailed   = errors.New("kafka: failed to publish events")
	ErrPublisherClosed = errors.New("kafka: publisher closed")
)

// NewProducer creates a synchronous producer from configuration.
func NewProducer(cfg *settings.Kafka) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProducerFailed, err)
	}
	return producer, nil
}

func producerConfig(cfg *settings.Kafka) *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.Return.Successes = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Partitioner = sarama.NewHashPartitioner

	if cfg.MaxRetries > 0 {
		c.Producer.Retry.Max = cfg.MaxRetries
	}
	if cfg.RetryBackoff > 0 {
		c.Producer.Retry.Backoff = utils.ToDurationMs(cfg.RetryBackoff)
	}
	if cfg.Timeout > 0 {
		c.Producer.Timeout = utils.ToDuration(cfg.Timeout)
		c.Net.DialTimeout = utils.ToDuration(cfg.Timeout)
	}
	if cfg.BatchSize > 0 {
		c.Producer.Flush.MaxMessages = cfg.BatchSize
	}
	return c
}
