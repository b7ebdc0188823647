// Package kafka publishes repository change events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/huynhanx03/go-mongorepo/pkg/database/mongodb"
	"github.com/huynhanx03/go-mongorepo/pkg/mq/batcher"
	"github.com/huynhanx03/go-mongorepo/pkg/settings"
)

const defaultQueueSize = 64

// Publisher is a mongodb.ChangeListener that sends events to Kafka in batches.
// Events are keyed by collection so one collection's events keep their order
// within a partition. Full batches go to a bounded queue drained by a single
// sender goroutine, so writers never wait on the broker. Failures are logged;
// they never reach the writer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	batch    *batcher.Batcher[mongodb.ChangeEvent]
	queue    chan job
	done     chan struct{}
	logger   *zap.Logger

	// mu orders OnChange and Flush against Close.
	mu     sync.RWMutex
	closed bool
}

// job is a batch for the sender. A non-nil sent receives the result once
// the batch and everything queued before it has been handled.
type job struct {
	events []mongodb.ChangeEvent
	sent   chan error
}

var _ mongodb.ChangeListener = (*Publisher)(nil)

// NewPublisher creates a publisher writing to cfg.Topic through producer.
// Events are handed to the sender once cfg.BatchSize of them are pending, or
// on Flush and Close. At most cfg.QueueSize batches wait for the sender.
func NewPublisher(producer sarama.SyncProducer, cfg *settings.Kafka, logger *zap.Logger) (*Publisher, error) {
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	p := &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		queue:    make(chan job, queueSize),
		done:     make(chan struct{}),
		logger:   logger.With(zap.String("topic", cfg.Topic)),
	}
	p.batch = batcher.New[mongodb.ChangeEvent](p, batcher.Config{Size: cfg.BatchSize})
	go p.run()
	return p, nil
}

// OnChange queues event for publishing. It waits for room in the queue at
// most until ctx is done; the batch is dropped and logged after that.
func (p *Publisher) OnChange(ctx context.Context, event mongodb.ChangeEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("change event dropped", zap.String("collection", event.Collection), zap.Error(ErrPublisherClosed))
		return
	}
	if err := p.batch.Push(ctx, event); err != nil {
		p.logger.Error("publish change events", zap.Error(err))
	}
}

// Consume hands one batch to the sender. It implements batcher.Consumer.
func (p *Publisher) Consume(ctx context.Context, events []mongodb.ChangeEvent) error {
	return p.enqueue(ctx, job{events: events})
}

func (p *Publisher) enqueue(ctx context.Context, j job) error {
	select {
	case p.queue <- j:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %d events dropped: %v", ErrPublishFailed, len(j.events), ctx.Err())
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for j := range p.queue {
		err := p.send(j.events)
		if err != nil {
			p.logger.Error("publish change events", zap.Int("count", len(j.events)), zap.Error(err))
		}
		if j.sent != nil {
			j.sent <- err
		}
	}
}

func (p *Publisher) send(events []mongodb.ChangeEvent) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("encode change event", zap.String("collection", event.Collection), zap.Error(err))
			continue
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(event.Collection),
			Value: sarama.ByteEncoder(value),
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) && len(perrs) > 0 {
			return fmt.Errorf("%w: %d of %d failed: %v", ErrPublishFailed, len(perrs), len(msgs), perrs[0].Err)
		}
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	p.logger.Debug("published change events", zap.Int("count", len(msgs)))
	return nil
}

// Flush sends every pending event and waits until the sender has handled
// them. Send failures are logged by the sender and not returned.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}
	return p.flush(ctx)
}

func (p *Publisher) flush(ctx context.Context) error {
	if err := p.batch.Flush(ctx); err != nil {
		return err
	}

	sent := make(chan error, 1)
	if err := p.enqueue(ctx, job{sent: sent}); err != nil {
		return err
	}
	select {
	case <-sent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of events not yet handed to the sender.
func (p *Publisher) Pending() int {
	return p.batch.Len()
}

// Close flushes pending events, stops the sender and closes the producer.
// Events arriving afterwards are dropped and logged.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.flush(context.Background())
	close(p.queue)
	<-p.done
	return errors.Join(err, p.producer.Close())
}
