package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// MessageHandler processes incoming Kafka messages
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

// Reader is the part of kafka.Reader the consumer uses
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string

	// A failed message is retried until its handler accepts it. The wait
	// grows by RetryBackoff per attempt for the first HandlerRetries
	// attempts and stays flat after that.
	HandlerRetries int
	RetryBackoff   time.Duration
}

// Consumer hands lookup requests to a handler one at a time and commits
// each message once its handler accepted it. Commits are partition offsets,
// so nothing after a failing message is fetched until that message succeeds.
type Consumer struct {
	reader  Reader
	cfg     ConsumerConfig
	logger  ectologger.Logger
	handler MessageHandler
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewConsumer joins cfg.ConsumerGroup on cfg.Topic
func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(reader, cfg, logger, handler)
}

func NewConsumerWithReader(reader Reader, cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Consumer{
		reader:  reader,
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}
}

// Start runs the fetch loop until Stop is called or ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic": c.cfg.Topic,
		"group": c.cfg.ConsumerGroup,
	}).Info("Lookup consumer started")
	return nil
}

// Stop lets the message in flight finish, then closes the reader
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return c.reader.Close()
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return
		case err != nil:
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch lookup request")
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	incoming := newIncomingMessage(msg)
	ctx, span := tracing.StartSpan(incoming.TraceContext(ctx), "kafka.Consumer.handle")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, incoming)
		if err == nil {
			break
		}
		tracing.Fail(ctx, err)
		metrics.RecordKafkaConsume(msg.Topic, "error")

		retryLog := log.WithError(err).WithField("attempt", attempt)
		if attempt > c.cfg.HandlerRetries {
			retryLog.Error("Lookup request still failing, holding its partition")
		} else {
			retryLog.Warn("Retrying lookup request")
		}

		select {
		case <-ctx.Done():
			log.Warn("Stopping with lookup request uncommitted")
			return
		case <-time.After(c.backoff(attempt)):
		}
	}

	if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
		log.WithError(err).Error("Failed to commit lookup request")
		return
	}
	metrics.RecordKafkaConsume(msg.Topic, "success")
}

func (c *Consumer) backoff(attempt int) time.Duration {
	return c.cfg.RetryBackoff * time.Duration(min(attempt, c.cfg.HandlerRetries+1))
}
