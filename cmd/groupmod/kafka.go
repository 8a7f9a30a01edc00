package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/groupmod/groupmod/event"

	"github.com/IBM/sarama"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type SubmitFunc func(context.Context, *event.Envelope) error

// Consumes JSON event envelopes from a topic and hands them to the room scheduler. Producers key messages by room ID,
// so a room's events arrive on one partition in order.
type KafkaConsumer struct {
	config *KafkaConfig
	submit SubmitFunc
	logger *slog.Logger
	group  sarama.ConsumerGroup

	cancel context.CancelFunc
	wg     sync.WaitGroup
	ready  chan bool
}

func NewKafkaConsumer(cfg KafkaConfig, submit SubmitFunc, logger *slog.Logger) (*KafkaConsumer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_0_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, err
	}
	return &KafkaConsumer{
		config: &cfg,
		submit: submit,
		logger: logger.With("component", "kafka"),
		group:  group,
		ready:  make(chan bool),
	}, nil
}

// Starts consuming in the background and waits for the first group session to be set up.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", "brokers", c.config.Brokers, "topic", c.config.Topic, "group", c.config.GroupID)

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	first := c.ready

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ready := first
		for {
			h := &envelopeHandler{consumer: c, ready: ready}
			if err := c.group.Consume(ctx, []string{c.config.Topic}, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
			// Setup closes the channel once per session
			select {
			case <-ready:
				ready = make(chan bool)
			default:
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "err", err)
			}
		}
	}()

	select {
	case <-first:
		c.logger.Info("kafka consumer ready")
	case <-ctx.Done():
	}
	return nil
}

func (c *KafkaConsumer) Stop() error {
	c.logger.Info("stopping kafka consumer")
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.group.Close()
}

type envelopeHandler struct {
	consumer *KafkaConsumer
	ready    chan bool
}

func (h *envelopeHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *envelopeHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// Malformed messages are logged and skipped. A message is marked only once the scheduler has accepted it.
func (h *envelopeHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	logger := h.consumer.logger
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			var env event.Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				logger.Warn("failed to unmarshal event", "err", err, "offset", msg.Offset, "partition", msg.Partition)
				session.MarkMessage(msg, "")
				continue
			}
			if err := h.consumer.submit(session.Context(), &env); err != nil {
				if session.Context().Err() != nil {
					return nil
				}
				logger.Warn("dropping event", "err", err, "offset", msg.Offset, "partition", msg.Partition, "room", env.RoomID())
			}
			session.MarkMessage(msg, "")
		}
	}
}
