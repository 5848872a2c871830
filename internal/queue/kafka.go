package queue

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/retry"
)

var errNotAcked = errors.New("message not acknowledged")

// Kafka is a queue on a Kafka topic. Offsets are marked only for
// acknowledged messages. A message that keeps failing is retried in place
// under Redelivery; after that the claim ends without marking it, and the
// next session resumes from the committed offset.
type Kafka struct {
	Redelivery retry.Policy

	producer sarama.SyncProducer
	group    sarama.ConsumerGroup
	topic    string
	log      *logger.Logger
}

func NewKafka(brokers []string, topic, groupID string, log *logger.Logger) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		producer.Close()
		return nil, err
	}
	return NewKafkaWithClients(producer, group, topic, log), nil
}

func NewKafkaWithClients(producer sarama.SyncProducer, group sarama.ConsumerGroup, topic string, log *logger.Logger) *Kafka {
	if log == nil {
		log = logger.Nop()
	}
	return &Kafka{
		Redelivery: retry.Policy{MaxAttempts: 5, InitialDelay: time.Second, BackoffMultiplier: 2},
		producer:   producer,
		group:      group,
		topic:      topic,
		log:        log,
	}
}

func (q *Kafka) Send(ctx context.Context, ref model.DocumentRef) error {
	data, err := encode(ref)
	if err != nil {
		return err
	}
	_, _, err = q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(ref.Key),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (q *Kafka) Consume(ctx context.Context, h Handler) error {
	if q.group == nil {
		return errors.New("kafka consumer group not configured")
	}
	go func() {
		for err := range q.group.Errors() {
			q.log.Warn("Kafka consumer error", "error", err)
		}
	}()

	handler := &groupHandler{handle: h, policy: q.Redelivery, log: q.log}
	q.log.Info("Kafka consumer started", "topic", q.topic)
	for {
		if err := q.group.Consume(ctx, []string{q.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
				return nil
			}
			q.log.Warn("Kafka consume failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (q *Kafka) Close() error {
	var errs []error
	if q.producer != nil {
		errs = append(errs, q.producer.Close())
	}
	if q.group != nil {
		errs = append(errs, q.group.Close())
	}
	return errors.Join(errs...)
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handle Handler
	policy retry.Policy
	log    *logger.Logger
}

func (g *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (g *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (g *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}
			ref, err := decode(msg.Value)
			if err != nil {
				g.log.Warn("Dropping undecodable message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
				session.MarkMessage(msg, "")
				continue
			}
			if !g.deliver(session.Context(), ref) {
				// Returning ends the session; the message is read again
				// from the last committed offset.
				g.log.Warn("Leaving message uncommitted", "key", ref.Key, "partition", msg.Partition, "offset", msg.Offset)
				return nil
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (g *groupHandler) deliver(ctx context.Context, ref model.DocumentRef) bool {
	err := retry.Do(ctx, g.policy, func(ctx context.Context, attempt int) error {
		ack, err := g.handle(ctx, ref)
		if ack {
			return nil
		}
		if err == nil {
			err = errNotAcked
		}
		g.log.Warn("Failed to handle message", "key", ref.Key, "attempt", attempt, "error", err)
		return err
	})
	return err == nil
}
