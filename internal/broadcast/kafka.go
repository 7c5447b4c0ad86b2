package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

// KafkaBus backs the Bus contract with a Kafka topic, for deployments where
// more than one supervisor process (each with its own worker-set) needs a
// shared broadcast stream — grounded on the teacher's KafkaProducer
// (AsyncProducer, snappy compression, key-by-source-id for partition
// affinity) and KafkaConsumer (ConsumerGroup + ConsumeClaim) pair, with the
// consumed side fanned back out to local subscribers through an embedded
// Hub rather than each subscriber running its own consumer group.
type KafkaBus struct {
	*Hub

	producer sarama.AsyncProducer
	consumer sarama.ConsumerGroup
	topic    string
	log      *logger.Logger
	cancel   context.CancelFunc
}

// NewKafkaBus connects a producer and a consumer group for topic, fanning
// every consumed message into the embedded Hub so local Subscribe callers
// see both this process's own Publish calls and every other process's.
func NewKafkaBus(brokers []string, topic, group string, log *logger.Logger) (*KafkaBus, error) {
	pcfg := sarama.NewConfig()
	pcfg.Producer.RequiredAcks = sarama.WaitForLocal
	pcfg.Producer.Compression = sarama.CompressionSnappy
	pcfg.Producer.Return.Successes = false
	pcfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, pcfg)
	if err != nil {
		return nil, fmt.Errorf("broadcast: new kafka producer: %w", err)
	}

	ccfg := sarama.NewConfig()
	ccfg.Consumer.Return.Errors = true
	ccfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	ccfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRange()

	consumerGroup, err := sarama.NewConsumerGroup(brokers, group, ccfg)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("broadcast: new kafka consumer group: %w", err)
	}

	kb := &KafkaBus{
		Hub:      NewHub(log),
		producer: producer,
		consumer: consumerGroup,
		topic:    topic,
		log:      log,
	}

	go kb.handleProducerErrors()

	ctx, cancel := context.WithCancel(context.Background())
	kb.cancel = cancel
	go kb.consumeLoop(ctx)

	return kb, nil
}

func (kb *KafkaBus) handleProducerErrors() {
	for err := range kb.producer.Errors() {
		kb.log.Errorf("broadcast: kafka publish failed: %v", err)
	}
}

func (kb *KafkaBus) consumeLoop(ctx context.Context) {
	for {
		if err := kb.consumer.Consume(ctx, []string{kb.topic}, kb); err != nil {
			kb.log.Errorf("broadcast: kafka consumer group error: %v", err)
			if ctx.Err() != nil {
				return
			}
			time.Sleep(time.Second)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Publish sends ev to the Kafka topic, keyed by station id for per-station
// partition affinity; it does not also fan out locally — that happens when
// this or another process's consumeLoop reads the message back.
func (kb *KafkaBus) Publish(ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("broadcast: marshal event: %w", err)
	}
	kb.producer.Input() <- &sarama.ProducerMessage{
		Topic: kb.topic,
		Key:   sarama.StringEncoder(ev.StationID),
		Value: sarama.ByteEncoder(raw),
	}
	return nil
}

// Close stops the consumer loop and closes both Kafka clients plus every
// local subscriber channel.
func (kb *KafkaBus) Close() error {
	if kb.cancel != nil {
		kb.cancel()
	}
	_ = kb.consumer.Close()
	_ = kb.producer.Close()
	return kb.Hub.Close()
}

// -- sarama.ConsumerGroupHandler --

func (kb *KafkaBus) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (kb *KafkaBus) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (kb *KafkaBus) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			kb.log.Errorf("broadcast: unmarshal kafka message: %v", err)
			session.MarkMessage(msg, "")
			continue
		}
		kb.Hub.Publish(ev)
		session.MarkMessage(msg, "")
	}
	return nil
}

var _ Bus = (*KafkaBus)(nil)
