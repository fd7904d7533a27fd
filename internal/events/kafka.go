package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"crypto-trading-engine/internal/logger"
)

// KafkaSink forwards events to a Kafka topic for external consumers
// (alerting, dashboards). Delivery is fire-and-forget via the async
// producer; a broker outage degrades to dropped events, never to a stalled
// engine.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	sink := &KafkaSink{producer: producer, topic: topic}
	go sink.logErrors()
	return sink, nil
}

func (k *KafkaSink) logErrors() {
	for err := range k.producer.Errors() {
		logger.Warn(context.Background(), "Kafka event delivery failed", "error", err.Err, "topic", k.topic)
	}
}

func (k *KafkaSink) Consume(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.Kind),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case k.producer.Input() <- msg:
	default:
	}
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
