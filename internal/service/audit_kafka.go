package service

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// KafkaAuditPublisher publishes activity-log events to a Kafka topic
// consumed by the audit collaborator.
type KafkaAuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaAuditPublisher(brokers []string, topic string) (*KafkaAuditPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("NewKafkaAuditPublisher: %w", err)
	}

	return &KafkaAuditPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaAuditPublisher) Publish(_ context.Context, action string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(action),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}

func (p *KafkaAuditPublisher) Close() error {
	return p.producer.Close()
}
