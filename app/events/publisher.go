package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/config"
)

type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
	logger      logrus.FieldLogger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topicPrefix string, logger logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{
		producer:    producer,
		topicPrefix: strings.Trim(strings.TrimSpace(topicPrefix), "."),
		logger:      logger,
	}
}

func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5

	return sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
}

func (p *KafkaPublisher) Topic(name string) string {
	if p.topicPrefix == "" {
		return name
	}
	return p.topicPrefix + "." + name
}

func (p *KafkaPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.Topic(topic),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     msg.Topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("event_published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
