package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/ryansname/switchsum/src/config"
)

// Kafka sends one JSON message per report, keyed by report name
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka creates a synchronous producer
func NewKafka(cfg config.Kafka) (*Kafka, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Kafka{producer: producer, topic: cfg.Topic}, nil
}

func kafkaConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.Return.Successes = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Compression = sarama.CompressionSnappy
	// Full hourly reports run to several megabytes
	c.Producer.MaxMessageBytes = 16 * 1024 * 1024
	return c
}

// Name implements Publisher
func (s *Kafka) Name() string { return "kafka" }

// kafkaMessages builds the producer messages for batches
func kafkaMessages(topic string, batches []Batch) ([]*sarama.ProducerMessage, error) {
	out := make([]*sarama.ProducerMessage, 0, len(batches))
	for _, b := range batches {
		payload, err := json.Marshal(b.Message())
		if err != nil {
			return nil, err
		}
		out = append(out, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(b.Report),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte("run_id"), Value: []byte(b.RunID.String())},
			},
			Timestamp: b.At,
		})
	}
	return out, nil
}

// Publish implements Publisher
func (s *Kafka) Publish(ctx context.Context, batches []Batch) error {
	msgs, err := kafkaMessages(s.topic, batches)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.producer.SendMessages(msgs)
}

// Close implements Publisher
func (s *Kafka) Close() error {
	return s.producer.Close()
}
