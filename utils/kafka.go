package utils

import (
	"log"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/tuannn09/event-connect-backend/config"
)

var kafkaWriter *kafka.Writer

// InitKafka sets up the producer for the notifications topic. Kafka is
// optional: without KAFKA_BROKERS the writer stays nil and the
// notification service writes rows directly.
func InitKafka(cfg *config.Config) {
	if cfg.KafkaBrokers == "" {
		log.Println("Kafka not configured, notifications will be written synchronously")
		return
	}

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	kafkaWriter = &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    cfg.KafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Println("Kafka producer ready:", cfg.KafkaBrokers)
}

// KafkaWriter returns the shared producer, nil when Kafka is disabled.
func KafkaWriter() *kafka.Writer {
	return kafkaWriter
}

// NewKafkaReader builds a consumer for the notifications topic.
func NewKafkaReader(cfg *config.Config) *kafka.Reader {
	if cfg.KafkaBrokers == "" {
		return nil
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(cfg.KafkaBrokers, ","),
		Topic:   cfg.KafkaTopic,
		GroupID: "event-connect-notifications",
	})
}
