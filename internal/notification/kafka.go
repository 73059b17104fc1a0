package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// StartKafkaConsumer drains the notifications topic into in-app rows.
// Runs until the reader is closed; call in its own goroutine.
func StartKafkaConsumer(reader *kafka.Reader, repo Repository, push *FCMChannel) {
	if reader == nil {
		return
	}

	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(context.Background())
			if err != nil {
				log.Printf("notification consumer stopped: %v", err)
				return
			}

			var msg Message
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				log.Printf("notification consumer: bad payload at offset %d: %v", m.Offset, err)
				continue
			}

			deliverMessage(context.Background(), repo, push, msg)
		}
	}()
}
