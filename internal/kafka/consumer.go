package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"ms-raffle/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start begins consuming entry events from Kafka. Downstream services
// (fulfillment, notifications) attach their handler here.
func (c *Consumer) Start(handler func(entry models.Entry)) {
	log.Println("Kafka consumer started")

	for {
		msg, err := c.reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("Error reading message: %v", err)
			continue
		}

		var entry models.Entry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			log.Printf("Failed to unmarshal entry event: %v", err)
			continue
		}

		handler(entry)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
