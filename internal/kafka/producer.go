package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-raffle/internal/models"
)

const (
	TopicEntryCreated       = "raffle.entry.created"
	TopicPrizeClaimed       = "raffle.prize.claimed"
	TopicCompetitionSoldOut = "raffle.competition.soldout"
	TopicPaymentSucceeded   = "raffle.payment.succeeded"
	TopicPaymentFailed      = "raffle.payment.failed"
)

type Producer struct {
	Writer *kafka.Writer
	// MockMode logs messages instead of sending them, for local runs
	// without a broker.
	MockMode bool
}

// NewProducer builds a topic-agnostic writer; each publish names its topic.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// Publish sends one message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	if p.MockMode {
		log.Printf("KAFKA MOCK: topic=%s key=%s payload=%s", topic, key, string(value))
		return nil
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishEntryCreated streams a completed purchase to Kafka.
func (p *Producer) PublishEntryCreated(entry models.Entry) error {
	msgBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return p.Publish(TopicEntryCreated, entry.CompetitionID, msgBytes)
}

type prizeClaimedEvent struct {
	CompetitionID string    `json:"competition_id"`
	EntryID       string    `json:"entry_id"`
	UserID        string    `json:"user_id"`
	TicketNumber  int64     `json:"ticket_number"`
	PrizeID       string    `json:"prize_id"`
	PrizeName     string    `json:"prize_name"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// PublishPrizeClaimed streams one instant-win claim to Kafka.
func (p *Producer) PublishPrizeClaimed(entry models.Entry, claimed models.ClaimedTicket) error {
	msgBytes, err := json.Marshal(prizeClaimedEvent{
		CompetitionID: entry.CompetitionID,
		EntryID:       entry.ID,
		UserID:        entry.UserID,
		TicketNumber:  claimed.TicketNumber,
		PrizeID:       claimed.PrizeID,
		PrizeName:     claimed.PrizeName,
		ClaimedAt:     time.Now(),
	})
	if err != nil {
		return err
	}
	return p.Publish(TopicPrizeClaimed, entry.CompetitionID, msgBytes)
}

// PublishCompetitionSoldOut announces that a competition's last ticket sold.
func (p *Producer) PublishCompetitionSoldOut(competitionID string) error {
	msgBytes, err := json.Marshal(map[string]interface{}{
		"competition_id": competitionID,
		"sold_out_at":    time.Now(),
	})
	if err != nil {
		return err
	}
	return p.Publish(TopicCompetitionSoldOut, competitionID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
