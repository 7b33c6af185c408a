package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Stripe   StripeConfig
	Raffle   RaffleConfig
}

type ServerConfig struct {
	Port         string
	PaymentPort  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type TopicConfig struct {
	EntryCreated       string
	PrizeClaimed       string
	CompetitionSoldOut string
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type RaffleConfig struct {
	// GenerationLockTTL bounds how long the redis lock around winning-ticket
	// generation is held before it expires on its own.
	GenerationLockTTL time.Duration
	// ReceiptSecret keys the AES encryption inside entry QR receipts.
	ReceiptSecret string
}

func Load() *Config {
	kafkaEnabled := getEnvBool("KAFKA_ENABLED", true)
	mockMode := getEnvBool("KAFKA_MOCK_MODE", false)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			PaymentPort:  getEnv("PAYMENT_PORT", ":8081"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "raffle_user"),
			Password:     getEnv("DB_PASSWORD", "raffle_pass"),
			Database:     getEnv("DB_NAME", "raffle_engine"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID:  getEnv("KAFKA_GROUP_ID", "raffle-engine-group"),
			Enabled:  kafkaEnabled,
			MockMode: mockMode,
			Topics: TopicConfig{
				EntryCreated:       getEnv("KAFKA_TOPIC_ENTRY_CREATED", "raffle.entry.created"),
				PrizeClaimed:       getEnv("KAFKA_TOPIC_PRIZE_CLAIMED", "raffle.prize.claimed"),
				CompetitionSoldOut: getEnv("KAFKA_TOPIC_SOLD_OUT", "raffle.competition.soldout"),
			},
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  getEnv("STRIPE_CURRENCY", "usd"),
		},
		Raffle: RaffleConfig{
			GenerationLockTTL: time.Duration(getEnvInt("GENERATION_LOCK_TTL_SECONDS", 60)) * time.Second,
			ReceiptSecret:     getEnv("RECEIPT_SECRET", "dev-receipt-secret"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
