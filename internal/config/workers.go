package config

import (
	"errors"
	"os"
)

// NotifierConfig configures the Kafka to RabbitMQ notification relay.
type NotifierConfig struct {
	KafkaBrokers          []string
	KafkaTopic            string
	GroupID               string
	AMQPURL               string
	NotificationsExchange string
}

// LoadNotifier reads the relay settings. KAFKA_BROKERS and AMQP_URL are
// required.
func LoadNotifier(envFile string) (*NotifierConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := &NotifierConfig{
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", defaultKafkaTopic),
		GroupID:               getEnv("NOTIFIER_GROUP", defaultNotifierGroup),
		AMQPURL:               os.Getenv("AMQP_URL"),
		NotificationsExchange: getEnv("AMQP_NOTIFICATIONS_EXCHANGE", defaultExchange),
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS environment variable is required")
	}
	if cfg.AMQPURL == "" {
		return nil, errors.New("AMQP_URL environment variable is required")
	}
	return cfg, nil
}

// LoadDatabaseURL reads only the database connection string.
func LoadDatabaseURL(envFile string) (string, error) {
	if err := loadEnvFile(envFile); err != nil {
		return "", err
	}
	return getEnv("DATABASE_URL", defaultDatabaseURL), nil
}
