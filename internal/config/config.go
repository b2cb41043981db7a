// Package config reads dispatch-board settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Transport string

const (
	TransportKafka Transport = "kafka"
	TransportAMQP  Transport = "amqp"
)

type Config struct {
	Port       string
	BackendURL string

	BackendToken     string
	BackendJWTSecret string
	OperatorUserID   string

	Transport    Transport
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string

	BranchID string
	TenantID string

	RefreshInterval time.Duration
	Strict          bool
	StaleGuard      bool

	TelegramBotToken string
	TelegramChatID   string

	OTLPEndpoint string
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8090"),
		BackendURL:       getEnv("BACKEND_URL", ""),
		BackendToken:     getEnv("BACKEND_TOKEN", ""),
		BackendJWTSecret: getEnv("BACKEND_JWT_SECRET", ""),
		OperatorUserID:   getEnv("OPERATOR_USER_ID", ""),
		Transport:        Transport(strings.ToLower(getEnv("PUSH_TRANSPORT", string(TransportKafka)))),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "dispatch.events"),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "dispatch_topic"),
		BranchID:         getEnv("BRANCH_ID", ""),
		TenantID:         getEnv("TENANT_ID", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.RefreshInterval, err = getDuration("REFRESH_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Strict, err = getBool("BOARD_STRICT", false); err != nil {
		return nil, err
	}
	if cfg.StaleGuard, err = getBool("BOARD_STALE_GUARD", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.BackendToken == "" && c.BackendJWTSecret == "" {
		return errors.New("one of BACKEND_TOKEN or BACKEND_JWT_SECRET is required")
	}

	switch c.Transport {
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka transport")
		}
	case TransportAMQP:
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required for the amqp transport")
		}
	default:
		return fmt.Errorf("unknown PUSH_TRANSPORT %q", c.Transport)
	}

	if c.RefreshInterval <= 0 {
		return errors.New("REFRESH_INTERVAL must be positive")
	}
	return nil
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
