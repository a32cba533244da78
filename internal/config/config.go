package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

// Config is the environment-driven configuration shared by the API and
// worker binaries. Provider API keys are optional: a provider without a
// credential is skipped by the dispatch chain, and a deployment with no
// providers at all still records failed deliveries.
type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	ResendAPIKey   string `env:"RESEND_API_KEY"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT,default=587"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`

	SenderName    string `env:"SENDER_NAME,default=Market Nexus"`
	SenderAddress string `env:"SENDER_ADDRESS,default=notifications@sourcecodeals.com"`
	ReplyTo       string `env:"REPLY_TO"`

	RetryCeiling     int `env:"RETRY_CEILING,default=3"`
	RetryBaseDelayMS int `env:"RETRY_BASE_DELAY_MS,default=1000"`
	RetryMaxDelayMS  int `env:"RETRY_MAX_DELAY_MS,default=4000"`

	SerperAPIKey          string `env:"SERPER_API_KEY"`
	OpenRouterAPIKey      string `env:"OPENROUTER_API_KEY"`
	SearchRateLimitPerSec int    `env:"SEARCH_RATE_LIMIT_PER_SEC,default=50"`
	EnrichBatchSize       int    `env:"ENRICH_BATCH_SIZE,default=14"`
	WorkerConcurrency     int    `env:"WORKER_CONCURRENCY,default=4"`

	APIPort           int    `env:"API_PORT,default=8080"`
	WorkerMetricsPort int    `env:"WORKER_METRICS_PORT,default=9090"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// SMTPConfigured reports whether the SMTP fallback provider has enough
// settings to dial a relay.
func (c *Config) SMTPConfigured() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && c.SMTPPort > 0
}
