// Package config loads runtime settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// Run mode
	Once   bool `long:"once" description:"Run the pipeline once, deliver the digest and exit"`
	DryRun bool `long:"dry-run" description:"Run once and print the digest as JSON without delivering"`

	// Judge settings
	GeminiAPIKey     string        `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key used by the classifier and dedup judge"`
	GeminiModel      string        `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model name"`
	JudgeConcurrency int           `long:"judge-concurrency" env:"JUDGE_CONCURRENCY" default:"0" description:"Max concurrent classifier calls (0 = unbounded)"`
	MaxJudgeCalls    int           `long:"max-judge-calls" env:"MAX_JUDGE_CALLS" default:"0" description:"Classifier call budget per run (0 = unlimited)"`
	DedupBackend     string        `long:"dedup-backend" env:"DEDUP_BACKEND" default:"gemini" description:"Duplicate judge backend: gemini or cohere"`
	CohereAPIKey     string        `long:"cohere-api-key" env:"COHERE_API_KEY" description:"Cohere API key for the embedding dedup judge"`
	CohereModel      string        `long:"cohere-model" env:"COHERE_MODEL" default:"embed-english-v3.0" description:"Cohere embedding model"`
	DedupThreshold   float64       `long:"dedup-threshold" env:"DEDUP_THRESHOLD" default:"0.9" description:"Cosine similarity treated as the same event"`
	VerdictTTL       time.Duration `long:"verdict-ttl" env:"VERDICT_TTL" default:"48h" description:"How long classifier verdicts are cached"`

	// Feed settings
	SourcesPath    string        `long:"sources" env:"SOURCES_PATH" default:"configs/sources.yaml" description:"YAML source registry; built-in sources are used when missing"`
	MaxAge         time.Duration `long:"max-age" env:"NEWS_MAX_AGE" default:"24h" description:"Only entries newer than this are considered"`
	MaxPerSource   int           `long:"max-per-source" env:"MAX_PER_SOURCE" default:"20" description:"Candidates considered per source"`
	ExcerptLimit   int           `long:"excerpt-limit" env:"EXCERPT_LIMIT" default:"600" description:"Excerpt characters sent to the classifier"`
	DigestSize     int           `long:"digest-size" env:"DIGEST_SIZE" default:"15" description:"Items in the final digest"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" description:"Per-feed HTTP timeout"`
	UserAgent      string        `long:"user-agent" env:"USER_AGENT" default:"MusiveBriefing/1.0" description:"User agent for feed requests"`

	// Trigger settings
	Schedule   string        `long:"schedule" env:"SCHEDULE" default:"0 9 * * *" description:"Cron expression for the daily run"`
	Timezone   string        `long:"timezone" env:"TIMEZONE" default:"Asia/Seoul" description:"Timezone of the schedule"`
	RunTimeout time.Duration `long:"run-timeout" env:"RUN_TIMEOUT" default:"540s" description:"Deadline for one pipeline run"`
	HTTPPort   string        `long:"port" env:"PORT" default:"8080" description:"HTTP port for the on-demand endpoint"`

	// Verdict cache
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the verdict cache (in-memory when empty)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASS" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database"`

	// Delivery
	TelegramToken  string        `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token"`
	TelegramChatID string        `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat or channel"`
	RetryAttempts  int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"3" description:"Delivery attempts per sink"`
	RetryDelay     time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"2s" description:"Base delay between delivery attempts"`
	ArchiveDir     string        `long:"archive-dir" env:"ARCHIVE_DIR" description:"Directory for JSON/HTML digest archives"`
	S3Bucket       string        `long:"s3-bucket" env:"S3_BUCKET" description:"S3 bucket for digest archives"`
	S3Prefix       string        `long:"s3-prefix" env:"S3_PREFIX" default:"digests/" description:"Key prefix inside the bucket"`
	AWSRegion      string        `long:"aws-region" env:"AWS_REGION" description:"AWS region override"`
	S3PathStyle    bool          `long:"s3-path-style" env:"S3_PATH_STYLE" description:"Force path-style S3 addressing"`
	DatabaseURL    string        `long:"database-url" env:"DATABASE_URL" description:"PostgreSQL DSN for digest history"`
	KafkaBrokers   []string      `long:"kafka-broker" env:"KAFKA_BROKERS" env-delim:"," description:"Kafka brokers for digest events"`
	KafkaTopic     string        `long:"kafka-topic" env:"KAFKA_TOPIC" default:"musive.digests" description:"Kafka topic for digest events"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads .env (if present), then flags and environment. A nil config
// with a nil error means help was printed.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, cfg.Validate()
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.MaxPerSource <= 0 {
		return fmt.Errorf("MAX_PER_SOURCE must be positive")
	}
	if c.ExcerptLimit <= 0 {
		return fmt.Errorf("EXCERPT_LIMIT must be positive")
	}
	if c.DigestSize <= 0 {
		return fmt.Errorf("DIGEST_SIZE must be positive")
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("NEWS_MAX_AGE must be positive")
	}
	if c.JudgeConcurrency < 0 || c.MaxJudgeCalls < 0 {
		return fmt.Errorf("JUDGE_CONCURRENCY and MAX_JUDGE_CALLS must not be negative")
	}
	switch c.DedupBackend {
	case "gemini":
	case "cohere":
		if c.CohereAPIKey == "" {
			return fmt.Errorf("COHERE_API_KEY is required for DEDUP_BACKEND=cohere")
		}
		if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
			return fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1]")
		}
	default:
		return fmt.Errorf("DEDUP_BACKEND must be 'gemini' or 'cohere'")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("SCHEDULE is invalid: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
