package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	// DatabaseURL selects the Postgres assessment store; empty keeps
	// assessments in memory.
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Reasoning   ReasoningConfig

	// RulesPath is an optional YAML overlay for rules.DefaultConfig.
	RulesPath          string
	MaxConcurrent      int
	AssessmentCacheTTL time.Duration
	ShutdownTimeout    time.Duration
	AuditBuffer        int
}

// RedisConfig configures the assessment cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event sink. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
	// ConsumerGroup is used by the audit materializer.
	ConsumerGroup string
}

// ReasoningConfig configures the LLM reasoning client. An empty APIKey runs
// the workflow with deterministic rules only.
type ReasoningConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("AML_ADDR", ":8080"),
		LogLevel:    envString("AML_LOG_LEVEL", "info"),
		LogFormat:   envString("AML_LOG_FORMAT", "json"),
		DatabaseURL: os.Getenv("AML_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("AML_REDIS_URL"),
			PoolSize:     envInt("AML_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("AML_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("AML_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("AML_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("AML_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           envList("AML_KAFKA_BROKERS"),
			Topic:             envString("AML_KAFKA_TOPIC", "aml.audit"),
			Partitions:        int32(envInt("AML_KAFKA_PARTITIONS", 3)),
			ReplicationFactor: int16(envInt("AML_KAFKA_REPLICATION_FACTOR", 1)),
			ConsumerGroup:     envString("AML_KAFKA_CONSUMER_GROUP", "aml-audit-materializer"),
		},
		Reasoning: ReasoningConfig{
			BaseURL:     os.Getenv("AML_REASONING_BASE_URL"),
			APIKey:      firstNonEmpty(os.Getenv("AML_REASONING_API_KEY"), os.Getenv("GROQ_API_KEY")),
			Model:       os.Getenv("AML_REASONING_MODEL"),
			Timeout:     envDuration("AML_REASONING_TIMEOUT", 60*time.Second),
			MaxRetries:  envInt("AML_REASONING_MAX_RETRIES", 3),
			Temperature: envFloat("AML_REASONING_TEMPERATURE", 0),
			MaxTokens:   envInt("AML_REASONING_MAX_TOKENS", 4096),
		},
		RulesPath:          os.Getenv("AML_RULES_PATH"),
		MaxConcurrent:      envInt("AML_MAX_CONCURRENT", 5),
		AssessmentCacheTTL: envDuration("AML_ASSESSMENT_CACHE_TTL", 15*time.Minute),
		ShutdownTimeout:    envDuration("AML_SHUTDOWN_TIMEOUT", 15*time.Second),
		AuditBuffer:        envInt("AML_AUDIT_BUFFER", 1024),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// envList splits a comma separated value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
