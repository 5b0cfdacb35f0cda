package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	TaskGRPCURL        string
	DisputeGRPCURL     string
	ProofGRPCURL       string
	SettlementURL      string
	RedisURL           string
	KafkaBrokers       []string
	KafkaConsumerGroup string
	TopicTaskCompleted string
	DLQTopic           string

	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	ConsumerPollInterval time.Duration
	SweepInterval        time.Duration

	StuckThreshold      time.Duration
	MaxRecoveryAttempts int
	DriftCeilingCents   int64
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		TaskGRPCURL        string   `yaml:"task_grpc_url"`
		DisputeGRPCURL     string   `yaml:"dispute_grpc_url"`
		ProofGRPCURL       string   `yaml:"proof_grpc_url"`
		SettlementURL      string   `yaml:"settlement_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		TopicTaskCompleted string   `yaml:"topic_task_completed"`
		TopicDLQ           string   `yaml:"topic_dlq"`
	} `yaml:"dependencies"`
	Money struct {
		StuckThresholdMinutes int   `yaml:"stuck_threshold_minutes"`
		MaxRecoveryAttempts   int   `yaml:"max_recovery_attempts"`
		DriftCeilingCents     int64 `yaml:"drift_ceiling_cents"`
		SweepIntervalSeconds  int   `yaml:"sweep_interval_seconds"`
	} `yaml:"money"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "money-movement-service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		KafkaConsumerGroup:   "money-movement-service",
		TopicTaskCompleted:   "task.completed",
		DLQTopic:             "money.dlq",
		IdempotencyTTL:       7 * 24 * time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
		ConsumerPollInterval: 2 * time.Second,
		SweepInterval:        time.Minute,
		StuckThreshold:       15 * time.Minute,
		MaxRecoveryAttempts:  3,
		DriftCeilingCents:    500,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.TaskGRPCURL = f.Dependencies.TaskGRPCURL
		cfg.DisputeGRPCURL = f.Dependencies.DisputeGRPCURL
		cfg.ProofGRPCURL = f.Dependencies.ProofGRPCURL
		cfg.SettlementURL = f.Dependencies.SettlementURL
		cfg.RedisURL = f.Dependencies.RedisURL
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.TopicTaskCompleted != "" {
			cfg.TopicTaskCompleted = f.Dependencies.TopicTaskCompleted
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.DLQTopic = f.Dependencies.TopicDLQ
		}
		if f.Money.StuckThresholdMinutes > 0 {
			cfg.StuckThreshold = time.Duration(f.Money.StuckThresholdMinutes) * time.Minute
		}
		if f.Money.MaxRecoveryAttempts > 0 {
			cfg.MaxRecoveryAttempts = f.Money.MaxRecoveryAttempts
		}
		if f.Money.DriftCeilingCents > 0 {
			cfg.DriftCeilingCents = f.Money.DriftCeilingCents
		}
		if f.Money.SweepIntervalSeconds > 0 {
			cfg.SweepInterval = time.Duration(f.Money.SweepIntervalSeconds) * time.Second
		}
	}

	cfg.TaskGRPCURL = envOrDefault("TASK_GRPC_URL", cfg.TaskGRPCURL)
	cfg.DisputeGRPCURL = envOrDefault("DISPUTE_GRPC_URL", cfg.DisputeGRPCURL)
	cfg.ProofGRPCURL = envOrDefault("PROOF_GRPC_URL", cfg.ProofGRPCURL)
	cfg.SettlementURL = envOrDefault("SETTLEMENT_URL", cfg.SettlementURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicTaskCompleted = envOrDefault("KAFKA_TOPIC_TASK_COMPLETED", cfg.TopicTaskCompleted)
	cfg.DLQTopic = envOrDefault("KAFKA_TOPIC_MONEY_DLQ", cfg.DLQTopic)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.StuckThreshold = time.Duration(envInt("STUCK_THRESHOLD_MINUTES", int(cfg.StuckThreshold.Minutes()))) * time.Minute
	cfg.MaxRecoveryAttempts = envInt("MAX_RECOVERY_ATTEMPTS", cfg.MaxRecoveryAttempts)
	cfg.DriftCeilingCents = int64(envInt("DRIFT_CEILING_CENTS", int(cfg.DriftCeilingCents)))

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
