package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "fedcore/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string
	LogLevel  slog.Level
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Migration MigrationConfig
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the shared migration lock. An empty URL selects the
// in-process lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbound notification transport. No brokers
// selects the log-only notifier.
type KafkaConfig struct {
	Brokers     []string
	NotifyTopic string
	Partitions  int32
	Replication int16
}

// MigrationConfig bounds migrations and their fan-out.
type MigrationConfig struct {
	TxTimeout         time.Duration
	LockTTL           time.Duration
	NotifyConcurrency int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr: envOr("FEDCORE_ADDR", ":8080"),
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:     pstrings.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			NotifyTopic: envOr("KAFKA_NOTIFY_TOPIC", "entity-notifications"),
		},
	}

	var err error
	if cfg.LogLevel, err = parseLevel(envOr("LOG_LEVEL", "info")); err != nil {
		return Server{}, err
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"DATABASE_MAX_OPEN_CONNS", 25, &cfg.Database.MaxOpenConns},
		{"DATABASE_MAX_IDLE_CONNS", 5, &cfg.Database.MaxIdleConns},
		{"REDIS_POOL_SIZE", 10, &cfg.Redis.PoolSize},
		{"REDIS_MIN_IDLE_CONNS", 2, &cfg.Redis.MinIdleConns},
		{"NOTIFY_CONCURRENCY", 8, &cfg.Migration.NotifyConcurrency},
	}
	for _, i := range ints {
		if *i.dst, err = intEnv(i.key, i.def); err != nil {
			return Server{}, err
		}
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"DATABASE_CONN_MAX_LIFETIME", 30 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"REDIS_DIAL_TIMEOUT", 5 * time.Second, &cfg.Redis.DialTimeout},
		{"REDIS_READ_TIMEOUT", 3 * time.Second, &cfg.Redis.ReadTimeout},
		{"REDIS_WRITE_TIMEOUT", 3 * time.Second, &cfg.Redis.WriteTimeout},
		{"MIGRATION_TX_TIMEOUT", 5 * time.Second, &cfg.Migration.TxTimeout},
		{"MIGRATION_LOCK_TTL", 30 * time.Second, &cfg.Migration.LockTTL},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return Server{}, err
		}
	}

	partitions, err := intEnv("KAFKA_NOTIFY_PARTITIONS", 3)
	if err != nil {
		return Server{}, err
	}
	replication, err := intEnv("KAFKA_NOTIFY_REPLICATION", 1)
	if err != nil {
		return Server{}, err
	}
	cfg.Kafka.Partitions = int32(partitions)
	cfg.Kafka.Replication = int16(replication)

	if cfg.Migration.NotifyConcurrency < 1 {
		return Server{}, fmt.Errorf("NOTIFY_CONCURRENCY must be positive, got %d", cfg.Migration.NotifyConcurrency)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
