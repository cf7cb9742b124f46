package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/incident-risk-zones/internal/cluster"
	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DatabaseURL is the Postgres DSN of the incident source. Empty disables
	// the source-backed endpoints and the snapshot publisher.
	DatabaseURL string

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	SnapshotInterval   time.Duration

	DefaultParams  domain.Params
	MaxIncidents   int
	NeighborIndex  cluster.IndexKind
	ClusterWorkers int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	snapshotInterval, err := parsePositiveDuration("SNAPSHOT_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	params, err := parseDefaultParams()
	if err != nil {
		return nil, err
	}

	maxIncidents, err := parsePositiveInt("MAX_INCIDENTS", 50000)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("CLUSTER_WORKERS", 1)
	if err != nil {
		return nil, err
	}

	index, err := cluster.ParseIndexKind(sharedcfg.EnvOrDefault("NEIGHBOR_INDEX", string(cluster.IndexS2)))
	if err != nil {
		return nil, fmt.Errorf("invalid NEIGHBOR_INDEX: %w", err)
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "risk-zone-snapshots"),
		SnapshotInterval:   snapshotInterval,
		DefaultParams:      params,
		MaxIncidents:       maxIncidents,
		NeighborIndex:      index,
		ClusterWorkers:     workers,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
		if cfg.DatabaseURL == "" {
			return nil, errors.New("KAFKA_ENABLED is true but DATABASE_URL is not set")
		}
	}

	return cfg, nil
}

func parseDefaultParams() (domain.Params, error) {
	p := domain.DefaultParams()

	var err error
	if p.RadiusMeters, err = parseFloat("DEFAULT_RADIUS_M", p.RadiusMeters); err != nil {
		return p, err
	}
	if p.MinPoints, err = parseInt("DEFAULT_MIN_PTS", p.MinPoints); err != nil {
		return p, err
	}
	if p.Sensitivity, err = parseFloat("DEFAULT_SMOOTHING_K", p.Sensitivity); err != nil {
		return p, err
	}
	if p.SmoothingWindow, err = parseInt("DEFAULT_SMOOTHING_M", p.SmoothingWindow); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid default analysis parameters: %w", err)
	}
	return p, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	n, err := parseInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
