// Package config loads server settings from an optional TOML file and
// EVENTBOARD_* environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// FileEnv names the environment variable that points at a TOML config file.
const FileEnv = "EVENTBOARD_CONFIG"

type Config struct {
	DatabaseURL string `toml:"database_url"` // EVENTBOARD_DATABASE_URL (empty = in-memory store)
	HTTPAddr    string `toml:"http_addr"`    // EVENTBOARD_HTTP_ADDR (default ":3000")
	GRPCAddr    string `toml:"grpc_addr"`    // EVENTBOARD_GRPC_ADDR (default ":9090")

	// Notification bridge; at most one of NATSURL and RedisURL may be set.
	NATSURL      string `toml:"nats_url"`      // EVENTBOARD_NATS_URL
	RedisURL     string `toml:"redis_url"`     // EVENTBOARD_REDIS_URL
	BridgePrefix string `toml:"bridge_prefix"` // EVENTBOARD_BRIDGE_PREFIX (default "eventboard")

	SubscriberBuffer    int `toml:"subscriber_buffer"`     // EVENTBOARD_SUBSCRIBER_BUFFER (default 64)
	SubscriberMaxMissed int `toml:"subscriber_max_missed"` // EVENTBOARD_SUBSCRIBER_MAX_MISSED (default 8)

	Backup Backup `toml:"backup"`

	LogLevel  string `toml:"log_level"`  // EVENTBOARD_LOG_LEVEL (default "info")
	LogFormat string `toml:"log_format"` // EVENTBOARD_LOG_FORMAT (default "text")
}

// Backup configures the periodic snapshot export.
type Backup struct {
	Interval   Duration `toml:"interval"`    // EVENTBOARD_BACKUP_INTERVAL (0 = disabled)
	S3Bucket   string   `toml:"s3_bucket"`   // EVENTBOARD_BACKUP_S3_BUCKET (enables S3 when set)
	S3Key      string   `toml:"s3_key"`      // EVENTBOARD_BACKUP_S3_KEY (default "eventboard/events.jsonl")
	S3Region   string   `toml:"s3_region"`   // EVENTBOARD_BACKUP_S3_REGION (default "us-east-1")
	S3Endpoint string   `toml:"s3_endpoint"` // EVENTBOARD_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	File       string   `toml:"file"`        // EVENTBOARD_BACKUP_FILE (enables the local file destination)
}

// Duration is a time.Duration written as a Go duration string ("5m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPAddr:            ":3000",
		GRPCAddr:            ":9090",
		BridgePrefix:        "eventboard",
		SubscriberBuffer:    64,
		SubscriberMaxMissed: 8,
		Backup: Backup{
			S3Key:    "eventboard/events.jsonl",
			S3Region: "us-east-1",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, then the file named by
// EVENTBOARD_CONFIG (if any), then the environment.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("%s: %w", FileEnv, err)
		}
	}

	setString(&c.DatabaseURL, "EVENTBOARD_DATABASE_URL")
	setString(&c.HTTPAddr, "EVENTBOARD_HTTP_ADDR")
	setString(&c.GRPCAddr, "EVENTBOARD_GRPC_ADDR")
	setString(&c.NATSURL, "EVENTBOARD_NATS_URL")
	setString(&c.RedisURL, "EVENTBOARD_REDIS_URL")
	setString(&c.BridgePrefix, "EVENTBOARD_BRIDGE_PREFIX")
	setString(&c.Backup.S3Bucket, "EVENTBOARD_BACKUP_S3_BUCKET")
	setString(&c.Backup.S3Key, "EVENTBOARD_BACKUP_S3_KEY")
	setString(&c.Backup.S3Region, "EVENTBOARD_BACKUP_S3_REGION")
	setString(&c.Backup.S3Endpoint, "EVENTBOARD_BACKUP_S3_ENDPOINT")
	setString(&c.Backup.File, "EVENTBOARD_BACKUP_FILE")
	setString(&c.LogLevel, "EVENTBOARD_LOG_LEVEL")
	setString(&c.LogFormat, "EVENTBOARD_LOG_FORMAT")

	if err := setInt(&c.SubscriberBuffer, "EVENTBOARD_SUBSCRIBER_BUFFER"); err != nil {
		return nil, err
	}
	if err := setInt(&c.SubscriberMaxMissed, "EVENTBOARD_SUBSCRIBER_MAX_MISSED"); err != nil {
		return nil, err
	}
	if v := os.Getenv("EVENTBOARD_BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("EVENTBOARD_BACKUP_INTERVAL: %w", err)
		}
		c.Backup.Interval = Duration{d}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	if c.NATSURL != "" && c.RedisURL != "" {
		return fmt.Errorf("only one of EVENTBOARD_NATS_URL and EVENTBOARD_REDIS_URL may be set")
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("EVENTBOARD_SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	}
	if c.SubscriberMaxMissed <= 0 {
		return fmt.Errorf("EVENTBOARD_SUBSCRIBER_MAX_MISSED must be positive, got %d", c.SubscriberMaxMissed)
	}
	if c.Backup.Interval.Duration < 0 {
		return fmt.Errorf("EVENTBOARD_BACKUP_INTERVAL must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("EVENTBOARD_LOG_FORMAT: unknown format %q (want text or json)", c.LogFormat)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
