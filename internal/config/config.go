package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	Tracker TrackerConfig
}

// TrackerConfig holds the presence/reminder/queue tuning knobs.
// Loaded from an optional YAML file (CONFIG_FILE); every field has a
// working default so the file is not required.
type TrackerConfig struct {
	IdleThreshold        time.Duration // idle gaps at or below this are noise
	ReminderTick         time.Duration // reminder sweep interval
	QueueBackoff         time.Duration // delivery retry pause after a sink failure
	QueueBatchSize       int           // max records per drain cycle
	ReminderMarkCapacity int           // dedup set bound
	PresenceTTL          time.Duration // presence fact expiry
	Timezone             string        // reporting timezone
}

// Load loads configuration from environment variables and the optional
// tracker tuning file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Tracker: TrackerConfig{
			IdleThreshold:        30 * time.Second,
			ReminderTick:         60 * time.Second,
			QueueBackoff:         5 * time.Second,
			QueueBatchSize:       5,
			ReminderMarkCapacity: 100,
			PresenceTTL:          12 * time.Hour,
			Timezone:             "Local",
		},
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 4096

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadTrackerFile(path, &config.Tracker); err != nil {
			return nil, err
		}
	}

	if err := config.Tracker.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadTrackerFile overlays tracker settings from a YAML file. Durations
// are given as Go duration strings ("30s", "5m").
func loadTrackerFile(path string, tc *TrackerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file struct {
		Tracker struct {
			IdleThreshold        string `yaml:"idle_threshold"`
			ReminderTick         string `yaml:"reminder_tick"`
			QueueBackoff         string `yaml:"queue_backoff"`
			QueueBatchSize       *int   `yaml:"queue_batch_size"`
			ReminderMarkCapacity *int   `yaml:"reminder_mark_capacity"`
			PresenceTTL          string `yaml:"presence_ttl"`
			Timezone             string `yaml:"timezone"`
		} `yaml:"tracker"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setDuration := func(field *time.Duration, value, name string) error {
		if value == "" {
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", name, path, err)
		}
		*field = d
		return nil
	}

	if err := setDuration(&tc.IdleThreshold, file.Tracker.IdleThreshold, "idle_threshold"); err != nil {
		return err
	}
	if err := setDuration(&tc.ReminderTick, file.Tracker.ReminderTick, "reminder_tick"); err != nil {
		return err
	}
	if err := setDuration(&tc.QueueBackoff, file.Tracker.QueueBackoff, "queue_backoff"); err != nil {
		return err
	}
	if err := setDuration(&tc.PresenceTTL, file.Tracker.PresenceTTL, "presence_ttl"); err != nil {
		return err
	}
	if file.Tracker.QueueBatchSize != nil {
		tc.QueueBatchSize = *file.Tracker.QueueBatchSize
	}
	if file.Tracker.ReminderMarkCapacity != nil {
		tc.ReminderMarkCapacity = *file.Tracker.ReminderMarkCapacity
	}
	if file.Tracker.Timezone != "" {
		tc.Timezone = file.Tracker.Timezone
	}
	return nil
}

func (tc *TrackerConfig) validate() error {
	if tc.IdleThreshold < 0 {
		return fmt.Errorf("idle_threshold must not be negative")
	}
	if tc.ReminderTick <= 0 {
		return fmt.Errorf("reminder_tick must be positive")
	}
	if tc.QueueBackoff <= 0 {
		return fmt.Errorf("queue_backoff must be positive")
	}
	if tc.QueueBatchSize <= 0 {
		return fmt.Errorf("queue_batch_size must be positive")
	}
	if tc.ReminderMarkCapacity <= 0 {
		return fmt.Errorf("reminder_mark_capacity must be positive")
	}
	return nil
}

// Location resolves the reporting timezone
func (tc *TrackerConfig) Location() (*time.Location, error) {
	if tc.Timezone == "" || tc.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tc.Timezone, err)
	}
	return loc, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
