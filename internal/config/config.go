package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSUrl     string
	NATSSubject string
	JWTSecret   string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Scheduler knobs. Defaults mirror the reference deployment: reminders at
	// 48h/24h/12h before the deadline, a 5 minute processing loop with a
	// [-10m, +2m] window, three dispatch attempts and a 24h retry horizon.
	LeadTimes                []time.Duration
	ProcessingInterval       time.Duration
	OverdueSweepInterval     time.Duration
	ApproachingSweepInterval time.Duration
	MaxDispatchAttempts      int
	RetryHorizon             time.Duration
	WindowPastSlack          time.Duration
	WindowFutureSlack        time.Duration

	ResetTokenTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TASKROOM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Taskroom API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "taskroom.notifications")
	v.SetDefault("minio.bucket", "taskroom-solutions")
	v.SetDefault("scheduler.lead_times", "48h,24h,12h")
	v.SetDefault("scheduler.processing_interval", "5m")
	v.SetDefault("scheduler.overdue_sweep_interval", "2m")
	v.SetDefault("scheduler.approaching_sweep_interval", "1h")
	v.SetDefault("scheduler.max_dispatch_attempts", 3)
	v.SetDefault("scheduler.retry_horizon", "24h")
	v.SetDefault("scheduler.window_past_slack", "10m")
	v.SetDefault("scheduler.window_future_slack", "2m")
	v.SetDefault("auth.reset_token_ttl", "15m")

	leadTimes, err := parseLeadTimes(v.GetString("scheduler.lead_times"))
	if err != nil {
		return Config{}, err
	}

	durations := map[string]*time.Duration{
		"scheduler.processing_interval":        nil,
		"scheduler.overdue_sweep_interval":     nil,
		"scheduler.approaching_sweep_interval": nil,
		"scheduler.retry_horizon":              nil,
		"scheduler.window_past_slack":          nil,
		"scheduler.window_future_slack":        nil,
		"auth.reset_token_ttl":                 nil,
	}
	for key := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		value := parsed
		durations[key] = &value
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSUrl:     v.GetString("nats.url"),
		NATSSubject: v.GetString("nats.subject"),
		JWTSecret:   v.GetString("jwt.secret"),

		MinioEndpoint:  v.GetString("minio.endpoint"),
		MinioAccessKey: v.GetString("minio.access_key"),
		MinioSecretKey: v.GetString("minio.secret_key"),
		MinioBucket:    v.GetString("minio.bucket"),
		MinioUseSSL:    v.GetBool("minio.use_ssl"),

		LeadTimes:                leadTimes,
		ProcessingInterval:       *durations["scheduler.processing_interval"],
		OverdueSweepInterval:     *durations["scheduler.overdue_sweep_interval"],
		ApproachingSweepInterval: *durations["scheduler.approaching_sweep_interval"],
		MaxDispatchAttempts:      v.GetInt("scheduler.max_dispatch_attempts"),
		RetryHorizon:             *durations["scheduler.retry_horizon"],
		WindowPastSlack:          *durations["scheduler.window_past_slack"],
		WindowFutureSlack:        *durations["scheduler.window_future_slack"],

		ResetTokenTTL: *durations["auth.reset_token_ttl"],
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxDispatchAttempts <= 0 {
		cfg.MaxDispatchAttempts = 3
	}

	return cfg, nil
}

// parseLeadTimes parses a comma separated list of durations, e.g. "48h,24h,12h".
func parseLeadTimes(raw string) ([]time.Duration, error) {
	parts := strings.Split(raw, ",")
	leadTimes := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		lead, err := time.ParseDuration(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid lead time %q: %w", trimmed, err)
		}
		if lead <= 0 {
			return nil, fmt.Errorf("lead time %q must be positive", trimmed)
		}
		leadTimes = append(leadTimes, lead)
	}

	if len(leadTimes) == 0 {
		return nil, fmt.Errorf("at least one lead time must be configured")
	}

	return leadTimes, nil
}
