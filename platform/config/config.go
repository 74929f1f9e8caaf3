// Package config loads application configuration from the environment.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides access-token validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the Redis connection used for locks, cursors and tasks.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	// GetFollowUpSweepSchedule is a cron spec for re-enqueueing due reminders.
	GetFollowUpSweepSchedule() string
}

// SMTPConfig provides settings for follow-up reminder e-mail.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromName() string
	GetSMTPFromAddress() string
	IsSMTPEnabled() bool
}

// MailboxConfig provides settings for the IMAP intake mailbox.
type MailboxConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	GetMailboxPollSchedule() string
	GetMailboxBatchSize() int
	IsMailboxEnabled() bool
}

// MinIOConfig provides settings for the raw message archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOBucketRawMessages() string
	IsMinIOEnabled() bool
}

// IntakeConfig provides settings for the intake pipeline.
type IntakeConfig interface {
	GetLeadSourcesFile() string
	GetDefaultPhoneRegion() string
	GetAutoAssign() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	FollowUpSweepSchedule string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromName    string
	SMTPFromAddress string

	IMAPHost            string
	IMAPPort            int
	IMAPUsername        string
	IMAPPassword        string
	IMAPFolder          string
	MailboxPollSchedule string
	MailboxBatchSize    int

	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinIOBucketRawMessages string

	LeadSourcesFile    string
	DefaultPhoneRegion string
	AutoAssign         bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetFollowUpSweepSchedule() string { return c.FollowUpSweepSchedule }

func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) IsSMTPEnabled() bool        { return c.SMTPHost != "" && c.SMTPFromAddress != "" }

func (c *Config) GetIMAPHost() string            { return c.IMAPHost }
func (c *Config) GetIMAPPort() int               { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string        { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string        { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string          { return c.IMAPFolder }
func (c *Config) GetMailboxPollSchedule() string { return c.MailboxPollSchedule }
func (c *Config) GetMailboxBatchSize() int       { return c.MailboxBatchSize }
func (c *Config) IsMailboxEnabled() bool         { return c.IMAPHost != "" && c.IMAPUsername != "" }

func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOBucketRawMessages() string { return c.MinIOBucketRawMessages }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

func (c *Config) GetLeadSourcesFile() string    { return c.LeadSourcesFile }
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }
func (c *Config) GetAutoAssign() bool           { return c.AutoAssign }

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10"), 10),

		FollowUpSweepSchedule: getEnv("FOLLOWUP_SWEEP_SCHEDULE", "0 8 * * *"),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        mustInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFromName:    getEnv("SMTP_FROM_NAME", "Lead Desk"),
		SMTPFromAddress: getEnv("SMTP_FROM_ADDRESS", ""),

		IMAPHost:            getEnv("IMAP_HOST", ""),
		IMAPPort:            mustInt(getEnv("IMAP_PORT", "993"), 993),
		IMAPUsername:        getEnv("IMAP_USERNAME", ""),
		IMAPPassword:        getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:          getEnv("IMAP_FOLDER", "INBOX"),
		MailboxPollSchedule: getEnv("MAILBOX_POLL_SCHEDULE", "@every 2m"),
		MailboxBatchSize:    mustInt(getEnv("MAILBOX_BATCH_SIZE", "50"), 50),

		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOBucketRawMessages: getEnv("MINIO_BUCKET_RAW_MESSAGES", "inbound-lead-messages"),

		LeadSourcesFile:    getEnv("LEAD_SOURCES_FILE", ""),
		DefaultPhoneRegion: strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US")),
		AutoAssign:         !strings.EqualFold(getEnv("INTAKE_AUTO_ASSIGN", "true"), "false"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.IsMailboxEnabled() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when IMAP_HOST is set")
	}
	if c.IsMinIOEnabled() && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MustDuration parses d, returning fallback when d is empty or invalid.
func MustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
