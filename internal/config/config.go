package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sheet backends accepted by SHEET_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
	BackendDynamoDB = "dynamodb"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Questionnaire client
	SubmitURL      string
	SubmitEncoding string
	SubmitTimeout  time.Duration
	AllowRetreat   bool
	CatalogPath    string
	SessionTTL     time.Duration

	// Logging endpoint
	SheetBackend              string
	DatabaseURL               string
	GoogleSheetsSpreadsheetID string
	GoogleSheetsRange         string
	GoogleCredentialsFile     string
	DynamoDBSubmissionsTable  string
	ArchiveBucket             string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	NotifyEmailTo  string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SubmitURL:      strings.TrimSpace(getEnv("SUBMIT_URL", "")),
		SubmitEncoding: strings.ToLower(getEnv("SUBMIT_ENCODING", "form")),
		SubmitTimeout:  getEnvAsDuration("SUBMIT_TIMEOUT", 15*time.Second),
		AllowRetreat:   getEnvAsBool("ALLOW_RETREAT", false),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		SheetBackend:              strings.ToLower(strings.TrimSpace(getEnv("SHEET_BACKEND", BackendMemory))),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		GoogleSheetsSpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		GoogleSheetsRange:         getEnv("GOOGLE_SHEETS_RANGE", "Sheet1"),
		GoogleCredentialsFile:     getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		DynamoDBSubmissionsTable:  getEnv("DYNAMODB_SUBMISSIONS_TABLE", ""),
		ArchiveBucket:             getEnv("ARCHIVE_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", ""),
		NotifyEmailTo:  getEnv("NOTIFY_EMAIL_TO", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// Validate reports settings the selected sheet backend cannot start without.
// SUBMIT_URL is not checked here: an unconfigured URL is reported to the
// respondent at submit time.
func (c *Config) Validate() error {
	var errs []error
	switch c.SheetBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendSheets:
		if c.GoogleSheetsSpreadsheetID == "" {
			errs = append(errs, errors.New("GOOGLE_SHEETS_SPREADSHEET_ID is required for the sheets backend"))
		}
	case BackendDynamoDB:
		if c.DynamoDBSubmissionsTable == "" {
			errs = append(errs, errors.New("DYNAMODB_SUBMISSIONS_TABLE is required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SHEET_BACKEND %q", c.SheetBackend))
	}
	switch strings.ToLower(strings.TrimSpace(c.SubmitEncoding)) {
	case "form", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown SUBMIT_ENCODING %q", c.SubmitEncoding))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit settings must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
