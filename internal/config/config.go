package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultDesignHourlyRate is charged per design hour when PS_DESIGN_HOURLY_RATE is unset.
const DefaultDesignHourlyRate = 25.0

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN     string
	JWTSecret string

	LogLevel string

	SessionDays      int
	LoginRateLimit   int
	DesignHourlyRate float64

	// Optional integrations. Empty values select the in-process fallback.
	RedisURL           string
	MailFrom           string
	SESRegion          string
	MailRetentionDays  int
	AuditRetentionDays int

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
}

// Load reads configuration from PS_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("PS_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("PS_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("PS_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("PS_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PS_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("PS_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("PS_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PS_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("PS_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PS_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("PS_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("PS_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("PS_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	if cfg.SessionDays, err = getEnvIntOrDefault("PS_SESSION_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.SessionDays <= 0 {
		return nil, fmt.Errorf("PS_SESSION_DAYS must be positive (got: %d)", cfg.SessionDays)
	}

	if cfg.LoginRateLimit, err = getEnvIntOrDefault("PS_LOGIN_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	if cfg.DesignHourlyRate, err = getEnvFloatOrDefault("PS_DESIGN_HOURLY_RATE", DefaultDesignHourlyRate); err != nil {
		return nil, err
	}
	if cfg.DesignHourlyRate < 0 {
		return nil, fmt.Errorf("PS_DESIGN_HOURLY_RATE must not be negative")
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("PS_REDIS_URL"))

	cfg.MailFrom = strings.TrimSpace(os.Getenv("PS_MAIL_FROM"))
	cfg.SESRegion = strings.TrimSpace(os.Getenv("PS_SES_REGION"))
	if cfg.SESRegion != "" && cfg.MailFrom == "" {
		return nil, fmt.Errorf("PS_MAIL_FROM is required when PS_SES_REGION is set")
	}

	if cfg.MailRetentionDays, err = getEnvIntOrDefault("PS_MAIL_RETENTION_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays, err = getEnvIntOrDefault("PS_AUDIT_RETENTION_DAYS", 365); err != nil {
		return nil, err
	}

	cfg.OIDCIssuer = strings.TrimSpace(os.Getenv("PS_OIDC_ISSUER"))
	cfg.OIDCClientID = strings.TrimSpace(os.Getenv("PS_OIDC_CLIENT_ID"))
	cfg.OIDCClientSecret = os.Getenv("PS_OIDC_CLIENT_SECRET")
	if cfg.OIDCIssuer != "" && cfg.OIDCClientID == "" {
		return nil, fmt.Errorf("PS_OIDC_CLIENT_ID is required when PS_OIDC_ISSUER is set")
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// OIDCEnabled reports whether an OpenID Connect provider is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// SESEnabled reports whether outbound mail goes through Amazon SES.
func (c *Config) SESEnabled() bool {
	return c.SESRegion != "" && c.MailFrom != ""
}

// OIDCRedirectURL is the callback registered with the identity provider.
func (c *Config) OIDCRedirectURL() string {
	return c.BaseURL + "/api/v1/auth/oidc/callback"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"PS_ENV":                  c.Env,
		"PS_HTTP_ADDR":            c.HTTPAddr,
		"PS_BASE_URL":             c.BaseURL,
		"PS_DB_DSN":               redactDSN(c.DBDSN),
		"PS_JWT_SECRET":           "[REDACTED]",
		"PS_LOG_LEVEL":            c.LogLevel,
		"PS_SESSION_DAYS":         strconv.Itoa(c.SessionDays),
		"PS_LOGIN_RATE_LIMIT":     strconv.Itoa(c.LoginRateLimit),
		"PS_DESIGN_HOURLY_RATE":   strconv.FormatFloat(c.DesignHourlyRate, 'f', 2, 64),
		"PS_REDIS_URL":            redactDSN(c.RedisURL),
		"PS_MAIL_FROM":            c.MailFrom,
		"PS_SES_REGION":           c.SESRegion,
		"PS_MAIL_RETENTION_DAYS":  strconv.Itoa(c.MailRetentionDays),
		"PS_AUDIT_RETENTION_DAYS": strconv.Itoa(c.AuditRetentionDays),
		"PS_OIDC_ISSUER":          c.OIDCIssuer,
		"PS_OIDC_CLIENT_ID":       c.OIDCClientID,
		"PS_OIDC_CLIENT_SECRET":   redactSecret(c.OIDCClientSecret),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func redactSecret(v string) string {
	if v == "" {
		return ""
	}
	return "[REDACTED]"
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number (got: %q)", key, value)
	}
	return parsed, nil
}
