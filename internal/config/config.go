package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RevocationBackendDB    = "db"
	RevocationBackendRedis = "redis"

	NotifierLog  = "log"
	NotifierSMTP = "smtp"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer          string
	JWTAudience        string
	JWTAccessSecret    string
	JWTRefreshSecret   string
	JWTAccessTTL       time.Duration
	JWTRefreshTTL      time.Duration
	CORSAllowedOrigins []string

	AuthOTPLength                   int
	AuthOTPTTL                      time.Duration
	AuthOTPMaxAttempts              int
	AuthResetTokenSecret            string
	AuthPasswordResetTTL            time.Duration
	AuthPasswordResetBaseURL        string
	AuthPasswordResetConcealUnknown bool
	AuthStoreTimeout                time.Duration
	AuthHashTime                    int
	AuthHashMemoryKiB               int
	AuthHashThreads                 int

	AuthRateLimitPerMin   int
	APIRateLimitPerMin    int
	RateLimitRedisEnabled bool

	RevocationBackend string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPrefix       string

	Notifier          string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	NotifyWorkers     int
	NotifyQueueSize   int
	NotifySendTimeout time.Duration

	ReadinessProbeTimeout        time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:                             env,
		HTTPPort:                        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:                     os.Getenv("DATABASE_URL"),
		JWTIssuer:                       getEnv("JWT_ISSUER", "account-lifecycle-service"),
		JWTAudience:                     getEnv("JWT_AUDIENCE", "account-lifecycle-service-api"),
		JWTAccessSecret:                 os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:                os.Getenv("JWT_REFRESH_SECRET"),
		CORSAllowedOrigins:              splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthOTPLength:                   getEnvInt("AUTH_OTP_LENGTH", 6),
		AuthOTPMaxAttempts:              getEnvInt("AUTH_OTP_MAX_ATTEMPTS", 5),
		AuthResetTokenSecret:            os.Getenv("AUTH_RESET_TOKEN_SECRET"),
		AuthPasswordResetBaseURL:        getEnv("AUTH_PASSWORD_RESET_BASE_URL", "http://localhost:3000/password-reset-confirm"),
		AuthPasswordResetConcealUnknown: getEnvBool("AUTH_PASSWORD_RESET_CONCEAL_UNKNOWN", false),
		AuthHashTime:                    getEnvInt("AUTH_HASH_TIME", 3),
		AuthHashMemoryKiB:               getEnvInt("AUTH_HASH_MEMORY_KIB", 64*1024),
		AuthHashThreads:                 getEnvInt("AUTH_HASH_THREADS", 2),
		AuthRateLimitPerMin:             getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:              getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled:           getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RevocationBackend:               strings.ToLower(getEnv("REVOCATION_BACKEND", RevocationBackendDB)),
		RedisAddr:                       os.Getenv("REDIS_ADDR"),
		RedisPassword:                   os.Getenv("REDIS_PASSWORD"),
		RedisDB:                         getEnvInt("REDIS_DB", 0),
		RedisPrefix:                     getEnv("REDIS_PREFIX", "account-lifecycle"),
		Notifier:                        strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
		SMTPHost:                        os.Getenv("SMTP_HOST"),
		SMTPPort:                        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:                    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:                    os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:                        getEnv("SMTP_FROM", "no-reply@localhost"),
		NotifyWorkers:                   getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize:                 getEnvInt("NOTIFY_QUEUE_SIZE", 256),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "account-lifecycle-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"JWT_ACCESS_TTL", "15m", &cfg.JWTAccessTTL},
		{"JWT_REFRESH_TTL", "168h", &cfg.JWTRefreshTTL},
		{"AUTH_OTP_TTL", "15m", &cfg.AuthOTPTTL},
		{"AUTH_PASSWORD_RESET_TTL", "1h", &cfg.AuthPasswordResetTTL},
		{"AUTH_STORE_TIMEOUT", "3s", &cfg.AuthStoreTimeout},
		{"NOTIFY_SEND_TIMEOUT", "10s", &cfg.NotifySendTimeout},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.target = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 chars")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if len(c.AuthResetTokenSecret) < 32 {
		errs = append(errs, "AUTH_RESET_TOKEN_SECRET must be at least 32 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.JWTRefreshTTL <= 0 || c.JWTRefreshTTL > (30*24*time.Hour) {
		errs = append(errs, "JWT_REFRESH_TTL must be between 1s and 30d")
	}
	if c.AuthOTPLength < 6 || c.AuthOTPLength > 10 {
		errs = append(errs, "AUTH_OTP_LENGTH must be between 6 and 10")
	}
	if c.AuthOTPTTL <= 0 || c.AuthOTPTTL > 24*time.Hour {
		errs = append(errs, "AUTH_OTP_TTL must be between 1s and 24h")
	}
	if c.AuthOTPMaxAttempts <= 0 {
		errs = append(errs, "AUTH_OTP_MAX_ATTEMPTS must be > 0")
	}
	if c.AuthPasswordResetTTL <= 0 || c.AuthPasswordResetTTL > 24*time.Hour {
		errs = append(errs, "AUTH_PASSWORD_RESET_TTL must be between 1s and 24h")
	}
	if u, err := url.Parse(c.AuthPasswordResetBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "AUTH_PASSWORD_RESET_BASE_URL must be an absolute URL")
	}
	if c.AuthStoreTimeout <= 0 {
		errs = append(errs, "AUTH_STORE_TIMEOUT must be > 0")
	}
	if c.AuthHashTime <= 0 || c.AuthHashMemoryKiB < 8*1024 || c.AuthHashThreads <= 0 || c.AuthHashThreads > 255 {
		errs = append(errs, "AUTH_HASH_* must be positive with at least 8192 KiB memory")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	switch c.RevocationBackend {
	case RevocationBackendDB, RevocationBackendRedis:
	default:
		errs = append(errs, "REVOCATION_BACKEND must be one of db, redis")
	}
	if c.UsesRedis() && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when redis is used")
	}
	switch c.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			errs = append(errs, "SMTP_HOST and SMTP_PORT are required when NOTIFIER=smtp")
		}
		if c.SMTPFrom == "" {
			errs = append(errs, "SMTP_FROM is required when NOTIFIER=smtp")
		}
	default:
		errs = append(errs, "NOTIFIER must be one of log, smtp")
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueueSize <= 0 {
		errs = append(errs, "NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be > 0")
	}
	if c.NotifySendTimeout <= 0 {
		errs = append(errs, "NOTIFY_SEND_TIMEOUT must be > 0")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownObservabilityTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_* timeouts must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must not exceed SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if !isLocalLikeEnv(c.Env) {
		errs = append(errs, c.productionErrors()...)
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// UsesRedis reports whether any component is configured against redis.
func (c *Config) UsesRedis() bool {
	return c.RevocationBackend == RevocationBackendRedis || c.RateLimitRedisEnabled
}

func (c *Config) productionErrors() []string {
	var errs []string
	if c.Notifier != NotifierSMTP {
		errs = append(errs, "NOTIFIER=smtp is required outside local environments")
	}
	if u, err := url.Parse(c.AuthPasswordResetBaseURL); err == nil && u.Scheme != "https" {
		errs = append(errs, "AUTH_PASSWORD_RESET_BASE_URL must use https outside local environments")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * outside local environments")
			break
		}
	}
	return errs
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
