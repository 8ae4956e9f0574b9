package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv    string
	Port      string
	Identity  IdentityConfig
	API       APIConfig
	Store     StoreConfig
	DB        DatabaseConfig
	Session   SessionConfig
	Cookie    CookieConfig
	CORS      CORSConfig
	Telemetry TelemetryConfig
}

// IdentityConfig describes the external identity provider this service
// authenticates against. The provider owns credentials and email
// verification; this service only consumes its REST contract.
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// APIConfig points at the companion API gateway hosting the Slack
// integration, email service, provider-lookup and image endpoints.
type APIConfig struct {
	Hostname string
	Timeout  time.Duration
}

type StoreConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type DatabaseConfig struct {
	Engine   string
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	SSLMode  string
}

type SessionConfig struct {
	TokenSecret       []byte
	Issuer            string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	AccessCookieName  string
	RefreshCookieName string
}

type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
	Path     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type TelemetryConfig struct {
	ServiceName          string
	ServiceVersion       string
	OTLPEndpoint         string
	OTLPTracesEndpoint   string
	OTLPMetricsEndpoint  string
	OTLPProtocol         string
	OTLPHeaders          map[string]string
	OTLPInsecure         bool
	ExportTimeout        time.Duration
	MetricExportInterval time.Duration
}

func Load() (Config, error) {
	appEnv := getEnv("APP_ENV", "dev")
	port := getEnv("APP_PORT", "8080")

	identityBase := os.Getenv("IDENTITY_BASE_URL")
	if identityBase == "" {
		return Config{}, errors.New("IDENTITY_BASE_URL must be set")
	}
	identityTimeout, err := time.ParseDuration(getEnv("IDENTITY_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid IDENTITY_TIMEOUT: %w", err)
	}

	apiHostname := os.Getenv("API_HOSTNAME")
	if apiHostname == "" {
		return Config{}, errors.New("API_HOSTNAME must be set")
	}
	apiTimeout, err := time.ParseDuration(getEnv("API_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}

	sessionSecret := os.Getenv("SESSION_TOKEN_SECRET")
	if sessionSecret == "" {
		return Config{}, errors.New("SESSION_TOKEN_SECRET must be set")
	}
	accessTTL, err := time.ParseDuration(getEnv("SESSION_ACCESS_TTL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_ACCESS_TTL: %w", err)
	}
	refreshTTL, err := time.ParseDuration(getEnv("SESSION_REFRESH_TTL", "720h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_REFRESH_TTL: %w", err)
	}

	cookieSecure := getEnvBool("COOKIE_SECURE", appEnv == "prod")
	sameSite, err := parseSameSite(getEnv("COOKIE_SAMESITE", "lax"))
	if err != nil {
		return Config{}, err
	}

	corsOrigins := parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	storeDB, err := strconv.Atoi(getEnv("RECORD_STORE_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid RECORD_STORE_DB: %w", err)
	}

	dbName := getEnv("DB_NAME", "")
	if dbName == "" {
		dbName = os.Getenv("DB_INSTANCE_IDENTIFIER")
	}
	dbSSLMode := getEnv("DB_SSLMODE", "")
	if dbSSLMode == "" {
		if appEnv == "prod" {
			dbSSLMode = "require"
		} else {
			dbSSLMode = "disable"
		}
	}

	exportTimeout, err := time.ParseDuration(getEnv("OTEL_EXPORT_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_EXPORT_TIMEOUT: %w", err)
	}
	metricInterval, err := time.ParseDuration(getEnv("OTEL_METRIC_EXPORT_INTERVAL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_METRIC_EXPORT_INTERVAL: %w", err)
	}

	cfg := Config{
		AppEnv: appEnv,
		Port:   port,
		Identity: IdentityConfig{
			BaseURL: strings.TrimSuffix(identityBase, "/"),
			APIKey:  os.Getenv("IDENTITY_API_KEY"),
			Timeout: identityTimeout,
		},
		API: APIConfig{
			Hostname: strings.TrimSuffix(apiHostname, "/"),
			Timeout:  apiTimeout,
		},
		Store: StoreConfig{
			Addr:     getEnv("RECORD_STORE_ADDR", "localhost:6379"),
			Password: getEnv("RECORD_STORE_PASSWORD", ""),
			DB:       storeDB,
			Prefix:   getEnv("RECORD_STORE_PREFIX", "marketplace"),
		},
		DB: DatabaseConfig{
			Engine:   getEnv("DB_ENGINE", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     dbName,
			Username: getEnv("DB_USERNAME", ""),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  dbSSLMode,
		},
		Session: SessionConfig{
			TokenSecret:       []byte(sessionSecret),
			Issuer:            getEnv("SESSION_ISSUER", "marketplace-auth"),
			AccessTokenTTL:    accessTTL,
			RefreshTokenTTL:   refreshTTL,
			AccessCookieName:  getEnv("SESSION_ACCESS_COOKIE_NAME", "access_token"),
			RefreshCookieName: getEnv("SESSION_REFRESH_COOKIE_NAME", "refresh_token"),
		},
		Cookie: CookieConfig{
			Domain:   getEnv("COOKIE_DOMAIN", ""),
			Secure:   cookieSecure,
			SameSite: sameSite,
			Path:     getEnv("COOKIE_PATH", "/"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Telemetry: TelemetryConfig{
			ServiceName:          getEnv("OTEL_SERVICE_NAME", "marketplace-auth"),
			ServiceVersion:       getEnv("OTEL_SERVICE_VERSION", "dev"),
			OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPTracesEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"),
			OTLPMetricsEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
			OTLPProtocol:         getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			OTLPHeaders:          parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", appEnv != "prod"),
			ExportTimeout:        exportTimeout,
			MetricExportInterval: metricInterval,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	var results []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func parseHeaders(value string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range parseCSV(value) {
		key, val, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return headers
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(value) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return http.SameSiteDefaultMode, fmt.Errorf("invalid COOKIE_SAMESITE: %s", value)
	}
}
