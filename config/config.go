package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv    string
	Port      string
	DB        DatabaseConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Valkey    ValkeyConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig
	Realtime  RealtimeConfig
	Telemetry TelemetryConfig
}

type DatabaseConfig struct {
	Engine      string
	Host        string
	Port        string
	Name        string
	Username    string
	Password    string
	SSLMode     string
	AutoMigrate bool
}

// AuthConfig describes how access tokens minted by the hosted auth service
// are verified.
type AuthConfig struct {
	JWTSecret        []byte
	Issuer           string
	AccessCookieName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ValkeyConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type StorageConfig struct {
	Region           string
	Endpoint         string
	AvatarBucket     string
	BackgroundBucket string
	PublicBaseURL    string
	SignedURLs       bool
	SignedURLTTL     time.Duration
	UsePathStyle     bool
	MaxUploadBytes   int64
}

type AnalyticsConfig struct {
	CacheTTL       time.Duration
	TopLinks       int
	VisitorHashKey []byte
}

type RealtimeConfig struct {
	ListenPostgres bool
	PingInterval   time.Duration
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

	dbName := getEnv("DB_NAME", "")
	if dbName == "" {
		dbName = os.Getenv("DB_INSTANCE_IDENTIFIER")
	}

	jwtSecret := os.Getenv("AUTH_JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET must be set")
	}

	corsOrigins := parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	valkeyDB, err := strconv.Atoi(getEnv("VALKEY_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid VALKEY_DB: %w", err)
	}

	dbSSLMode := getEnv("DB_SSLMODE", "")
	if dbSSLMode == "" {
		if appEnv == "prod" {
			dbSSLMode = "require"
		} else {
			dbSSLMode = "disable"
		}
	}

	signedURLTTL, err := time.ParseDuration(getEnv("STORAGE_SIGNED_URL_TTL", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORAGE_SIGNED_URL_TTL: %w", err)
	}
	maxUpload, err := strconv.ParseInt(getEnv("STORAGE_MAX_UPLOAD_BYTES", "5242880"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORAGE_MAX_UPLOAD_BYTES: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("ANALYTICS_CACHE_TTL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ANALYTICS_CACHE_TTL: %w", err)
	}
	topLinks, err := strconv.Atoi(getEnv("ANALYTICS_TOP_LINKS", "5"))
	if err != nil || topLinks <= 0 {
		return Config{}, fmt.Errorf("invalid ANALYTICS_TOP_LINKS: %q", os.Getenv("ANALYTICS_TOP_LINKS"))
	}

	pingInterval, err := time.ParseDuration(getEnv("REALTIME_PING_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REALTIME_PING_INTERVAL: %w", err)
	}

	exportTimeout, err := time.ParseDuration(getEnv("OTEL_EXPORTER_OTLP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_TIMEOUT: %w", err)
	}
	metricInterval, err := time.ParseDuration(getEnv("OTEL_METRIC_EXPORT_INTERVAL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_METRIC_EXPORT_INTERVAL: %w", err)
	}

	cfg := Config{
		AppEnv: appEnv,
		Port:   port,
		DB: DatabaseConfig{
			Engine:      getEnv("DB_ENGINE", "postgres"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			Name:        dbName,
			Username:    getEnv("DB_USERNAME", ""),
			Password:    getEnv("DB_PASSWORD", ""),
			SSLMode:     dbSSLMode,
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", appEnv != "prod"),
		},
		Auth: AuthConfig{
			JWTSecret:        []byte(jwtSecret),
			Issuer:           getEnv("AUTH_JWT_ISSUER", ""),
			AccessCookieName: getEnv("AUTH_ACCESS_COOKIE_NAME", "access_token"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Valkey: ValkeyConfig{
			Enabled:  getEnvBool("VALKEY_ENABLED", true),
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       valkeyDB,
			Prefix:   getEnv("VALKEY_PREFIX", "linkbio:analytics"),
		},
		Storage: StorageConfig{
			Region:           getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:         getEnv("STORAGE_ENDPOINT", ""),
			AvatarBucket:     getEnv("STORAGE_AVATAR_BUCKET", "avatars"),
			BackgroundBucket: getEnv("STORAGE_BACKGROUND_BUCKET", "backgrounds"),
			PublicBaseURL:    strings.TrimSuffix(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
			SignedURLs:       getEnvBool("STORAGE_SIGNED_URLS", false),
			SignedURLTTL:     signedURLTTL,
			UsePathStyle:     getEnvBool("STORAGE_USE_PATH_STYLE", false),
			MaxUploadBytes:   maxUpload,
		},
		Analytics: AnalyticsConfig{
			CacheTTL:       cacheTTL,
			TopLinks:       topLinks,
			VisitorHashKey: []byte(getEnv("ANALYTICS_VISITOR_KEY", jwtSecret)),
		},
		Realtime: RealtimeConfig{
			ListenPostgres: getEnvBool("REALTIME_LISTEN_POSTGRES", true),
			PingInterval:   pingInterval,
		},
		Telemetry: TelemetryConfig{
			ServiceName:          getEnv("OTEL_SERVICE_NAME", "linkbio-service"),
			ServiceVersion:       getEnv("OTEL_SERVICE_VERSION", "dev"),
			OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPTracesEndpoint:   getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
			OTLPMetricsEndpoint:  getEnv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ""),
			OTLPProtocol:         getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			OTLPHeaders:          parseHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", appEnv != "prod"),
			ExportTimeout:        exportTimeout,
			MetricExportInterval: metricInterval,
		},
	}

	if !cfg.Storage.SignedURLs && cfg.Storage.PublicBaseURL == "" {
		return Config{}, errors.New("STORAGE_PUBLIC_BASE_URL must be set unless STORAGE_SIGNED_URLS is enabled")
	}

	if cfg.DB.Name == "" || cfg.DB.Username == "" {
		return Config{}, errors.New("DB_NAME (or DB_INSTANCE_IDENTIFIER) and DB_USERNAME must be set")
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

// parseHeaders reads the OTLP "k1=v1,k2=v2" header format.
func parseHeaders(value string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range parseCSV(value) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(val)
	}
	return headers
}
