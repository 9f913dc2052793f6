package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	CORSAllowedOrigins         []string
	InternalJobToken           string
	RefreshEnabled             bool
	RefreshInterval            time.Duration
	RefreshFetchTimeout        time.Duration
	RefreshMaxWorkers          int
	FetchMaxRetries            int
	FetchUserAgent             string
	FetchDocumentCacheTTL      time.Duration
	FetchCircuitEnabled        bool
	FetchCircuitFailureCount   int
	FetchCircuitOpenTimeout    time.Duration
	FetchCircuitHalfOpenMaxReq int
	LayoutScreenHeight         int
	LayoutMaxHeightFraction    float64
	BoardCloseWhenEmpty        bool
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	LogLevel                   logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	refreshEnabled, err := strconv.ParseBool(getEnv("REFRESH_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_ENABLED: %w", err)
	}
	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be > 0")
	}
	refreshFetchTimeout, err := time.ParseDuration(getEnv("REFRESH_FETCH_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_FETCH_TIMEOUT: %w", err)
	}
	if refreshFetchTimeout <= 0 {
		return Config{}, fmt.Errorf("REFRESH_FETCH_TIMEOUT must be > 0")
	}
	refreshMaxWorkers, err := getEnvAsInt("REFRESH_MAX_WORKERS", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_MAX_WORKERS: %w", err)
	}
	if refreshMaxWorkers < 1 {
		return Config{}, fmt.Errorf("REFRESH_MAX_WORKERS must be >= 1")
	}

	fetchMaxRetries, err := getEnvAsInt("FETCH_MAX_RETRIES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_MAX_RETRIES: %w", err)
	}
	if fetchMaxRetries < 0 {
		return Config{}, fmt.Errorf("FETCH_MAX_RETRIES must be >= 0")
	}
	fetchDocumentCacheTTL, err := time.ParseDuration(getEnv("FETCH_DOCUMENT_CACHE_TTL", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_DOCUMENT_CACHE_TTL: %w", err)
	}
	if fetchDocumentCacheTTL <= 0 {
		return Config{}, fmt.Errorf("FETCH_DOCUMENT_CACHE_TTL must be > 0")
	}
	fetchCircuitEnabled, err := strconv.ParseBool(getEnv("FETCH_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_ENABLED: %w", err)
	}
	fetchCircuitFailureCount, err := getEnvAsInt("FETCH_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if fetchCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FETCH_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	fetchCircuitOpenTimeout, err := time.ParseDuration(getEnv("FETCH_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if fetchCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	fetchCircuitHalfOpenMaxReq, err := getEnvAsInt("FETCH_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if fetchCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("FETCH_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	layoutScreenHeight, err := getEnvAsInt("LAYOUT_SCREEN_HEIGHT", 1080)
	if err != nil {
		return Config{}, fmt.Errorf("parse LAYOUT_SCREEN_HEIGHT: %w", err)
	}
	if layoutScreenHeight <= 0 {
		return Config{}, fmt.Errorf("LAYOUT_SCREEN_HEIGHT must be > 0")
	}
	layoutMaxHeightFraction, err := strconv.ParseFloat(strings.TrimSpace(getEnv("LAYOUT_MAX_HEIGHT_FRACTION", "0.85")), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse LAYOUT_MAX_HEIGHT_FRACTION: %w", err)
	}
	if layoutMaxHeightFraction <= 0 || layoutMaxHeightFraction > 1 {
		return Config{}, fmt.Errorf("LAYOUT_MAX_HEIGHT_FRACTION must be in (0,1]")
	}
	boardCloseWhenEmpty, err := strconv.ParseBool(getEnv("BOARD_CLOSE_WHEN_EMPTY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BOARD_CLOSE_WHEN_EMPTY: %w", err)
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "matchboard"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		RefreshEnabled:             refreshEnabled,
		RefreshInterval:            refreshInterval,
		RefreshFetchTimeout:        refreshFetchTimeout,
		RefreshMaxWorkers:          refreshMaxWorkers,
		FetchMaxRetries:            fetchMaxRetries,
		FetchUserAgent:             strings.TrimSpace(getEnv("FETCH_USER_AGENT", "matchboard/1.0")),
		FetchDocumentCacheTTL:      fetchDocumentCacheTTL,
		FetchCircuitEnabled:        fetchCircuitEnabled,
		FetchCircuitFailureCount:   fetchCircuitFailureCount,
		FetchCircuitOpenTimeout:    fetchCircuitOpenTimeout,
		FetchCircuitHalfOpenMaxReq: fetchCircuitHalfOpenMaxReq,
		LayoutScreenHeight:         layoutScreenHeight,
		LayoutMaxHeightFraction:    layoutMaxHeightFraction,
		BoardCloseWhenEmpty:        boardCloseWhenEmpty,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		LogLevel:                   logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	for item := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
