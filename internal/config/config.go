package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DataDir                string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	RedisNamespace         string
	SummaryCacheTTLSeconds int
	DefaultExchangeRate    decimal.Decimal
	RateChangePIN          string
	ReceiptSecret          string
	StoreName              string
	StoreTaxID             string
	StoreTimezone          string
	DisplayLocale          string
	LogLevel               string
	LogFormat              string
	TraceStdout            bool
}

// Load reads an optional .env from the working directory, then an optional
// YAML file named by CONFIG_FILE, then the environment. Environment values
// win over the file, and the file wins over built-in defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	redisDB, err := strconv.Atoi(file.getEnv("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be a non-negative integer")
	}
	ttl, err := strconv.Atoi(file.getEnv("SUMMARY_CACHE_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	rate, err := decimal.NewFromString(file.getEnv("DEFAULT_EXCHANGE_RATE", "36.50"))
	if err != nil || !rate.IsPositive() {
		return Config{}, fmt.Errorf("DEFAULT_EXCHANGE_RATE must be a positive number")
	}
	traceStdout, _ := strconv.ParseBool(file.getEnv("TRACE_STDOUT", "false"))

	cfg := Config{
		Port:                   file.getEnv("PORT", "8080"),
		AllowedOrigin:          file.getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DataDir:                file.getEnv("DATA_DIR", "data"),
		DatabaseURL:            file.getEnv("DATABASE_URL", ""),
		RedisAddr:              file.getEnv("REDIS_ADDR", ""),
		RedisPassword:          file.getEnv("REDIS_PASSWORD", ""),
		RedisDB:                redisDB,
		RedisNamespace:         file.getEnv("REDIS_NAMESPACE", "cajadual"),
		SummaryCacheTTLSeconds: ttl,
		DefaultExchangeRate:    rate,
		RateChangePIN:          strings.TrimSpace(file.getEnv("RATE_CHANGE_PIN", "")),
		ReceiptSecret:          strings.TrimSpace(file.getEnv("RECEIPT_SECRET", "")),
		StoreName:              file.getEnv("STORE_NAME", "CAJA DUAL"),
		StoreTaxID:             file.getEnv("STORE_TAX_ID", ""),
		StoreTimezone:          file.getEnv("STORE_TIMEZONE", "America/Caracas"),
		DisplayLocale:          file.getEnv("DISPLAY_LOCALE", "es"),
		LogLevel:               file.getEnv("LOG_LEVEL", "info"),
		LogFormat:              file.getEnv("LOG_FORMAT", "json"),
		TraceStdout:            traceStdout,
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLSeconds) * time.Second
}

// Location resolves StoreTimezone. Day boundaries for sales and reports are
// taken in this zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

// fileValues holds the CONFIG_FILE entries keyed by their environment
// variable name.
type fileValues map[string]string

func readFile(path string) (fileValues, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return fileValues{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(fileValues, len(doc))
	for key, value := range doc {
		if value == nil {
			continue
		}
		values[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(value)
	}
	return values, nil
}

func (f fileValues) getEnv(key string, fallback string) string {
	return getEnv(key, f.lookup(key, fallback))
}

func (f fileValues) lookup(key string, fallback string) string {
	if val, ok := f[key]; ok && val != "" {
		return val
	}
	return fallback
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
