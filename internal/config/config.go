package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends understood by StorageConfig.Backend.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageDynamo   = "dynamodb"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Order     OrderConfig     `yaml:"order"`
	Backend   BackendConfig   `yaml:"fake_backend"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout of zero leaves requests unbounded; only the transport can fail them.
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend     string        `yaml:"backend"`
	Path        string        `yaml:"path"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisKeyTTL time.Duration `yaml:"redis_key_ttl"`
	DatabaseURL string        `yaml:"database_url"`
	DynamoTable string        `yaml:"dynamo_table"`
	AWSRegion   string        `yaml:"aws_region"`
}

type TelemetryConfig struct {
	Enabled      bool     `yaml:"enabled"`
	IPLookupURL  string   `yaml:"ip_lookup_url"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	Tracing      bool     `yaml:"tracing"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type OrderConfig struct {
	RedirectURL  string        `yaml:"redirect_url"`
	FallbackPath string        `yaml:"fallback_path"`
	DisplayDelay time.Duration `yaml:"display_delay"`
}

type BackendConfig struct {
	Addr           string `yaml:"addr"`
	MaxQuantity    int    `yaml:"max_quantity"`
	SeedCatalogDir string `yaml:"seed_catalog"`
}

func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: "info",
		API: APIConfig{
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Backend:     StorageFile,
			Path:        defaultStoragePath(),
			RedisPrefix: "ceremic:storefront:",
			DynamoTable: "storefront_kv",
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			IPLookupURL: "https://api.ipify.org?format=json",
			KafkaTopic:  "storefront-events",
		},
		Catalog: CatalogConfig{
			CacheTTL: 30 * time.Minute,
		},
		Order: OrderConfig{
			FallbackPath: "/Ceremic/thank-you",
			DisplayDelay: 2 * time.Second,
		},
		Backend: BackendConfig{
			Addr: ":8080",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// STOREFRONT_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageFile, StorageRedis, StoragePostgres, StorageDynamo:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.Catalog.CacheTTL <= 0 {
		return fmt.Errorf("catalog cache ttl must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.API.BaseURL = strings.TrimRight(getEnv("API_BASE_URL", cfg.API.BaseURL), "/")
	cfg.API.Timeout = getEnvDuration("API_TIMEOUT", cfg.API.Timeout)

	cfg.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.Path = getEnv("STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.RedisURL = getEnv("REDIS_URL", cfg.Storage.RedisURL)
	cfg.Storage.RedisPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Storage.RedisPrefix)
	cfg.Storage.RedisKeyTTL = getEnvDuration("REDIS_KEY_TTL", cfg.Storage.RedisKeyTTL)
	cfg.Storage.DatabaseURL = getEnv("DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Storage.DynamoTable = getEnv("DYNAMO_TABLE", cfg.Storage.DynamoTable)
	cfg.Storage.AWSRegion = getEnv("AWS_REGION", cfg.Storage.AWSRegion)

	cfg.Telemetry.Enabled = getEnvBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.IPLookupURL = getEnv("IP_LOOKUP_URL", cfg.Telemetry.IPLookupURL)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Telemetry.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.Telemetry.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Telemetry.KafkaTopic)
	cfg.Telemetry.Tracing = getEnvBool("TRACING_ENABLED", cfg.Telemetry.Tracing)

	cfg.Catalog.CacheTTL = getEnvDuration("CATALOG_CACHE_TTL", cfg.Catalog.CacheTTL)

	cfg.Order.RedirectURL = getEnv("POST_PURCHASE_REDIRECT_URL", cfg.Order.RedirectURL)
	cfg.Order.FallbackPath = getEnv("POST_PURCHASE_FALLBACK_PATH", cfg.Order.FallbackPath)
	cfg.Order.DisplayDelay = getEnvDuration("ORDER_DISPLAY_DELAY", cfg.Order.DisplayDelay)

	cfg.Backend.Addr = getEnv("FAKE_BACKEND_ADDR", cfg.Backend.Addr)
	cfg.Backend.MaxQuantity = getEnvInt("FAKE_BACKEND_MAX_QUANTITY", cfg.Backend.MaxQuantity)
	cfg.Backend.SeedCatalogDir = getEnv("FAKE_BACKEND_SEED", cfg.Backend.SeedCatalogDir)
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront.json"
	}
	return dir + string(os.PathSeparator) + "ceremic" + string(os.PathSeparator) + "storage.json"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
