package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	Nutrition  NutritionConfig
	Classifier ClassifierConfig
	Kafka      KafkaConfig
	Email      EmailConfig
	Webhook    WebhookConfig
}

// EmailConfig holds meal summary email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	Recipient   string `mapstructure:"recipient"`
}

// KafkaConfig holds enhanced-order event publishing settings.
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// WebhookConfig holds inbound webhook settings.
type WebhookConfig struct {
	// SigningKey enables HMAC signature verification when non-empty.
	SigningKey string `mapstructure:"signing_key"`
	MaxAgeSecs int    `mapstructure:"max_age_secs"`
}

// SourceConfig holds settings for a single nutrition data source.
type SourceConfig struct {
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
	AppID         string `mapstructure:"app_id"`
	BaseURL       string `mapstructure:"base_url"`
	TimeoutSecs   int    `mapstructure:"timeout_secs"`
	BackoffMillis int    `mapstructure:"backoff_ms"`
	PageSize      int    `mapstructure:"page_size"`
}

// NutritionConfig holds nutrition resolver settings.
type NutritionConfig struct {
	Enabled   bool         `mapstructure:"enabled"`
	Primary   SourceConfig `mapstructure:"primary"`
	Secondary SourceConfig `mapstructure:"secondary"`

	// CacheBackend is one of memory, sqlite, postgres, s3.
	CacheBackend string `mapstructure:"cache_backend"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	S3CacheKey   string `mapstructure:"s3_cache_key"`
	Concurrency  int    `mapstructure:"concurrency"`
}

// SecondaryConfig returns the secondary source config, or nil if not configured.
func (n *NutritionConfig) SecondaryConfig() *SourceConfig {
	if n.Secondary.Provider != "" {
		return &n.Secondary
	}
	return nil
}

// ClassifierConfig overrides the tuned classification and extraction knobs.
type ClassifierConfig struct {
	MinStrongIndicators int      `mapstructure:"min_strong_indicators"`
	RestaurantMinLen    int      `mapstructure:"restaurant_min_len"`
	RestaurantMaxLen    int      `mapstructure:"restaurant_max_len"`
	PaymentTokens       []string `mapstructure:"payment_tokens"`
	ExclusionTerms      []string `mapstructure:"exclusion_terms"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`

	// SQLitePath stores orders locally when Postgres is disabled. Empty
	// disables order persistence.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level         string `mapstructure:"level"`
	TraceCapacity int    `mapstructure:"trace_capacity"`
}

// Load reads configuration from environment variables with the MEALMAIL_ prefix.
func Load() (*Config, error) {
	return LoadWithFlags(nil, nil)
}

// LoadWithFlags is Load with command-line overrides. bindings maps a config
// key such as "nutrition.primary.provider" to a flag name in fs; a flag
// only wins over the environment when it was set explicitly.
func LoadWithFlags(fs *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEALMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:3000")

	// DB defaults
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "mealmail")
	v.SetDefault("db.password", "mealmail_secret")
	v.SetDefault("db.name", "mealmail_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)
	v.SetDefault("db.sqlite_path", "mealmail.db")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "mealmail-cache")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.trace_capacity", 2048)

	// Nutrition defaults
	v.SetDefault("nutrition.enabled", true)
	v.SetDefault("nutrition.primary.provider", "usda")
	v.SetDefault("nutrition.primary.api_key", "DEMO_KEY")
	v.SetDefault("nutrition.primary.base_url", "")
	v.SetDefault("nutrition.primary.timeout_secs", 15)
	v.SetDefault("nutrition.primary.backoff_ms", 100)
	v.SetDefault("nutrition.primary.page_size", 25)
	v.SetDefault("nutrition.secondary.provider", "openfoodfacts")
	v.SetDefault("nutrition.secondary.base_url", "")
	v.SetDefault("nutrition.secondary.timeout_secs", 15)
	v.SetDefault("nutrition.secondary.backoff_ms", 200)
	v.SetDefault("nutrition.secondary.page_size", 20)
	v.SetDefault("nutrition.cache_backend", "memory")
	v.SetDefault("nutrition.sqlite_path", "nutrition_cache.db")
	v.SetDefault("nutrition.s3_cache_key", "nutrition/cache.json")
	v.SetDefault("nutrition.concurrency", 1)

	// Classifier defaults (zero values keep the built-in tuning)
	v.SetDefault("classifier.min_strong_indicators", 3)
	v.SetDefault("classifier.restaurant_min_len", 3)
	v.SetDefault("classifier.restaurant_max_len", 49)
	v.SetDefault("classifier.payment_tokens", "")
	v.SetDefault("classifier.exclusion_terms", "")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "mealmail.orders")
	v.SetDefault("kafka.client_id", "mealmail")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@mealmail.local")
	v.SetDefault("email.from_name", "MealMail")
	v.SetDefault("email.recipient", "")

	// Webhook defaults
	v.SetDefault("webhook.signing_key", "")
	v.SetDefault("webhook.max_age_secs", 300)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                      "MEALMAIL_SERVER_PORT",
		"server.read_timeout":              "MEALMAIL_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "MEALMAIL_SERVER_WRITE_TIMEOUT",
		"server.environment":               "MEALMAIL_SERVER_ENVIRONMENT",
		"server.cors_origins":              "MEALMAIL_SERVER_CORS_ORIGINS",
		"db.enabled":                       "MEALMAIL_DB_ENABLED",
		"db.host":                          "MEALMAIL_DB_HOST",
		"db.port":                          "MEALMAIL_DB_PORT",
		"db.user":                          "MEALMAIL_DB_USER",
		"db.password":                      "MEALMAIL_DB_PASSWORD",
		"db.name":                          "MEALMAIL_DB_NAME",
		"db.sslmode":                       "MEALMAIL_DB_SSLMODE",
		"db.max_open":                      "MEALMAIL_DB_MAX_OPEN",
		"db.max_idle":                      "MEALMAIL_DB_MAX_IDLE",
		"db.sqlite_path":                   "MEALMAIL_DB_SQLITE_PATH",
		"s3.region":                        "MEALMAIL_S3_REGION",
		"s3.bucket":                        "MEALMAIL_S3_BUCKET",
		"s3.endpoint":                      "MEALMAIL_S3_ENDPOINT",
		"s3.access_key":                    "MEALMAIL_S3_ACCESS_KEY",
		"s3.secret_key":                    "MEALMAIL_S3_SECRET_KEY",
		"log.level":                        "MEALMAIL_LOG_LEVEL",
		"log.trace_capacity":               "MEALMAIL_LOG_TRACE_CAPACITY",
		"nutrition.enabled":                "MEALMAIL_NUTRITION_ENABLED",
		"nutrition.primary.provider":       "MEALMAIL_NUTRITION_PRIMARY_PROVIDER",
		"nutrition.primary.api_key":        "MEALMAIL_NUTRITION_PRIMARY_API_KEY",
		"nutrition.primary.app_id":         "MEALMAIL_NUTRITION_PRIMARY_APP_ID",
		"nutrition.primary.base_url":       "MEALMAIL_NUTRITION_PRIMARY_BASE_URL",
		"nutrition.primary.timeout_secs":   "MEALMAIL_NUTRITION_PRIMARY_TIMEOUT_SECS",
		"nutrition.primary.backoff_ms":     "MEALMAIL_NUTRITION_PRIMARY_BACKOFF_MS",
		"nutrition.primary.page_size":      "MEALMAIL_NUTRITION_PRIMARY_PAGE_SIZE",
		"nutrition.secondary.provider":     "MEALMAIL_NUTRITION_SECONDARY_PROVIDER",
		"nutrition.secondary.api_key":      "MEALMAIL_NUTRITION_SECONDARY_API_KEY",
		"nutrition.secondary.app_id":       "MEALMAIL_NUTRITION_SECONDARY_APP_ID",
		"nutrition.secondary.base_url":     "MEALMAIL_NUTRITION_SECONDARY_BASE_URL",
		"nutrition.secondary.timeout_secs": "MEALMAIL_NUTRITION_SECONDARY_TIMEOUT_SECS",
		"nutrition.secondary.backoff_ms":   "MEALMAIL_NUTRITION_SECONDARY_BACKOFF_MS",
		"nutrition.secondary.page_size":    "MEALMAIL_NUTRITION_SECONDARY_PAGE_SIZE",
		"nutrition.cache_backend":          "MEALMAIL_NUTRITION_CACHE_BACKEND",
		"nutrition.sqlite_path":            "MEALMAIL_NUTRITION_SQLITE_PATH",
		"nutrition.s3_cache_key":           "MEALMAIL_NUTRITION_S3_CACHE_KEY",
		"nutrition.concurrency":            "MEALMAIL_NUTRITION_CONCURRENCY",
		"classifier.min_strong_indicators": "MEALMAIL_CLASSIFIER_MIN_STRONG_INDICATORS",
		"classifier.restaurant_min_len":    "MEALMAIL_CLASSIFIER_RESTAURANT_MIN_LEN",
		"classifier.restaurant_max_len":    "MEALMAIL_CLASSIFIER_RESTAURANT_MAX_LEN",
		"classifier.payment_tokens":        "MEALMAIL_CLASSIFIER_PAYMENT_TOKENS",
		"classifier.exclusion_terms":       "MEALMAIL_CLASSIFIER_EXCLUSION_TERMS",
		"kafka.enabled":                    "MEALMAIL_KAFKA_ENABLED",
		"kafka.brokers":                    "MEALMAIL_KAFKA_BROKERS",
		"kafka.topic":                      "MEALMAIL_KAFKA_TOPIC",
		"kafka.client_id":                  "MEALMAIL_KAFKA_CLIENT_ID",
		"email.provider":                   "MEALMAIL_EMAIL_PROVIDER",
		"email.region":                     "MEALMAIL_EMAIL_REGION",
		"email.from_address":               "MEALMAIL_EMAIL_FROM_ADDRESS",
		"email.from_name":                  "MEALMAIL_EMAIL_FROM_NAME",
		"email.recipient":                  "MEALMAIL_EMAIL_RECIPIENT",
		"webhook.signing_key":              "MEALMAIL_WEBHOOK_SIGNING_KEY",
		"webhook.max_age_secs":             "MEALMAIL_WEBHOOK_MAX_AGE_SECS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	if fs != nil {
		for key, name := range bindings {
			flag := fs.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("config: unknown flag %q for key %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("config: binding flag %q: %w", name, err)
			}
		}
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if MEALMAIL_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MEALMAIL_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		CORSOrigins:  splitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Enabled:  v.GetBool("db.enabled"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),

		SQLitePath: v.GetString("db.sqlite_path"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:         v.GetString("log.level"),
		TraceCapacity: v.GetInt("log.trace_capacity"),
	}

	cfg.Nutrition = NutritionConfig{
		Enabled:      v.GetBool("nutrition.enabled"),
		Primary:      sourceConfig(v, "nutrition.primary"),
		Secondary:    sourceConfig(v, "nutrition.secondary"),
		CacheBackend: strings.ToLower(v.GetString("nutrition.cache_backend")),
		SQLitePath:   v.GetString("nutrition.sqlite_path"),
		S3CacheKey:   v.GetString("nutrition.s3_cache_key"),
		Concurrency:  v.GetInt("nutrition.concurrency"),
	}

	cfg.Classifier = ClassifierConfig{
		MinStrongIndicators: v.GetInt("classifier.min_strong_indicators"),
		RestaurantMinLen:    v.GetInt("classifier.restaurant_min_len"),
		RestaurantMaxLen:    v.GetInt("classifier.restaurant_max_len"),
		PaymentTokens:       splitList(v.GetString("classifier.payment_tokens")),
		ExclusionTerms:      splitList(v.GetString("classifier.exclusion_terms")),
	}
	if cfg.Classifier.RestaurantMinLen > cfg.Classifier.RestaurantMaxLen {
		return nil, fmt.Errorf("classifier.restaurant_min_len (%d) exceeds restaurant_max_len (%d)",
			cfg.Classifier.RestaurantMinLen, cfg.Classifier.RestaurantMaxLen)
	}

	cfg.Kafka = KafkaConfig{
		Enabled:  v.GetBool("kafka.enabled"),
		Brokers:  splitList(v.GetString("kafka.brokers")),
		Topic:    v.GetString("kafka.topic"),
		ClientID: v.GetString("kafka.client_id"),
	}

	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		Recipient:   v.GetString("email.recipient"),
	}

	cfg.Webhook = WebhookConfig{
		SigningKey: v.GetString("webhook.signing_key"),
		MaxAgeSecs: v.GetInt("webhook.max_age_secs"),
	}

	return cfg, nil
}

func sourceConfig(v *viper.Viper, prefix string) SourceConfig {
	return SourceConfig{
		Provider:      strings.ToLower(v.GetString(prefix + ".provider")),
		APIKey:        v.GetString(prefix + ".api_key"),
		AppID:         v.GetString(prefix + ".app_id"),
		BaseURL:       v.GetString(prefix + ".base_url"),
		TimeoutSecs:   v.GetInt(prefix + ".timeout_secs"),
		BackoffMillis: v.GetInt(prefix + ".backoff_ms"),
		PageSize:      v.GetInt(prefix + ".page_size"),
	}
}

// splitList parses a comma-separated string, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
