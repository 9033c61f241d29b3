// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// EnvPrefix is prepended to every environment override, e.g. SOLSCANNER_SCANNER_LIMIT
const EnvPrefix = "SOLSCANNER"

// APIKeyEnv is read as the Helius credential when set
const APIKeyEnv = "HELIUS_API_KEY"

// EnvFiles are loaded into the process environment before viper reads it
var EnvFiles = []string{"config.env", ".env"}

// Config holds all configuration for the application
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Helius        HeliusConfig       `mapstructure:"helius"`
	Scanner       ScannerConfig      `mapstructure:"scanner"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HeliusConfig contains the transaction indexing API configuration
type HeliusConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 0 keeps the transport default
}

// ScannerConfig contains polling configuration
type ScannerConfig struct {
	Interval  time.Duration             `mapstructure:"interval"`
	Limit     int                       `mapstructure:"limit"`
	Addresses []models.MonitoredAddress `mapstructure:"addresses"`
}

// StorageConfig contains detection journal configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // memory, sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// NotificationConfig contains detection sink configuration
type NotificationConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
}

// WebhookConfig configures the webhook sink
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// KafkaConfig configures the kafka sink
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// DefaultAddresses is the registry used when none is configured
var DefaultAddresses = []models.MonitoredAddress{
	{Label: "Token Program", Address: "TokenkegQfeZyiNwAJbNbGKPFXCWvBvf9Ss623VQ5DA"},
	{Label: "Raydium AMM", Address: "RVKd61ztZW9DQjhwvZ3ZzBivGiCuQ4Cuj3kYVfCR7c5"},
	{Label: "Orca Whirlpools", Address: "whirLbENtLpzWobY9haJ9YQ2uJCNJhznfxMTr7nEQTf"},
	{Label: "Meteora", Address: "Z3kgbRyVXETPBxM1Yk9zHqv7qL7U3UhGp8yzfGctX1v"},
	{Label: "Lifinity", Address: "LifnCkKq1UXnPxfmsYQ4egmMp8JZQm7NvCDybNqCYvG"},
	{Label: "Phoenix Orderbook", Address: "4ckmDgGzLYLyL6tY1U25YzFaCrAbzRYcnm1Xf2g3Syst"},
	{Label: "Saber", Address: "SaberESsHnJptWVA4z7hEFS4wCWv95fkt2yC7oDwP23"},
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(EnvFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&config, hooks); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if apiKey := os.Getenv(APIKeyEnv); apiKey != "" {
		config.Helius.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}

	return &config, nil
}

// loadEnvFiles loads dotenv files that exist; present variables are not overwritten
func loadEnvFiles(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
	}
	return nil
}

// secondsToDurationHook lets plain numbers be given for durations, read as seconds
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}
		switch value := data.(type) {
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		case string:
			if seconds, err := strconv.ParseFloat(value, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "solana-mint-scanner")
	v.SetDefault("app.environment", "development")

	// Helius defaults
	v.SetDefault("helius.base_url", "https://api.helius.xyz/v0/addresses")
	v.SetDefault("helius.api_key", "")
	v.SetDefault("helius.request_timeout", "0s")

	// Scanner defaults
	v.SetDefault("scanner.interval", "3s")
	v.SetDefault("scanner.limit", 100)
	addresses := make([]map[string]interface{}, 0, len(DefaultAddresses))
	for _, addr := range DefaultAddresses {
		addresses = append(addresses, map[string]interface{}{
			"label":   addr.Label,
			"address": addr.Address,
		})
	}
	v.SetDefault("scanner.addresses", addresses)

	// Storage defaults
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.connection_string", "./data/detections.db")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.max_idle_time", "15m")

	// Notification defaults
	v.SetDefault("notifications.webhook.enabled", false)
	v.SetDefault("notifications.webhook.url", "")
	v.SetDefault("notifications.webhook.timeout", "10s")
	v.SetDefault("notifications.kafka.enabled", false)
	v.SetDefault("notifications.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("notifications.kafka.topic", "solana-token-mints")
	v.SetDefault("notifications.kafka.batch_timeout", "10ms")

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.enable_health", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Helius.APIKey == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Helius API key is required",
			"set "+APIKeyEnv+" or helius.api_key")
	}
	if u, err := url.Parse(c.Helius.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Helius base URL must be an absolute http(s) URL", c.Helius.BaseURL)
	}
	if c.Helius.RequestTimeout < 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Request timeout must not be negative", "")
	}
	if c.Scanner.Interval <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Scan interval must be positive", "")
	}
	if c.Scanner.Limit <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Result limit must be positive", strconv.Itoa(c.Scanner.Limit))
	}
	if err := validateAddresses(c.Scanner.Addresses); err != nil {
		return err
	}

	switch strings.ToLower(c.Storage.Type) {
	case "memory":
	case "sqlite", "postgres", "postgresql":
		if c.Storage.ConnectionString == "" {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Storage connection string is required", c.Storage.Type)
		}
	default:
		return utils.NewAppError(utils.ErrCodeConfiguration, "Unsupported storage type", c.Storage.Type)
	}

	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Webhook URL is required when webhook notifications are enabled", "")
	}
	if c.Notifications.Kafka.Enabled {
		if len(c.Notifications.Kafka.Brokers) == 0 {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Kafka brokers are required when kafka notifications are enabled", "")
		}
		if c.Notifications.Kafka.Topic == "" {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Kafka topic is required when kafka notifications are enabled", "")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Server port out of range", strconv.Itoa(c.Server.Port))
	}
	return nil
}

func validateAddresses(addresses []models.MonitoredAddress) error {
	if len(addresses) == 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "At least one monitored address is required", "")
	}
	labels := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if addr.Label == "" {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Monitored address label is required", addr.Address)
		}
		if _, dup := labels[addr.Label]; dup {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Duplicate monitored address label", addr.Label)
		}
		labels[addr.Label] = struct{}{}
		if !utils.IsValidSolanaAddress(addr.Address) {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid monitored address",
				fmt.Sprintf("%s: %q", addr.Label, addr.Address))
		}
	}
	return nil
}

// MonitoredAddresses returns a copy of the registry in configured order
func (c *Config) MonitoredAddresses() []models.MonitoredAddress {
	addresses := make([]models.MonitoredAddress, len(c.Scanner.Addresses))
	copy(addresses, c.Scanner.Addresses)
	return addresses
}
