package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string                         `mapstructure:"environment"`
	LogLevel    string                         `mapstructure:"log_level"`
	Server      ServerConfig                   `mapstructure:"server"`
	Database    DatabaseConfig                 `mapstructure:"database"`
	Redis       RedisConfig                    `mapstructure:"redis"`
	JWT         JWTConfig                      `mapstructure:"jwt"`
	Circle      CircleConfig                   `mapstructure:"circle"`
	CCTP        CCTPConfig                     `mapstructure:"cctp"`
	Chains      map[string]ChainOverrideConfig `mapstructure:"chains"`
	Bridge      BridgeConfig                   `mapstructure:"bridge"`
	Workers     WorkerConfig                   `mapstructure:"workers"`
	Alerts      AlertConfig                    `mapstructure:"alerts"`
	Tracing     TracingConfig                  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

// RedisConfig configures the optional wallet cache and provisioning lock.
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	WalletTTL  time.Duration `mapstructure:"wallet_ttl"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	LockRetry  time.Duration `mapstructure:"lock_retry"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AccessTTL int    `mapstructure:"access_token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

// CircleConfig contains developer-controlled wallets configuration
type CircleConfig struct {
	APIKey                 string   `mapstructure:"api_key"`
	BaseURL                string   `mapstructure:"base_url"`
	Environment            string   `mapstructure:"environment"`
	EntitySecret           string   `mapstructure:"entity_secret"`
	EntitySecretCiphertext string   `mapstructure:"entity_secret_ciphertext"`
	WalletSetID            string   `mapstructure:"wallet_set_id"`
	WalletSetName          string   `mapstructure:"wallet_set_name"`
	WalletMetadataName     string   `mapstructure:"wallet_metadata_name"`
	AccountType            string   `mapstructure:"account_type"`
	SupportedChains        []string `mapstructure:"supported_chains"`
	FeeLevel               string   `mapstructure:"fee_level"`
	RequestsPerSecond      float64  `mapstructure:"requests_per_second"`
	Timeout                int      `mapstructure:"timeout"`
}

// CCTPConfig points at the attestation oracle
type CCTPConfig struct {
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
	Timeout     int    `mapstructure:"timeout"`
}

// ChainOverrideConfig replaces fields of a built-in chain entry. Empty fields keep the default.
type ChainOverrideConfig struct {
	RPCURLs       []string `mapstructure:"rpc_urls"`
	ExplorerTxURL string   `mapstructure:"explorer_tx_url"`
	TokenAddress  string   `mapstructure:"token_address"`
	MinNativeGas  string   `mapstructure:"min_native_gas"`
}

type BridgeConfig struct {
	HubChain                string          `mapstructure:"hub_chain"`
	AttestationPollInterval time.Duration   `mapstructure:"attestation_poll_interval"`
	AttestationMaxAttempts  int             `mapstructure:"attestation_max_attempts"`
	ExecutionPollInterval   time.Duration   `mapstructure:"execution_poll_interval"`
	ExecutionMaxAttempts    int             `mapstructure:"execution_max_attempts"`
	DeliveryBackoff         []time.Duration `mapstructure:"delivery_backoff"`
	MaxFee                  string          `mapstructure:"max_fee"`
	MinFinalityThreshold    uint32          `mapstructure:"min_finality_threshold"`
	BackgroundTimeout       time.Duration   `mapstructure:"background_timeout"`
}

type WorkerConfig struct {
	RecoverySchedule string        `mapstructure:"recovery_schedule"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	SweepLimit       int           `mapstructure:"sweep_limit"`
}

// AlertConfig configures operator emails for stalled sagas
type AlertConfig struct {
	SendGridAPIKey string   `mapstructure:"sendgrid_api_key"`
	FromEmail      string   `mapstructure:"from_email"`
	FromName       string   `mapstructure:"from_name"`
	Recipients     []string `mapstructure:"recipients"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv(v)

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_min", 120)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "hub_bridge")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.wallet_ttl", 24*time.Hour)
	v.SetDefault("redis.lock_ttl", 30*time.Second)
	v.SetDefault("redis.lock_retry", 250*time.Millisecond)

	v.SetDefault("jwt.access_token_ttl", 3600)
	v.SetDefault("jwt.issuer", "hub_bridge")

	v.SetDefault("circle.environment", "sandbox")
	v.SetDefault("circle.wallet_set_name", "ArcHub-Autonomous-v3")
	v.SetDefault("circle.wallet_metadata_name", "AGENT-SCA-UNIVERSAL")
	v.SetDefault("circle.account_type", "SCA")
	v.SetDefault("circle.supported_chains", []string{"arcTestnet", "ethereumSepolia", "baseSepolia"})
	v.SetDefault("circle.fee_level", "MEDIUM")
	v.SetDefault("circle.requests_per_second", 10.0)
	v.SetDefault("circle.timeout", 30)

	v.SetDefault("cctp.environment", "sandbox")
	v.SetDefault("cctp.timeout", 30)

	v.SetDefault("bridge.hub_chain", "arcTestnet")
	v.SetDefault("bridge.attestation_poll_interval", 15*time.Second)
	v.SetDefault("bridge.attestation_max_attempts", 60)
	v.SetDefault("bridge.execution_poll_interval", 2*time.Second)
	v.SetDefault("bridge.execution_max_attempts", 15)
	v.SetDefault("bridge.delivery_backoff", []string{"20s", "40s", "60s", "60s", "60s"})
	v.SetDefault("bridge.max_fee", "0")
	v.SetDefault("bridge.min_finality_threshold", 0)
	v.SetDefault("bridge.background_timeout", 45*time.Minute)

	v.SetDefault("workers.recovery_schedule", "@every 5m")
	v.SetDefault("workers.stale_after", 30*time.Minute)
	v.SetDefault("workers.sweep_limit", 100)

	v.SetDefault("alerts.from_name", "Hub Bridge")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_url", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
}

func overrideFromEnv(v *viper.Viper) {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("server.port", p)
		}
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	// Redis
	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		v.Set("redis.host", redisURL)
		v.Set("redis.enabled", true)
	}

	// JWT
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		v.Set("jwt.secret", jwtSecret)
	}

	// Circle API
	if circleKey := os.Getenv("CIRCLE_API_KEY"); circleKey != "" {
		v.Set("circle.api_key", circleKey)
	}
	if circleBaseURL := os.Getenv("CIRCLE_BASE_URL"); circleBaseURL != "" {
		v.Set("circle.base_url", circleBaseURL)
	}
	if entitySecret := os.Getenv("CIRCLE_ENTITY_SECRET"); entitySecret != "" {
		v.Set("circle.entity_secret", entitySecret)
	}
	// Pre-registered entity secret ciphertext from the Circle dashboard
	if ciphertext := os.Getenv("CIRCLE_ENTITY_SECRET_CIPHERTEXT"); ciphertext != "" {
		v.Set("circle.entity_secret_ciphertext", ciphertext)
	}
	if walletSetID := os.Getenv("CIRCLE_WALLET_SET_ID"); walletSetID != "" {
		v.Set("circle.wallet_set_id", walletSetID)
	}
	if supportedChains := os.Getenv("CIRCLE_SUPPORTED_CHAINS"); supportedChains != "" {
		if chains := splitList(supportedChains); len(chains) > 0 {
			v.Set("circle.supported_chains", chains)
		}
	}
	if circleEnv := os.Getenv("CIRCLE_ENVIRONMENT"); circleEnv != "" {
		v.Set("circle.environment", circleEnv)
	}

	// Attestation oracle
	if cctpEnv := os.Getenv("CCTP_ENVIRONMENT"); cctpEnv != "" {
		v.Set("cctp.environment", cctpEnv)
	}

	// Alerts
	if sendgridKey := os.Getenv("SENDGRID_API_KEY"); sendgridKey != "" {
		v.Set("alerts.sendgrid_api_key", sendgridKey)
	}
	if recipients := os.Getenv("ALERT_RECIPIENTS"); recipients != "" {
		v.Set("alerts.recipients", splitList(recipients))
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Circle.EntitySecret == "" && config.Circle.EntitySecretCiphertext == "" && config.Circle.APIKey != "" {
		return fmt.Errorf("circle entity secret or pre-registered ciphertext is required")
	}

	if len(config.Circle.SupportedChains) == 0 {
		return fmt.Errorf("circle supported chains configuration is required")
	}

	if len(config.Bridge.DeliveryBackoff) == 0 {
		return fmt.Errorf("bridge delivery backoff needs at least one delay")
	}
	for i, d := range config.Bridge.DeliveryBackoff {
		if d < 0 {
			return fmt.Errorf("bridge delivery backoff[%d] is negative: %s", i, d)
		}
	}

	if config.Bridge.AttestationMaxAttempts <= 0 || config.Bridge.ExecutionMaxAttempts <= 0 {
		return fmt.Errorf("bridge poll budgets must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs against production infrastructure
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
