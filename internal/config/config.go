package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/medbridge/priorauth/internal/evaluation"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Review    ReviewConfig    `mapstructure:"review"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ReferenceConfig points at the reference data files
type ReferenceConfig struct {
	ProviderDirectoryPath string `mapstructure:"provider_directory_path"`
	CodeTablePath         string `mapstructure:"code_table_path"`
	PolicyIndexPath       string `mapstructure:"policy_index_path"`
}

// ReviewConfig holds the decision pipeline configuration
type ReviewConfig struct {
	Weights  evaluation.Weights        `mapstructure:"weights"`
	Resolver evaluation.ResolverConfig `mapstructure:"resolver"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ResumeInterval time.Duration `mapstructure:"resume_interval"`
	ResumeBatch    int           `mapstructure:"resume_batch"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/priorauth.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Reference data defaults
	viper.SetDefault("reference.provider_directory_path", "configs/reference/providers.json")
	viper.SetDefault("reference.code_table_path", "configs/reference/codes.json")
	viper.SetDefault("reference.policy_index_path", "configs/reference/policies.json")

	// Review defaults
	w := evaluation.DefaultWeights()
	viper.SetDefault("review.weights.provider", w.Provider)
	viper.SetDefault("review.weights.codes", w.Codes)
	viper.SetDefault("review.weights.policy_match", w.PolicyMatch)
	viper.SetDefault("review.weights.clinical_criteria", w.ClinicalCriteria)
	viper.SetDefault("review.weights.documentation", w.Documentation)
	r := evaluation.DefaultResolverConfig()
	viper.SetDefault("review.resolver.allow_deny", r.AllowDeny)
	viper.SetDefault("review.resolver.deny_min_confidence", r.DenyMinConfidence)

	// Worker defaults
	viper.SetDefault("worker.resume_interval", 30*time.Second)
	viper.SetDefault("worker.resume_batch", 10)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
}

// Validate validates the configuration. A bad weight set or resolver
// configuration fails here, before any run starts.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	if c.Reference.ProviderDirectoryPath == "" {
		return fmt.Errorf("reference.provider_directory_path is required")
	}
	if c.Reference.CodeTablePath == "" {
		return fmt.Errorf("reference.code_table_path is required")
	}
	if c.Reference.PolicyIndexPath == "" {
		return fmt.Errorf("reference.policy_index_path is required")
	}

	if err := c.Review.Weights.Validate(); err != nil {
		return fmt.Errorf("review.weights: %w", err)
	}
	if err := c.Review.Resolver.Validate(); err != nil {
		return fmt.Errorf("review.resolver: %w", err)
	}

	return nil
}
