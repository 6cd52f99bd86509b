package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Detector DetectorConfig
	Vision   VisionConfig
	Pipeline PipelineConfig
	Store    StoreConfig
	Cache    CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DetectorConfig holds configuration for the external object detector.
type DetectorConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	BaseURL             string  `mapstructure:"base_url"`
	ModelID             string  `mapstructure:"model_id"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// VisionConfig holds configuration for the vision-language capability.
type VisionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds pipeline orchestration settings.
type PipelineConfig struct {
	Concurrency            int           `mapstructure:"concurrency"`
	PaddingPct             float64       `mapstructure:"padding_pct"`
	UnitTimeout            time.Duration `mapstructure:"unit_timeout"`
	LowConfidenceThreshold float64       `mapstructure:"low_confidence_threshold"`
	JPEGQuality            int           `mapstructure:"jpeg_quality"`
	EnableDebugLogging     bool          `mapstructure:"enable_debug_logging"`
}

// StoreConfig holds reference-store settings.
type StoreConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pillscan/")

	v.SetEnvPrefix("PILLSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("detector.api_key", "")
	v.SetDefault("detector.base_url", "https://detect.roboflow.com")
	v.SetDefault("detector.model_id", "pill-detection/1")
	v.SetDefault("detector.confidence_threshold", 0.60)

	v.SetDefault("vision.base_url", "http://localhost:11434")
	v.SetDefault("vision.model", "llama3.2-vision")
	v.SetDefault("vision.timeout", "120s")

	v.SetDefault("pipeline.concurrency", 3)
	v.SetDefault("pipeline.padding_pct", 0.06)
	v.SetDefault("pipeline.unit_timeout", "60s")
	v.SetDefault("pipeline.low_confidence_threshold", 0.70)
	v.SetDefault("pipeline.jpeg_quality", 90)
	v.SetDefault("pipeline.enable_debug_logging", false)

	v.SetDefault("store.seed_file", "")

	v.SetDefault("cache.ttl", "24h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Detector.APIKey == "" {
		return fmt.Errorf("detector API key is required (set PILLSCAN_DETECTOR_API_KEY)")
	}

	if config.Detector.ConfidenceThreshold < 0 || config.Detector.ConfidenceThreshold > 1 {
		return fmt.Errorf("detector confidence threshold must be in [0,1], got: %v", config.Detector.ConfidenceThreshold)
	}

	if config.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1, got: %d", config.Pipeline.Concurrency)
	}

	if config.Pipeline.PaddingPct < 0 || config.Pipeline.PaddingPct > 1 {
		return fmt.Errorf("pipeline padding must be a fraction in [0,1], got: %v", config.Pipeline.PaddingPct)
	}

	if config.Pipeline.JPEGQuality < 1 || config.Pipeline.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got: %d", config.Pipeline.JPEGQuality)
	}

	return nil
}
