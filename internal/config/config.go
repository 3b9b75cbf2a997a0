package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Image    ImageConfig    `mapstructure:"image" validate:"required"`
	Polling  PollingConfig  `mapstructure:"polling" validate:"required"`
	Batch    BatchConfig    `mapstructure:"batch" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects the persistent store. An empty URL keeps all state in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// LLMConfig configures the vocabulary provider selected at startup.
type LLMConfig struct {
	DefaultProvider string `mapstructure:"default_provider" validate:"required"`
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base_url" validate:"omitempty,url"`
	// StrictParse surfaces malformed provider output as an error instead of
	// substituting the default vocabulary.
	StrictParse    bool          `mapstructure:"strict_parse"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`
}

// ImageConfig configures the image generation job API.
type ImageConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	APIVersion     string        `mapstructure:"api_version" validate:"required"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model" validate:"required"`
	AspectRatio    string        `mapstructure:"aspect_ratio" validate:"required"`
	Resolution     string        `mapstructure:"resolution" validate:"required,oneof=1K 2K 4K"`
	OutputFormat   string        `mapstructure:"output_format" validate:"required,oneof=png jpg webp"`
	CallbackURL    string        `mapstructure:"callback_url" validate:"omitempty,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`
}

// PollingConfig bounds how long a job is polled.
type PollingConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"required,gt=0"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"required,gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"required,gt=0"`
}

// BatchConfig controls batch generation fan-out.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"required,gte=1,lte=10"`
}

// StorageConfig holds persistence options.
type StorageConfig struct {
	// SecretKey is a hex-encoded 32-byte key. When set, stored API keys are sealed.
	SecretKey string `mapstructure:"secret_key" validate:"omitempty,hexadecimal,len=64"`
}
