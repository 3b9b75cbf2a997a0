package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "LITPOSTER"

// keys lists every setting so AutomaticEnv can resolve values without a file.
var keys = []string{
	"server.port",
	"server.log_level",
	"database.url",
	"llm.default_provider",
	"llm.api_key",
	"llm.model",
	"llm.base_url",
	"llm.strict_parse",
	"llm.request_timeout",
	"image.base_url",
	"image.api_version",
	"image.api_key",
	"image.model",
	"image.aspect_ratio",
	"image.resolution",
	"image.output_format",
	"image.callback_url",
	"image.request_timeout",
	"polling.interval",
	"polling.max_attempts",
	"polling.timeout",
	"batch.concurrency",
	"storage.secret_key",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.default_provider", "siliconflow")
	v.SetDefault("llm.strict_parse", false)
	v.SetDefault("llm.request_timeout", 60*time.Second)

	v.SetDefault("image.base_url", "https://api.kie.ai")
	v.SetDefault("image.api_version", "v1")
	v.SetDefault("image.model", "nano-banana-pro")
	v.SetDefault("image.aspect_ratio", "3:4")
	v.SetDefault("image.resolution", "2K")
	v.SetDefault("image.output_format", "png")
	v.SetDefault("image.request_timeout", 30*time.Second)

	v.SetDefault("polling.interval", 2*time.Second)
	v.SetDefault("polling.max_attempts", 150)
	v.SetDefault("polling.timeout", 5*time.Minute)

	v.SetDefault("batch.concurrency", 3)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags on a populated Config, then the settings that
// depend on each other. Every inconsistency is reported at once.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var result *multierror.Error
	if cfg.Polling.Timeout < cfg.Polling.Interval {
		result = multierror.Append(result, errors.New("polling.timeout must not be shorter than polling.interval"))
	}
	if cfg.LLM.BaseURL != "" && cfg.LLM.APIKey == "" {
		result = multierror.Append(result, errors.New("llm.base_url requires llm.api_key"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
