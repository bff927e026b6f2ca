package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Scrape actor runtime
	ScrapeAPIURL   string `mapstructure:"SCRAPE_API_URL"`
	ScrapeToken    string `mapstructure:"SCRAPE_TOKEN"`
	ScrapeMemoryMB int    `mapstructure:"SCRAPE_MEMORY_MB"`

	// Generative model
	AIAPIURL string `mapstructure:"AI_API_URL"`
	AIAPIKey string `mapstructure:"AI_API_KEY"`
	AIModel  string `mapstructure:"AI_MODEL"`

	// Object storage for rehosted images
	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`

	// Tier quotas
	FreeTierLimit int    `mapstructure:"FREE_TIER_LIMIT"`
	UpgradeURL    string `mapstructure:"UPGRADE_URL"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("SCRAPE_MEMORY_MB", 1024)
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("FREE_TIER_LIMIT", 50)
	viper.SetDefault("UPGRADE_URL", "https://sift.thirdcoast.systems/upgrade")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration",
		"port", cfg.WebServerPort,
		"scrape_configured", cfg.ScrapeToken != "",
		"ai_configured", cfg.AIAPIKey != "",
		"storage_configured", cfg.StorageEndpoint != "",
		"free_tier_limit", cfg.FreeTierLimit,
	)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
