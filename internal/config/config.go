package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	LogFormat                        string `mapstructure:"LOG_FORMAT"`   // "development" or "production"
	StoreDriver                      string `mapstructure:"STORE_DRIVER"` // "firestore" or "memory"
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseWebAPIKey                string `mapstructure:"FIREBASE_WEB_API_KEY"` // Identity Toolkit sign-in
	FederatedRequestURI              string `mapstructure:"FEDERATED_REQUEST_URI"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	GameTimezone                     string `mapstructure:"GAME_TIMEZONE"`

	// GameLocation is GameTimezone resolved at load time.
	GameLocation *time.Location `mapstructure:"-"`
}

var envKeys = []string{
	"PORT",
	"GIN_MODE",
	"LOG_FORMAT",
	"STORE_DRIVER",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"FIREBASE_WEB_API_KEY",
	"FEDERATED_REQUEST_URI",
	"CLIENT_URL",
	"GAME_TIMEZONE",
}

// LoadConfig loads configuration from environment variables using Viper.
// If CONFIG_FILE is set, that file is read first and the environment
// overrides it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_FORMAT", "development")
	v.SetDefault("STORE_DRIVER", StoreDriverFirestore)
	v.SetDefault("FEDERATED_REQUEST_URI", "http://localhost")
	v.SetDefault("GAME_TIMEZONE", "UTC")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	_ = v.BindEnv("CONFIG_FILE")
	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.FirebaseWebAPIKey == "" {
		return nil, errors.New("FIREBASE_WEB_API_KEY is required")
	}
	switch cfg.StoreDriver {
	case StoreDriverFirestore, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverFirestore, StoreDriverMemory, cfg.StoreDriver)
	}

	loc, err := time.LoadLocation(cfg.GameTimezone)
	if err != nil {
		return nil, fmt.Errorf("GAME_TIMEZONE %q is invalid: %w", cfg.GameTimezone, err)
	}
	cfg.GameLocation = loc

	return &cfg, nil
}
