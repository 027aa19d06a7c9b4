// Package config loads the CLI configuration from config files, .env files
// and the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	// EngineURL is the Helio coordinator the CLI talks to.
	EngineURL string
	// DatabaseURL backs the db resource group manager and the migrate command.
	DatabaseURL string
	// ResourceGroupsFile is the file manager config path, when the file
	// manager is used instead of the database one.
	ResourceGroupsFile string
	// EventListenerURI is the HTTP event listener ingest endpoint.
	EventListenerURI string
	// User is the default query user.
	User string
}

// LoadConfig loads configuration from config files, .env files and the
// environment, in increasing priority.
func LoadConfig() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".helio")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "helio"))

	viper.SetEnvPrefix("HELIO")
	viper.AutomaticEnv()

	viper.SetDefault("engine_url", "http://localhost:8080")
	viper.SetDefault("user", os.Getenv("USER"))

	// Missing config file is fine, everything has a default or env source.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	// .env.local wins over .env
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		EngineURL:          viper.GetString("engine_url"),
		DatabaseURL:        viper.GetString("database_url"),
		ResourceGroupsFile: viper.GetString("resource_groups_file"),
		EventListenerURI:   viper.GetString("event_listener_uri"),
		User:               viper.GetString("user"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// SaveConfig writes the configuration to the user config directory.
func SaveConfig(cfg *Config) (string, error) {
	viper.Set("engine_url", cfg.EngineURL)
	viper.Set("database_url", cfg.DatabaseURL)
	viper.Set("resource_groups_file", cfg.ResourceGroupsFile)
	viper.Set("event_listener_uri", cfg.EventListenerURI)
	viper.Set("user", cfg.User)

	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(home, ".config", "helio")
	if err := AppFs.MkdirAll(configPath, 0755); err != nil {
		return "", err
	}
	configFile := filepath.Join(configPath, ".helio.yaml")
	return configFile, viper.WriteConfigAs(configFile)
}
