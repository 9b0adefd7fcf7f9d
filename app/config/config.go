package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"MinimartApp/app/security"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	Database DatabaseConfig `json:"database"`
	Local    LocalConfig    `json:"local"`
	Feed     FeedConfig     `json:"feed"`
	Sync     SyncConfig     `json:"sync"`
}

// DatabaseConfig holds remote ledger connection settings.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}

// LocalConfig holds local store settings.
type LocalConfig struct {
	Path string `json:"path"`
}

// FeedConfig holds the change feed subscription settings.
type FeedConfig struct {
	URL string `json:"url"`
}

// SyncConfig holds sync worker settings.
type SyncConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// DefaultConfig returns the configuration used when no config file
// exists yet.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "minimart",
			Username: "postgres",
			SSLMode:  "disable",
		},
		Local: LocalConfig{Path: "minimart.db"},
		Feed:  FeedConfig{URL: ""},
		Sync:  SyncConfig{IntervalSeconds: 30},
	}
}

// GetConfigPath returns the config file location. MINIMART_CONFIG
// overrides the default under the user config directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv("MINIMART_CONFIG"); p != "" {
		return p, nil
	}

	baseDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config")
	}

	configDir := filepath.Join(baseDir, "minimart")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig reads config.json, decrypts the stored database password and
// applies environment overrides. A missing file yields the defaults.
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
		if cfg.Database.Password != "" {
			password, derr := security.Decrypt(cfg.Database.Password)
			if derr == nil {
				cfg.Database.Password = password
			} else if serr := SaveConfig(cfg); serr != nil {
				// the stored password was plaintext; re-save encrypted
				return nil, fmt.Errorf("could not encrypt stored database password: %w", serr)
			}
		}
	case os.IsNotExist(err):
		// first run, write the defaults so there is a file to edit
		if serr := SaveConfig(cfg); serr != nil {
			return nil, fmt.Errorf("could not write default config: %w", serr)
		}
	default:
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// SaveConfig writes config.json with the database password encrypted.
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	saved := *cfg
	if saved.Database.Password != "" {
		encrypted, err := security.EncryptIfNeeded(saved.Database.Password)
		if err != nil {
			return fmt.Errorf("could not encrypt database password: %w", err)
		}
		saved.Database.Password = encrypted
	}

	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

func (c *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("LOCAL_DB_PATH"); v != "" {
		c.Local.Path = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("SYNC_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sync.IntervalSeconds = n
		}
	}
}
