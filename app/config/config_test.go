package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"MinimartApp/app/security"
)

func setupConfigEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	configPath := filepath.Join(dir, "config.json")
	t.Setenv("MINIMART_CONFIG", configPath)
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE", "LOCAL_DB_PATH", "FEED_URL", "SYNC_INTERVAL_SECONDS"} {
		t.Setenv(key, "")
	}
	return configPath
}

func TestLoadConfigWritesDefaultsOnFirstRun(t *testing.T) {
	configPath := setupConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Port != 5432 || cfg.Sync.IntervalSeconds != 30 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("first run must create the config file: %v", err)
	}
	var onDisk AppConfig
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("written config unparseable: %v", err)
	}
	if onDisk.Database.Host != "localhost" {
		t.Fatalf("defaults not written: %+v", onDisk)
	}
}

func TestLoadConfigReEncryptsPlaintextPassword(t *testing.T) {
	configPath := setupConfigEnv(t)

	cfg := DefaultConfig()
	cfg.Database.Password = "plain-password"
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// hand-edited config with a plaintext password
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Database.Password != "plain-password" {
		t.Fatalf("in-memory password must stay usable, got %q", loaded.Database.Password)
	}

	var onDisk AppConfig
	data, err = os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if onDisk.Database.Password == "plain-password" || onDisk.Database.Password == "" {
		t.Fatal("stored password must be re-saved encrypted")
	}
	decrypted, err := security.Decrypt(onDisk.Database.Password)
	if err != nil || decrypted != "plain-password" {
		t.Fatalf("stored password must decrypt back: %q err=%v", decrypted, err)
	}
}

func TestLoadConfigKeepsEncryptedPasswordOnDisk(t *testing.T) {
	configPath := setupConfigEnv(t)

	cfg := DefaultConfig()
	cfg.Database.Password = "s3cret"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var onDisk AppConfig
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if onDisk.Database.Password == "s3cret" {
		t.Fatal("SaveConfig must not store the plaintext password")
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Database.Password != "s3cret" {
		t.Fatalf("expected decrypted password, got %q", loaded.Database.Password)
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	setupConfigEnv(t)
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("SYNC_INTERVAL_SECONDS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Fatalf("DB_HOST override not applied: %+v", cfg.Database)
	}
	if cfg.Sync.IntervalSeconds != 5 {
		t.Fatalf("SYNC_INTERVAL_SECONDS override not applied: %+v", cfg.Sync)
	}
}
