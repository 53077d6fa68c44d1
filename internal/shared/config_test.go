package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotsync.db" {
			t.Errorf("expected database path ./spotsync.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Sync.PageLimit != 50 {
			t.Errorf("expected sync page limit 50, got %d", config.Sync.PageLimit)
		}

		if config.Sync.TimeRange != "long_term" {
			t.Errorf("expected sync time range long_term, got %s", config.Sync.TimeRange)
		}

		if config.Sync.MaxConcurrency != 20 {
			t.Errorf("expected sync max concurrency 20, got %d", config.Sync.MaxConcurrency)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[credentials.spotify]
client_id = "test_client"
client_secret = "test_secret"

[database]
path = "/tmp/test.db"

[sync]
page_limit = 25
time_range = "short_term"
batch_size = 100
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client" {
			t.Errorf("expected client_id test_client, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Database.Path != "/tmp/test.db" {
			t.Errorf("expected database path /tmp/test.db, got %s", config.Database.Path)
		}
		if config.Sync.PageLimit != 25 || config.Sync.TimeRange != "short_term" || config.Sync.BatchSize != 100 {
			t.Errorf("unexpected sync config: %+v", config.Sync)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error loading missing config")
		}
	})

	t.Run("SaveConfig Round Trip", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_client"
		config.Sync.BatchSize = 42

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "saved_client" {
			t.Errorf("expected saved client_id, got %s", loaded.Credentials.Spotify.ClientID)
		}
		if loaded.Sync.BatchSize != 42 {
			t.Errorf("expected batch size 42, got %d", loaded.Sync.BatchSize)
		}
	})
}
