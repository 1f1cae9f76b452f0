package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	homeDir, _ := os.UserHomeDir()
	configFile := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}

	if cfg.File != "" {
		t.Errorf("Expected no config file to be recorded, got %s", cfg.File)
	}
	if cfg.Storage.Directory != filepath.Join(homeDir, "Audio", "QuickRec") {
		t.Errorf("Unexpected default directory: %s", cfg.Storage.Directory)
	}
	if cfg.Storage.StateFile != filepath.Join(homeDir, ".config", "quickrec", "state.yaml") {
		t.Errorf("Unexpected default state file: %s", cfg.Storage.StateFile)
	}
	if cfg.Input.Backend != "pulse" || cfg.Input.Source != "default" {
		t.Errorf("Unexpected default input: %+v", cfg.Input)
	}
	if cfg.Player.Command != "auto" {
		t.Errorf("Expected player 'auto', got %s", cfg.Player.Command)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	configFile := createTempConfig(t, `
storage:
  directory: /tmp/quickrec-recordings
input:
  backend: jack
  source: alsa_input.usb-Blue_Yeti:capture_MONO
player:
  command: mpv
`)

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}

	if cfg.File != configFile {
		t.Errorf("Expected File %s, got %s", configFile, cfg.File)
	}
	if cfg.Storage.Directory != "/tmp/quickrec-recordings" {
		t.Errorf("Unexpected directory: %s", cfg.Storage.Directory)
	}
	if cfg.Input.Backend != "jack" || cfg.Input.Source != "alsa_input.usb-Blue_Yeti:capture_MONO" {
		t.Errorf("Unexpected input: %+v", cfg.Input)
	}
	if cfg.Player.Command != "mpv" {
		t.Errorf("Expected player 'mpv', got %s", cfg.Player.Command)
	}
	// unset keys keep their defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port, got %s", cfg.Server.Port)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("QUICKREC_SERVER_PORT", "9090")
	t.Setenv("QUICKREC_PLAYER_COMMAND", "ffplay")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port from environment, got %s", cfg.Server.Port)
	}
	if cfg.Player.Command != "ffplay" {
		t.Errorf("Expected player from environment, got %s", cfg.Player.Command)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	configFile := createTempConfig(t, "storage: [unterminated")
	if _, err := Load(configFile); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestSet_CreatesFileAndKeepsOtherKeys(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "quickrec.yaml")

	if err := Set(configFile, "player.command", "vlc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set(configFile, "server.port", "9000"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Player.Command != "vlc" || cfg.Server.Port != "9000" {
		t.Errorf("Expected both keys to persist, got player=%s port=%s", cfg.Player.Command, cfg.Server.Port)
	}

	data, _ := os.ReadFile(configFile)
	if strings.Contains(string(data), "state_file") {
		t.Errorf("Defaults should not be written to the file:\n%s", data)
	}
}

func TestSet_RejectsInvalid(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "quickrec.yaml")

	if err := Set(configFile, "input.volume", "3"); err == nil {
		t.Error("Expected error for unknown key")
	}
	if err := Set(configFile, "player.command", "winamp"); err == nil {
		t.Error("Expected error for unsupported player")
	}
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		t.Error("A rejected value must not create the config file")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/Audio/QuickRec", filepath.Join(homeDir, "Audio", "QuickRec")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~", "~"}, // Should not expand bare tilde
	}

	for _, test := range tests {
		result := expandPath(test.input)
		if result != test.expected {
			t.Errorf("expandPath(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

// Helper function to create temporary config file for testing
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickrec.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
