package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Storage: StorageConfig{Directory: "/tmp/rec", StateFile: "/tmp/state.yaml"},
		Input:   InputConfig{Backend: "pulse", Source: "default"},
		Player:  PlayerConfig{Command: "auto"},
		Server:  ServerConfig{Port: "8080"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"jack port", func(c *Config) { c.Input = InputConfig{Backend: "jack", Source: "system:capture_1"} }, ""},
		{"jack port with colons in device", func(c *Config) {
			c.Input = InputConfig{Backend: "jack", Source: "alsa:pcm:1:capture_1"}
		}, ""},
		{"jack without port", func(c *Config) { c.Input = InputConfig{Backend: "jack", Source: "system"} }, "not a valid port"},
		{"jack empty port", func(c *Config) { c.Input = InputConfig{Backend: "jack", Source: "system:"} }, "not a valid port"},
		{"jack empty device", func(c *Config) { c.Input = InputConfig{Backend: "jack", Source: ":capture_1"} }, "not a valid port"},
		{"unknown backend", func(c *Config) { c.Input.Backend = "alsa" }, "input.backend"},
		{"empty pulse source", func(c *Config) { c.Input.Source = "  " }, "input.source"},
		{"unknown player", func(c *Config) { c.Player.Command = "aplay" }, "player.command"},
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }, "server.port"},
		{"empty directory", func(c *Config) { c.Storage.Directory = "" }, "storage.directory"},
		{"empty state file", func(c *Config) { c.Storage.StateFile = "" }, "storage.state_file"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig()
			test.modify(&cfg)
			err := cfg.Validate()

			if test.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", test.wantErr)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", test.wantErr, err)
			}
		})
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	configFile := createTempConfig(t, `
input:
  backend: oss
`)
	_, err := Load(configFile)
	if err == nil {
		t.Fatal("Expected error for invalid backend")
	}
	if !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestIsValidAudioSource(t *testing.T) {
	tests := []struct {
		source string
		valid  bool
	}{
		{"system:capture_1", true},
		{"system:1", true},
		{"Chrome-2:output_FL", true},
		{"alsa_input.pci-0000_00_1f.3.analog-stereo", true},
		{"", false},
		{"   ", false},
		{"system:", false},
		{":capture_1", false},
	}

	for _, test := range tests {
		if got := isValidAudioSource(test.source); got != test.valid {
			t.Errorf("isValidAudioSource(%q) = %v, expected %v", test.source, got, test.valid)
		}
	}
}
