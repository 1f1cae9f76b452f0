package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "QUICKREC"

type StorageConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
}

type InputConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Source  string `mapstructure:"source" yaml:"source"`
}

type PlayerConfig struct {
	Command string `mapstructure:"command" yaml:"command"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Player  PlayerConfig  `mapstructure:"player" yaml:"player"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`

	// File is the config file that was read, empty when only defaults apply.
	File string `mapstructure:"-" yaml:"-"`
}

var (
	validBackends = []string{"pulse", "jack"}
	validPlayers  = []string{"auto", "ffplay", "mpv", "vlc"}
)

// Keys lists every setting that may be written with Set.
var Keys = []string{
	"storage.directory",
	"storage.state_file",
	"input.backend",
	"input.source",
	"player.command",
	"server.port",
}

func DefaultConfigFile() string {
	return expandPath("~/.config/quickrec.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.directory", "~/Audio/QuickRec")
	v.SetDefault("storage.state_file", "~/.config/quickrec/state.yaml")
	v.SetDefault("input.backend", "pulse")
	v.SetDefault("input.source", "default")
	v.SetDefault("player.command", "auto")
	v.SetDefault("server.port", "8080")
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (the default location when empty). A missing file
// means defaults, still subject to QUICKREC_* environment overrides.
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = DefaultConfigFile()
	}
	configFile = expandPath(configFile)

	v := newViper(configFile)
	found := true
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		found = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if found {
		cfg.File = configFile
	}

	cfg.Storage.Directory = expandPath(cfg.Storage.Directory)
	cfg.Storage.StateFile = expandPath(cfg.Storage.StateFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Directory) == "" {
		return fmt.Errorf("storage.directory must not be empty")
	}
	if strings.TrimSpace(c.Storage.StateFile) == "" {
		return fmt.Errorf("storage.state_file must not be empty")
	}
	if !contains(validBackends, c.Input.Backend) {
		return fmt.Errorf("input.backend must be one of %s, got: %q", strings.Join(validBackends, ", "), c.Input.Backend)
	}
	if c.Input.Backend == "jack" {
		if !strings.Contains(c.Input.Source, ":") || !isValidAudioSource(c.Input.Source) {
			return fmt.Errorf("input.source %q is not a valid port (expected device:port)", c.Input.Source)
		}
	} else if strings.TrimSpace(c.Input.Source) == "" {
		return fmt.Errorf("input.source must not be empty")
	}
	if !contains(validPlayers, c.Player.Command) {
		return fmt.Errorf("player.command must be one of %s, got: %q", strings.Join(validPlayers, ", "), c.Player.Command)
	}
	if c.Server.Port == "" || !isNumeric(c.Server.Port) {
		return fmt.Errorf("server.port must be numeric, got: %q", c.Server.Port)
	}
	return nil
}

// Set writes a single key to configFile, creating the file when needed. The
// result must still load.
func Set(configFile, key, value string) error {
	if configFile == "" {
		configFile = DefaultConfigFile()
	}
	configFile = expandPath(configFile)

	if !contains(Keys, key) {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys, ", "))
	}

	// a separate instance so defaults are not written out as explicit values
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set(key, value)

	check := newViper(configFile)
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return fmt.Errorf("error merging config: %w", err)
	}
	var cfg Config
	if err := check.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Storage.Directory = expandPath(cfg.Storage.Directory)
	cfg.Storage.StateFile = expandPath(cfg.Storage.StateFile)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// isValidAudioSource checks if a source name is valid for JACK/PipeWire
func isValidAudioSource(source string) bool {
	source = strings.TrimSpace(source)

	if source == "" {
		return false
	}

	if strings.Contains(source, ":") {
		// device names may themselves contain colons, the port is after the last one
		lastColonIndex := strings.LastIndex(source, ":")
		deviceName := strings.TrimSpace(source[:lastColonIndex])
		port := strings.TrimSpace(source[lastColonIndex+1:])

		return len(deviceName) > 0 && len(port) > 0
	}

	return true
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
