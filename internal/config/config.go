package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Convert contains encoder settings.
type Convert struct {
	// Quality is the lossy encoder quality in the 0..1 range.
	Quality       float64 `toml:"quality"`
	DefaultFormat string  `toml:"default_format"`
}

// Retry contains the per-item automatic retry policy.
type Retry struct {
	// Attempts counts the initial try, so 3 means two retries.
	Attempts   int `toml:"attempts"`
	IntervalMS int `toml:"interval_ms"`
}

// Queue contains batch pacing settings.
type Queue struct {
	PaceDelayMS int `toml:"pace_delay_ms"`
}

// Sandbox contains HEIC decoder worker settings.
type Sandbox struct {
	MaxUses            int    `toml:"max_uses"`
	SettleDelayMS      int    `toml:"settle_delay_ms"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	MemoryLimitMiB     int    `toml:"memory_limit_mib"`
	WorkerBinary       string `toml:"worker_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bayloe.
//
// Configuration sections by subsystem:
//   - Paths: output, staging (live output handles) and log directories
//   - Convert: encoder quality and the default target format
//   - Retry: automatic retry count and fixed backoff
//   - Queue: pacing delay around each item of a batch
//   - Sandbox: HEIC worker recycle policy, timeouts and memory cap
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Convert Convert `toml:"convert"`
	Retry   Retry   `toml:"retry"`
	Queue   Queue   `toml:"queue"`
	Sandbox Sandbox `toml:"sandbox"`
	Logging Logging `toml:"logging"`
}

// EnvConfigPath names the environment variable consulted when no explicit
// path is given.
const EnvConfigPath = "BAYLOE_CONFIG"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bayloe/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// yields defaults. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the staging and log directories. The output
// directory is created lazily by commands that write to it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryInterval is the fixed wait between conversion attempts.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Retry.IntervalMS) * time.Millisecond
}

// PaceDelay is the pause before and after each item of a batch.
func (c *Config) PaceDelay() time.Duration {
	return time.Duration(c.Queue.PaceDelayMS) * time.Millisecond
}

// SettleDelay is the wait after a fresh sandbox worker reports ready.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Sandbox.SettleDelayMS) * time.Millisecond
}

// CallTimeout bounds a single sandbox round-trip; zero disables the bound.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Sandbox.CallTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
