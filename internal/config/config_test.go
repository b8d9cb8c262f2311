package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bayloe/internal/config"
	"bayloe/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvConfigPath, "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "bayloe", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".cache", "bayloe", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Convert.DefaultFormat != "png" {
		t.Fatalf("expected png default format, got %q", cfg.Convert.DefaultFormat)
	}
	if cfg.Convert.Quality != 0.9 {
		t.Fatalf("expected quality 0.9, got %v", cfg.Convert.Quality)
	}
	if cfg.Retry.Attempts != 3 || cfg.RetryInterval() != time.Second {
		t.Fatalf("unexpected retry policy: %d attempts every %s", cfg.Retry.Attempts, cfg.RetryInterval())
	}
	if cfg.PaceDelay() != 100*time.Millisecond {
		t.Fatalf("unexpected pace delay %s", cfg.PaceDelay())
	}
	if cfg.Sandbox.MaxUses != 5 {
		t.Fatalf("expected sandbox max uses 5, got %d", cfg.Sandbox.MaxUses)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bayloe.toml")

	type payload struct {
		Convert struct {
			Quality       float64 `toml:"quality"`
			DefaultFormat string  `toml:"default_format"`
		} `toml:"convert"`
		Sandbox struct {
			MaxUses int `toml:"max_uses"`
		} `toml:"sandbox"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Convert.Quality = 0.75
	custom.Convert.DefaultFormat = " JPG "
	custom.Sandbox.MaxUses = 2
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Convert.Quality != 0.75 {
		t.Fatalf("expected quality override, got %v", cfg.Convert.Quality)
	}
	if cfg.Convert.DefaultFormat != "jpeg" {
		t.Fatalf("expected jpg alias to normalize to jpeg, got %q", cfg.Convert.DefaultFormat)
	}
	if cfg.Sandbox.MaxUses != 2 {
		t.Fatalf("expected max uses 2, got %d", cfg.Sandbox.MaxUses)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if cfg.Retry.Attempts != 3 {
		t.Fatalf("expected untouched sections to keep defaults, got %d attempts", cfg.Retry.Attempts)
	}
}

func TestLoadHonoursEnvPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "env.toml")
	if err := os.WriteFile(configPath, []byte("[queue]\npace_delay_ms = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, configPath)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected env config path to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.PaceDelay() != 0 {
		t.Fatalf("expected pace delay 0, got %s", cfg.PaceDelay())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[convert]\nqualty = 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadRejectsDirectory(t *testing.T) {
	if _, _, _, err := config.Load(t.TempDir()); err == nil {
		t.Fatal("expected directory config path to fail")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[sandbox]") {
		t.Fatalf("sample config missing sandbox section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Convert != def.Convert || cfg.Retry != def.Retry || cfg.Sandbox != def.Sandbox {
		t.Fatalf("sample drifted from defaults: %+v", cfg)
	}
	if !strings.Contains(cfg.Paths.StagingDir, "bayloe") {
		t.Fatalf("expected staging dir to contain bayloe, got %q", cfg.Paths.StagingDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero quality", func(c *config.Config) { c.Convert.Quality = 0 }},
		{"quality above one", func(c *config.Config) { c.Convert.Quality = 1.5 }},
		{"unknown format", func(c *config.Config) { c.Convert.DefaultFormat = "gif" }},
		{"no attempts", func(c *config.Config) { c.Retry.Attempts = 0 }},
		{"negative interval", func(c *config.Config) { c.Retry.IntervalMS = -1 }},
		{"negative pace", func(c *config.Config) { c.Queue.PaceDelayMS = -5 }},
		{"zero max uses", func(c *config.Config) { c.Sandbox.MaxUses = 0 }},
		{"tiny memory cap", func(c *config.Config) { c.Sandbox.MemoryLimitMiB = 16 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
