package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bayloe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and zero delays, then applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Retry.IntervalMS = 0
	cfgVal.Queue.PaceDelayMS = 0
	cfgVal.Sandbox.SettleDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRetry overrides the retry policy.
func WithRetry(attempts, intervalMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.Attempts = attempts
		b.cfg.Retry.IntervalMS = intervalMS
	}
}

// WithStubbedWorker writes an executable stub and points the sandbox worker
// binary at it. The stub exits immediately, which is enough for preflight
// launch checks.
func WithStubbedWorker() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "bayloe-worker")
		if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			b.t.Fatalf("write worker stub: %v", err)
		}
		b.cfg.Sandbox.WorkerBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
