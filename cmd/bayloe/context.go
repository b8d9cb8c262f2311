package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bayloe/internal/config"
	"bayloe/internal/convert"
	"bayloe/internal/logging"
	"bayloe/internal/output"
	"bayloe/internal/queue"
	"bayloe/internal/retry"
	"bayloe/internal/sandbox"
	"bayloe/internal/staging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// runtime is the conversion stack shared by convert and session.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	host    *sandbox.Host
	outputs *output.Registry
	manager *queue.Manager
}

func (c *commandContext) openRuntime(ctx context.Context, logWriter io.Writer) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, logWriter)
	if err != nil {
		return nil, err
	}
	outputs, err := output.NewRegistry(cfg.Paths.StagingDir)
	if err != nil {
		return nil, err
	}
	staging.CleanStale(ctx, cfg.Paths.StagingDir, staging.DefaultMaxAge, logger, outputs.Dir())

	host := sandbox.NewHost(workerLauncher(cfg, logWriter), sandbox.Options{
		MaxUses:     cfg.Sandbox.MaxUses,
		SettleDelay: cfg.SettleDelay(),
		CallTimeout: cfg.CallTimeout(),
		Logger:      logger,
	})
	converter := convert.New(host, cfg.Convert.Quality, logger)
	manager := queue.NewManager(converter, outputs, queue.Options{
		Policy:    retry.Fixed(cfg.Retry.Attempts, cfg.RetryInterval()),
		PaceDelay: cfg.PaceDelay(),
		Logger:    logger,
	})
	return &runtime{cfg: cfg, logger: logger, host: host, outputs: outputs, manager: manager}, nil
}

func (r *runtime) Close() {
	st := r.host.Stats()
	r.logger.Debug("decoder host shutting down",
		logging.Int("launches", st.Launches),
		logging.Int("generation", int(st.Generation)),
		logging.Int("uses", st.Uses),
		logging.Bool("live", st.Live))
	r.manager.Close()
	if err := r.host.Close(); err != nil {
		r.logger.Warn("decoder host shutdown failed", logging.Error(err))
	}
	if err := r.outputs.Close(); err != nil {
		r.logger.Warn("staging cleanup failed", logging.Error(err))
	}
}

// workerLauncher starts this binary (or the configured worker) in
// decoder-worker mode. Worker stderr is only surfaced at debug level.
func workerLauncher(cfg *config.Config, stderr io.Writer) *sandbox.ProcessLauncher {
	launcher := &sandbox.ProcessLauncher{
		Binary:         cfg.Sandbox.WorkerBinary,
		Args:           []string{"decoder-worker"},
		MemoryLimitMiB: cfg.Sandbox.MemoryLimitMiB,
	}
	if cfg.Logging.Level == "debug" {
		launcher.Stderr = stderr
	}
	return launcher
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
