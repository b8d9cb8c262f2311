package config

import (
	"errors"
	"fmt"

	"bayloe/internal/services"
)

// Validate ensures the configuration is usable. Failures are tagged with
// services.ErrConfiguration.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateConvert,
		c.validateRetry,
		c.validateQueue,
		c.validateSandbox,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateConvert() error {
	if c.Convert.Quality <= 0 || c.Convert.Quality > 1 {
		return errors.New("convert.quality must be in (0, 1]")
	}
	switch c.Convert.DefaultFormat {
	case "png", "jpeg", "webp", "pdf":
	default:
		return fmt.Errorf("convert.default_format: unsupported value %q (png, jpeg, webp, pdf)", c.Convert.DefaultFormat)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be at least 1")
	}
	if c.Retry.IntervalMS < 0 {
		return errors.New("retry.interval_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.PaceDelayMS < 0 {
		return errors.New("queue.pace_delay_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateSandbox() error {
	if c.Sandbox.MaxUses < 1 {
		return errors.New("sandbox.max_uses must be at least 1")
	}
	if c.Sandbox.SettleDelayMS < 0 {
		return errors.New("sandbox.settle_delay_ms must be non-negative")
	}
	if c.Sandbox.CallTimeoutSeconds < 0 {
		return errors.New("sandbox.call_timeout_seconds must be non-negative")
	}
	if c.Sandbox.MemoryLimitMiB < 0 {
		return errors.New("sandbox.memory_limit_mib must be non-negative")
	}
	if c.Sandbox.MemoryLimitMiB > 0 && c.Sandbox.MemoryLimitMiB < 256 {
		return errors.New("sandbox.memory_limit_mib must be 0 (disabled) or at least 256")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
