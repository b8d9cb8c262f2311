package config

const (
	defaultOutputDir          = "."
	defaultStagingDir         = "~/.cache/bayloe/staging"
	defaultLogDir             = ""
	defaultQuality            = 0.9
	defaultFormat             = "png"
	defaultRetryAttempts      = 3
	defaultRetryIntervalMS    = 1000
	defaultPaceDelayMS        = 100
	defaultSandboxMaxUses     = 5
	defaultSandboxSettleMS    = 100
	defaultSandboxCallTimeout = 120
	defaultSandboxMemoryMiB   = 2048
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Convert: Convert{
			Quality:       defaultQuality,
			DefaultFormat: defaultFormat,
		},
		Retry: Retry{
			Attempts:   defaultRetryAttempts,
			IntervalMS: defaultRetryIntervalMS,
		},
		Queue: Queue{
			PaceDelayMS: defaultPaceDelayMS,
		},
		Sandbox: Sandbox{
			MaxUses:            defaultSandboxMaxUses,
			SettleDelayMS:      defaultSandboxSettleMS,
			CallTimeoutSeconds: defaultSandboxCallTimeout,
			MemoryLimitMiB:     defaultSandboxMemoryMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
