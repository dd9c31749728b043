package config

const (
	defaultConfigPath          = "~/.config/dbqueue/config.toml"
	defaultDataDir             = "~/.local/share/dbqueue"
	defaultLogDir              = "~/.local/share/dbqueue/logs"
	defaultStoreFile           = "queue.db"
	defaultTable               = "queue"
	defaultBusyTimeoutMS       = 5000
	defaultQueueName           = "default"
	defaultMaxSingleWaitMS     = 1000
	defaultTakeBlockingSeconds = 60
	defaultMaxConflictRetries  = 16
	defaultDelayFloorMS        = 1
	defaultWakeKind            = WakeStore
	defaultWakePollIntervalMS  = 50
	defaultRetentionDays       = 10
	defaultSchedule            = "@every 1h"
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Wake channel backends.
const (
	WakeStore = "store"
	WakeRedis = "redis"
	WakeLocal = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Table:         defaultTable,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Queue: Queue{
			Name:                defaultQueueName,
			Priority:            true,
			MaxSingleWaitMS:     defaultMaxSingleWaitMS,
			TakeBlockingSeconds: defaultTakeBlockingSeconds,
			MaxConflictRetries:  defaultMaxConflictRetries,
			DelayFloorMS:        defaultDelayFloorMS,
		},
		Wake: Wake{
			Kind:           defaultWakeKind,
			PollIntervalMS: defaultWakePollIntervalMS,
		},
		Maintenance: Maintenance{
			RetentionDays: defaultRetentionDays,
			Schedule:      defaultSchedule,
			AllQueues:     true,

			NtfyRequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
