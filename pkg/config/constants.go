package config

import "time"

const (
	// Server ports.
	DefaultHTTPPort = 8080
	DefaultGRPCPort = 9090

	// Database defaults.
	DefaultPostgresPort = 5432

	// Connection pool defaults.
	DefaultMaxConnections = 25
	DefaultMinConnections = 5

	DefaultMaxConnIdleTime = 30 * time.Minute

	// Telemetry defaults.
	DefaultTelemetryPort = 2112

	// Sync defaults.
	DefaultCheckpointInterval  = 50
	DefaultPageSize            = 200
	DefaultAudioCapRatio       = 0.30
	DefaultAudioOverheadRatio  = 0.05
	DefaultFullScanCron        = "0 3 * * *"
	DefaultIncrementalInterval = 15 * time.Minute
	DefaultRequestsPerSecond   = 10.0
	DefaultRequestTimeout      = 30 * time.Second
	DefaultParentCacheTTL      = 10 * time.Minute
	DefaultWatchDebounce       = 5 * time.Second
)
