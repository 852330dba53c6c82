package config

import (
	"errors"
	"fmt"
	"time"
)

// CatalogConfig extends BaseConfig with sync engine settings
type CatalogConfig struct {
	BaseConfig `koanf:",squash"`
	Sync       SyncSettings   `koanf:"sync"`
	Events     EventsSettings `koanf:"events"`
	Sources    []SourceConfig `koanf:"sources"`
}

// SyncSettings tunes the scan loop and the quality pipeline.
type SyncSettings struct {
	CheckpointInterval  int           `koanf:"checkpoint_interval"`
	PageSize            int           `koanf:"page_size"`
	AudioCapRatio       float64       `koanf:"audio_cap_ratio"`
	AudioOverheadRatio  float64       `koanf:"audio_overhead_ratio"`
	FullScanCron        string        `koanf:"full_scan_cron"`
	IncrementalInterval time.Duration `koanf:"incremental_interval"`
	Store               string        `koanf:"store"` // gorm, snapshot
	SnapshotPath        string        `koanf:"snapshot_path"`
	RequestsPerSecond   float64       `koanf:"requests_per_second"`
	RequestTimeout      time.Duration `koanf:"request_timeout"`
	ParentCacheTTL      time.Duration `koanf:"parent_cache_ttl"`
	WatchLocal          bool          `koanf:"watch_local"`
	WatchDebounce       time.Duration `koanf:"watch_debounce"`
	FFProbePath         string        `koanf:"ffprobe_path"`
}

// EventsSettings selects where catalog events are forwarded.
type EventsSettings struct {
	Backend string        `koanf:"backend"` // none, nats, kafka
	NATS    NATSSettings  `koanf:"nats"`
	Kafka   KafkaSettings `koanf:"kafka"`
}

// NATSSettings configures the JetStream forwarder.
type NATSSettings struct {
	URL        string `koanf:"url"`
	StreamName string `koanf:"stream_name"`
}

// KafkaSettings configures the Kafka forwarder.
type KafkaSettings struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// SourceConfig describes one catalog source. Which fields apply depends on
// Type: url/api_key for jellyfin and emby, url/token for plex, root for
// local, bucket/prefix/region for s3.
type SourceConfig struct {
	ID         string   `koanf:"id"`
	Type       string   `koanf:"type"`
	Name       string   `koanf:"name"`
	URL        string   `koanf:"url"`
	APIKey     string   `koanf:"api_key"`
	Token      string   `koanf:"token"`
	UserID     string   `koanf:"user_id"`
	ClientName string   `koanf:"client_name"`
	DeviceID   string   `koanf:"device_id"`
	Root       string   `koanf:"root"`
	Bucket     string   `koanf:"bucket"`
	Prefix     string   `koanf:"prefix"`
	Region     string   `koanf:"region"`
	Endpoint   string   `koanf:"endpoint"`
	Libraries  []string `koanf:"libraries"`
}

var validSourceTypes = map[string]bool{
	"jellyfin": true,
	"emby":     true,
	"plex":     true,
	"local":    true,
	"s3":       true,
}

// Validate validates the catalog configuration
func (c *CatalogConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}

	s := c.Sync
	if s.CheckpointInterval < 1 {
		return errors.New("checkpoint interval must be at least 1")
	}
	if s.PageSize < 1 || s.PageSize > 1000 {
		return fmt.Errorf("page size must be between 1 and 1000, got %d", s.PageSize)
	}
	if s.AudioCapRatio <= 0 || s.AudioCapRatio > 1 {
		return fmt.Errorf("audio cap ratio must be in (0, 1], got %v", s.AudioCapRatio)
	}
	if s.AudioOverheadRatio < 0 || s.AudioOverheadRatio >= 1 {
		return fmt.Errorf("audio overhead ratio must be in [0, 1), got %v", s.AudioOverheadRatio)
	}
	if s.IncrementalInterval != 0 && s.IncrementalInterval < time.Minute {
		return errors.New("incremental interval must be at least 1 minute")
	}
	switch s.Store {
	case "gorm":
	case "snapshot":
		if s.SnapshotPath == "" {
			return errors.New("snapshot path is required for the snapshot store")
		}
	default:
		return fmt.Errorf("unsupported store: %q", s.Store)
	}

	switch c.Events.Backend {
	case "", "none":
	case "nats":
		if c.Events.NATS.URL == "" {
			return errors.New("nats url is required")
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return errors.New("at least one kafka broker is required")
		}
	default:
		return fmt.Errorf("unsupported events backend: %q", c.Events.Backend)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if !validSourceTypes[src.Type] {
			return fmt.Errorf("source %s: unsupported type %q", src.ID, src.Type)
		}
		switch src.Type {
		case "jellyfin", "emby", "plex":
			if src.URL == "" {
				return fmt.Errorf("source %s: url is required", src.ID)
			}
		case "local":
			if src.Root == "" {
				return fmt.Errorf("source %s: root is required", src.ID)
			}
		case "s3":
			if src.Bucket == "" {
				return fmt.Errorf("source %s: bucket is required", src.ID)
			}
		}
	}
	return nil
}

// Source returns the configured source with the given id.
func (c *CatalogConfig) Source(id string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return SourceConfig{}, false
}

// DefaultCatalogConfig returns the catalog defaults layered over the base.
func DefaultCatalogConfig() *CatalogConfig {
	base := GetDefaults()
	base.Service.Name = "catalog"

	return &CatalogConfig{
		BaseConfig: *base,
		Sync: SyncSettings{
			CheckpointInterval:  DefaultCheckpointInterval,
			PageSize:            DefaultPageSize,
			AudioCapRatio:       DefaultAudioCapRatio,
			AudioOverheadRatio:  DefaultAudioOverheadRatio,
			FullScanCron:        DefaultFullScanCron,
			IncrementalInterval: DefaultIncrementalInterval,
			Store:               "gorm",
			SnapshotPath:        "data/catalog.json",
			RequestsPerSecond:   DefaultRequestsPerSecond,
			RequestTimeout:      DefaultRequestTimeout,
			ParentCacheTTL:      DefaultParentCacheTTL,
			WatchLocal:          true,
			WatchDebounce:       DefaultWatchDebounce,
			FFProbePath:         "ffprobe",
		},
		Events: EventsSettings{
			Backend: "none",
			NATS: NATSSettings{
				URL:        "nats://localhost:4222",
				StreamName: "CATALOG",
			},
			Kafka: KafkaSettings{
				Topic: "catalog-events",
			},
		},
	}
}
