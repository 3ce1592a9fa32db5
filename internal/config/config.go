// Package config handles daemon configuration loading using viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalConfig represents the top-level static configuration. Maps to
// the `mrcpd:` root key in YAML.
type GlobalConfig struct {
	Node      NodeConfig      `mapstructure:"node"`
	Control   ControlConfig   `mapstructure:"control"`
	Listen    ListenConfig    `mapstructure:"listen"`
	Media     MediaConfig     `mapstructure:"media"`
	Profiles  []ProfileConfig `mapstructure:"profiles"`
	Session   SessionConfig   `mapstructure:"session"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Events    EventsConfig    `mapstructure:"events"`
	Log       LogConfig       `mapstructure:"log"`
}

// ─── Node Identity ───

// NodeConfig identifies this daemon instance in logs, metrics and
// trace segments.
type NodeConfig struct {
	Hostname string `mapstructure:"hostname"` // empty = os.Hostname()
	Instance string `mapstructure:"instance"` // service instance tag; empty = hostname
}

// ─── Control Plane ───

// ControlConfig configures the UDS control-plane listener the CLI's
// status/reload/stop subcommands dial into.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// ─── Signaling Listeners ───

// ListenConfig configures the signaling front-end listen addresses
// per MRCP protocol version (spec.md §6 "MRCPv1/v2 branching").
type ListenConfig struct {
	V1 string `mapstructure:"v1"` // MRCPv1: carried over SIP, address of the co-located SIP stack
	V2 string `mapstructure:"v2"` // MRCPv2: native MRCP-over-TCP/TLS listener
}

// ─── Media Engine ───

// MediaConfig configures the media engine's termination port
// allocation and tick scheduling.
type MediaConfig struct {
	RTPPortMin   int    `mapstructure:"rtp_port_min"`
	RTPPortMax   int    `mapstructure:"rtp_port_max"`
	TickInterval string `mapstructure:"tick_interval"` // e.g. "20ms"
}

// TickIntervalDuration parses TickInterval, defaulting to 20ms if unset
// or unparseable.
func (m MediaConfig) TickIntervalDuration() time.Duration {
	d, err := time.ParseDuration(m.TickInterval)
	if err != nil || d <= 0 {
		return 20 * time.Millisecond
	}
	return d
}

// ─── Profiles ───

// ProfileConfig configures one named profile.Profile (SPEC_FULL.md §3):
// the resource names it serves and the media-context capacity sessions
// created against it are allocated with. The factories backing
// Resources are wired in code at startup; this only says which names
// this profile expects to resolve.
type ProfileConfig struct {
	Name            string   `mapstructure:"name"`
	ContextCapacity int      `mapstructure:"context_capacity"`
	Resources       []string `mapstructure:"resources"`
}

// ─── Session Table ───

// SessionConfig configures internal/sessiontable's bounded, TTL-backed
// session lookup.
type SessionConfig struct {
	TTL             string `mapstructure:"ttl"`              // e.g. "30m"; "" or "0" disables eviction
	CleanupInterval string `mapstructure:"cleanup_interval"`  // e.g. "1m"
}

// TTLDuration parses TTL, returning 0 (no expiration) if unset.
func (s SessionConfig) TTLDuration() time.Duration {
	if s.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0
	}
	return d
}

// CleanupIntervalDuration parses CleanupInterval, defaulting to 1m.
func (s SessionConfig) CleanupIntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.CleanupInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics server settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Tracing (SkyWalking) ───

// TracingConfig configures the SkyWalking trace segment exporter.
type TracingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CollectorAddr   string `mapstructure:"collector_addr"`
	ServiceName     string `mapstructure:"service_name"`
	ServiceInstance string `mapstructure:"service_instance"` // "" = node.instance
}

// ─── Event Export (Kafka) ───

// EventsConfig configures the optional Kafka session-lifecycle event
// publisher.
type EventsConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	BatchSize    int      `mapstructure:"batch_size"`
	BatchTimeout string   `mapstructure:"batch_timeout"`
	Compression  string   `mapstructure:"compression"`
	MaxAttempts  int      `mapstructure:"max_attempts"`
}

// BatchTimeoutDuration parses BatchTimeout, defaulting to 100ms.
func (e EventsConfig) BatchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.BatchTimeout)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"` // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures the lumberjack rotating file sink.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure
// `mrcpd: ...`.
type configRoot struct {
	Mrcpd GlobalConfig `mapstructure:"mrcpd"`
}

// Load loads configuration from path. The YAML file uses `mrcpd:` as
// root key; env vars use the MRCPD_ prefix (e.g. MRCPD_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Mrcpd

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration. All keys use the
// "mrcpd." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mrcpd.control.socket", "/var/run/mrcpd.sock")
	v.SetDefault("mrcpd.control.pid_file", "/var/run/mrcpd.pid")

	v.SetDefault("mrcpd.listen.v2", ":1544")

	v.SetDefault("mrcpd.media.rtp_port_min", 10000)
	v.SetDefault("mrcpd.media.rtp_port_max", 20000)
	v.SetDefault("mrcpd.media.tick_interval", "20ms")

	v.SetDefault("mrcpd.session.ttl", "30m")
	v.SetDefault("mrcpd.session.cleanup_interval", "1m")

	v.SetDefault("mrcpd.metrics.enabled", true)
	v.SetDefault("mrcpd.metrics.listen", ":9091")
	v.SetDefault("mrcpd.metrics.path", "/metrics")

	v.SetDefault("mrcpd.tracing.enabled", false)
	v.SetDefault("mrcpd.tracing.service_name", "mrcpd")

	v.SetDefault("mrcpd.events.enabled", false)
	v.SetDefault("mrcpd.events.batch_size", 100)
	v.SetDefault("mrcpd.events.batch_timeout", "100ms")
	v.SetDefault("mrcpd.events.compression", "snappy")
	v.SetDefault("mrcpd.events.max_attempts", 3)

	v.SetDefault("mrcpd.log.level", "info")
	v.SetDefault("mrcpd.log.format", "json")
	v.SetDefault("mrcpd.log.outputs.file.enabled", false)
	v.SetDefault("mrcpd.log.outputs.file.path", "/var/log/mrcpd/mrcpd.log")
	v.SetDefault("mrcpd.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("mrcpd.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("mrcpd.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("mrcpd.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime
// defaults (hostname auto-detect, per-profile defaults, tracing
// instance inheritance).
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	if cfg.Node.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.Node.Hostname = hostname
	}
	if cfg.Node.Instance == "" {
		cfg.Node.Instance = cfg.Node.Hostname
	}

	if cfg.Listen.V1 == "" && cfg.Listen.V2 == "" {
		return fmt.Errorf("at least one of listen.v1/listen.v2 must be set")
	}

	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	seen := make(map[string]bool, len(cfg.Profiles))
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profiles[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("profiles[%d]: duplicate profile name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.ContextCapacity <= 0 {
			p.ContextCapacity = 5
		}
	}

	if cfg.Events.Enabled && len(cfg.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events.enabled=true")
	}
	if cfg.Events.Enabled && cfg.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when events.enabled=true")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.CollectorAddr == "" {
		return fmt.Errorf("tracing.collector_addr is required when tracing.enabled=true")
	}
	if cfg.Tracing.Enabled && cfg.Tracing.ServiceInstance == "" {
		cfg.Tracing.ServiceInstance = cfg.Node.Instance
	}

	return nil
}
