package model

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ActorConfig identifies the current user.
type ActorConfig struct {
	Email string `mapstructure:"email" yaml:"email"`
	Name  string `mapstructure:"name" yaml:"name"`

	// AllMailboxes lets the actor see every thread, not only those
	// addressed to or assigned to them.
	AllMailboxes bool `mapstructure:"all_mailboxes" yaml:"all_mailboxes"`
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SyncConfig holds settings for the remote mail sync function.
type SyncConfig struct {
	// FunctionURL is the endpoint of the remote sync function.
	FunctionURL string `mapstructure:"function_url" yaml:"function_url"`

	// TokenKey is the keyring key holding the bearer token.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`

	// MinIntervalSec is the throttle floor between successful syncs.
	MinIntervalSec int `mapstructure:"min_interval_sec" yaml:"min_interval_sec"`

	// StaleAfterSec is how old the cache must be before regaining
	// visibility triggers a sync.
	StaleAfterSec int `mapstructure:"stale_after_sec" yaml:"stale_after_sec"`
}

// BulkConfig holds bulk operation pacing.
type BulkConfig struct {
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`
	PauseMS   int `mapstructure:"pause_ms" yaml:"pause_ms"`
}

// TriageConfig holds classifier tuning.
type TriageConfig struct {
	CategoryThreshold int `mapstructure:"category_threshold" yaml:"category_threshold"`
}

// LiveConfig holds live-update settings.
type LiveConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Actor  ActorConfig  `mapstructure:"actor" yaml:"actor"`
	Team   []Member     `mapstructure:"team" yaml:"team"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Sync   SyncConfig   `mapstructure:"sync" yaml:"sync"`
	Bulk   BulkConfig   `mapstructure:"bulk" yaml:"bulk"`
	Triage TriageConfig `mapstructure:"triage" yaml:"triage"`
	Live   LiveConfig   `mapstructure:"live" yaml:"live"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// MinSyncInterval returns the sync throttle floor.
func (c *AppConfig) MinSyncInterval() time.Duration {
	return time.Duration(c.Sync.MinIntervalSec) * time.Second
}

// StaleAfter returns the cache age that makes a visibility trigger sync.
func (c *AppConfig) StaleAfter() time.Duration {
	return time.Duration(c.Sync.StaleAfterSec) * time.Second
}

// BulkPause returns the pause between bulk chunks.
func (c *AppConfig) BulkPause() time.Duration {
	return time.Duration(c.Bulk.PauseMS) * time.Millisecond
}

// DebounceWait returns the live-update quiet period.
func (c *AppConfig) DebounceWait() time.Duration {
	return time.Duration(c.Live.DebounceMS) * time.Millisecond
}

// ConfigDir returns ~/.config/inbox-triage, or the working directory
// when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "inbox-triage")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Team:  []Member{},
		Store: StoreConfig{Path: filepath.Join(ConfigDir(), "inbox.db")},
		Sync: SyncConfig{
			TokenKey:       "sync-function-token",
			MinIntervalSec: 60,
			StaleAfterSec:  600,
		},
		Bulk:   BulkConfig{ChunkSize: 10, PauseMS: 250},
		Triage: TriageConfig{CategoryThreshold: 45},
		Live:   LiveConfig{DebounceMS: 500},
		Log:    LogConfig{Level: "info"},
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("sync.token_key", "sync-function-token")
	v.SetDefault("sync.min_interval_sec", 60)
	v.SetDefault("sync.stale_after_sec", 600)
	v.SetDefault("bulk.chunk_size", 10)
	v.SetDefault("bulk.pause_ms", 250)
	v.SetDefault("triage.category_threshold", 45)
	v.SetDefault("live.debounce_ms", 500)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("INBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return DefaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults repairs zero or negative values that Unmarshal let through.
func (c *AppConfig) applyDefaults() {
	def := DefaultConfig()
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Sync.MinIntervalSec <= 0 {
		c.Sync.MinIntervalSec = def.Sync.MinIntervalSec
	}
	if c.Sync.StaleAfterSec <= 0 {
		c.Sync.StaleAfterSec = def.Sync.StaleAfterSec
	}
	if c.Bulk.ChunkSize <= 0 {
		c.Bulk.ChunkSize = def.Bulk.ChunkSize
	}
	if c.Bulk.PauseMS < 0 {
		c.Bulk.PauseMS = def.Bulk.PauseMS
	}
	if c.Live.DebounceMS <= 0 {
		c.Live.DebounceMS = def.Live.DebounceMS
	}
	c.Actor.Email = NormalizeAddress(c.Actor.Email)
}

// WatchConfig re-reads the file at path whenever it changes and hands the
// new configuration to onChange. Parse failures are passed as errors and
// the previous configuration stays in effect.
func WatchConfig(path string, onChange func(*AppConfig, error)) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		onChange(nil, fmt.Errorf("reading config %s: %w", path, err))
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		onChange(decode(v, path))
	})
	v.WatchConfig()
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("actor", cfg.Actor)
	v.Set("team", cfg.Team)
	v.Set("store", cfg.Store)
	v.Set("sync", cfg.Sync)
	v.Set("bulk", cfg.Bulk)
	v.Set("triage", cfg.Triage)
	v.Set("live", cfg.Live)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// SetupLogger configures zerolog with JSON output to w.
func (c *AppConfig) SetupLogger(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(w).With().
		Timestamp().
		Str("service", "inbox-triage").
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || c.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}
