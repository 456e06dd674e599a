// Package config provides configuration for the ingestion service.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the name of the service config file within the state directory.
const FileName = "config.json"

// Default values for optional configuration fields.
const (
	DefaultArchiveDir      = "~/.sonata/archive"
	DefaultArtifactDir     = "~/.sonata/artifacts"
	DefaultDatabasePath    = "~/.sonata/sonata.db"
	DefaultLedgerPath      = "~/.sonata/sync-ledger.json"
	DefaultListenAddr      = "127.0.0.1:8090"
	DefaultPollIntervalSec = 5
	DefaultStabilityWaitMs = 500
	DefaultSyncIntervalSec = 30
	DefaultMinKeystrokes   = 50
)

// DefaultWatchPatterns are the recording file patterns picked up by the
// pipeline and the volume scanner.
var DefaultWatchPatterns = []string{"*.wav", "*.WAV"}

// Config holds the ingestion service configuration.
type Config struct {
	InboxDir           string   `json:"inbox_dir"`
	TranscriberCommand string   `json:"transcriber_command"`
	ArchiveDir         string   `json:"archive_dir"`
	ArtifactDir        string   `json:"artifact_dir"`
	DatabasePath       string   `json:"database_path"`
	ListenAddr         string   `json:"listen_addr"`
	WatchPatterns      []string `json:"watch_patterns"`
	PollIntervalSec    int      `json:"poll_interval_sec"`
	StabilityWaitMs    int      `json:"stability_wait_ms"`
	MinKeystrokes      int      `json:"min_keystrokes"`

	// External-volume sync. SyncVolumes holds glob patterns of directories
	// to scan for new recordings (e.g. /media/*/PIANO); empty disables the
	// sync loop.
	SyncVolumes     []string `json:"sync_volumes"`
	SyncIntervalSec int      `json:"sync_interval_sec"`
	LedgerPath      string   `json:"ledger_path"`

	Debug bool `json:"debug"`
}

// Validation errors.
var (
	ErrInboxDirRequired    = errors.New("inbox_dir is required")
	ErrTranscriberRequired = errors.New("transcriber_command is required")
)

// DefaultPath returns the default config file path (~/.sonata/config.json).
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sonata", FileName), nil
}

// Load reads the configuration from the given path; an empty path means the
// default location. Paths containing ~ are expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.expandPaths()
	return &cfg, nil
}

// Save writes the configuration to the given path; an empty path means the
// default location. The file is created with 0644 permissions.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks that all required fields are present.
func (c *Config) Validate() error {
	if c.InboxDir == "" {
		return ErrInboxDirRequired
	}
	if c.TranscriberCommand == "" {
		return ErrTranscriberRequired
	}
	return nil
}

// ApplyDefaults sets default values for optional fields that are empty or
// zero. Call this after creating or loading a Config.
func (c *Config) ApplyDefaults() {
	if c.ArchiveDir == "" {
		c.ArchiveDir = DefaultArchiveDir
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = DefaultArtifactDir
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.LedgerPath == "" {
		c.LedgerPath = DefaultLedgerPath
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if len(c.WatchPatterns) == 0 {
		c.WatchPatterns = DefaultWatchPatterns
	}
	if c.PollIntervalSec == 0 {
		c.PollIntervalSec = DefaultPollIntervalSec
	}
	if c.StabilityWaitMs == 0 {
		c.StabilityWaitMs = DefaultStabilityWaitMs
	}
	if c.SyncIntervalSec == 0 {
		c.SyncIntervalSec = DefaultSyncIntervalSec
	}
	if c.MinKeystrokes == 0 {
		c.MinKeystrokes = DefaultMinKeystrokes
	}
	c.expandPaths()
}

// expandPaths expands ~ to the user's home directory in path fields.
func (c *Config) expandPaths() {
	c.InboxDir = expandTilde(c.InboxDir)
	c.ArchiveDir = expandTilde(c.ArchiveDir)
	c.ArtifactDir = expandTilde(c.ArtifactDir)
	c.DatabasePath = expandTilde(c.DatabasePath)
	c.LedgerPath = expandTilde(c.LedgerPath)
	for i, v := range c.SyncVolumes {
		c.SyncVolumes[i] = expandTilde(v)
	}
}

// expandTilde expands ~ at the beginning of a path to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
