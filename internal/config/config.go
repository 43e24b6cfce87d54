package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "orgcal/internal/log"
)

// ErrEmptyPath is returned when a config path is required but empty.
var ErrEmptyPath = errors.New("config path is empty")

// Provider names accepted in Config.Provider.
const (
	ProviderAppleScript = "applescript"
	ProviderStore       = "store"
	ProviderCalDAV      = "caldav"
	ProviderICS         = "ics"
)

const (
	DefaultOutput          = "~/.cache/orgcal/calendar.org"
	DefaultPath            = "~/.config/orgcal/config.yaml"
	DefaultStoreDir        = "~/Library/Calendars"
	DefaultStartOffsetDays = -7
	DefaultEndOffsetDays   = 30
	DefaultRefresh         = "*/15 * * * *"
)

// ICSConfig describes a single ICS subscription exposed as a calendar.
type ICSConfig struct {
	// Name is the calendar display name used in `calendars`.
	Name string `yaml:"name"`
	// URL is the ICS (or webcal://) endpoint.
	URL string `yaml:"url"`
}

// CalDAVConfig holds CalDAV account settings for the caldav provider.
type CalDAVConfig struct {
	// Endpoint defaults to iCloud when empty.
	Endpoint string `yaml:"endpoint,omitempty"`
	Username string `yaml:"username"`
	// Password is an app-specific password. Prefer ORGCAL_CALDAV_PASSWORD.
	Password string `yaml:"password,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Output is the org file that gets overwritten on every run.
	Output string `yaml:"output"`

	// Calendars are the display names written when no names are given.
	Calendars []string `yaml:"calendars"`

	// StartOffsetDays / EndOffsetDays bound the default range, in days
	// relative to today. Zero is a valid value.
	StartOffsetDays int `yaml:"start_offset_days"`
	EndOffsetDays   int `yaml:"end_offset_days"`

	// Provider selects the calendar source:
	//   - "applescript" (default): Calendar.app via osascript
	//   - "store": Calendar.app data directory (StoreDir)
	//   - "caldav": CalDAV / iCloud account (CalDAV)
	//   - "ics": ICS subscriptions (ICS)
	Provider string `yaml:"provider"`

	// MissingCalendar is "skip" (default) or "fail".
	MissingCalendar string `yaml:"missing_calendar"`

	// Timezone is the IANA zone timestamps are rendered in. Empty means
	// the system local zone.
	Timezone string `yaml:"timezone,omitempty"`

	StoreDir string        `yaml:"store_dir"`
	CalDAV   *CalDAVConfig `yaml:"caldav,omitempty"`
	ICS      []ICSConfig   `yaml:"ics"`

	// CacheDir enables conditional ICS downloads when set.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Refresh is the cron schedule used by `orgcal watch`.
	Refresh string `yaml:"refresh"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output:          DefaultOutput,
		Calendars:       []string{},
		StartOffsetDays: DefaultStartOffsetDays,
		EndOffsetDays:   DefaultEndOffsetDays,
		Provider:        ProviderAppleScript,
		MissingCalendar: "skip",
		StoreDir:        DefaultStoreDir,
		ICS:             []ICSConfig{},
		Refresh:         DefaultRefresh,
		LogLevel:        "info",
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave. Offsets are left alone: Load decodes over the defaults, so
// a zero there was written on purpose.
func (c *Config) Normalize() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Calendars == nil {
		c.Calendars = []string{}
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderAppleScript
	}
	switch strings.ToLower(c.MissingCalendar) {
	case "skip", "fail":
		c.MissingCalendar = strings.ToLower(c.MissingCalendar)
	default:
		c.MissingCalendar = "skip"
	}
	if c.StoreDir == "" {
		c.StoreDir = DefaultStoreDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAppleScript, ProviderStore, ProviderICS:
	case ProviderCalDAV:
		if c.CalDAV == nil || c.CalDAV.Username == "" {
			return errors.New("config: provider caldav needs caldav.username")
		}
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if _, err := cron.ParseStandard(c.Refresh); err != nil {
		return fmt.Errorf("config: invalid refresh schedule %q: %w", c.Refresh, err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location returns the display timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// OutputPath is Output with a leading ~ expanded.
func (c *Config) OutputPath() string {
	return ExpandPath(c.Output)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - write a default config with 0600 perms (creating the directory)
//   - return the default config
//   - If the file exists:
//   - decode YAML over the defaults, so absent keys keep default values
//   - normalize
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Final file permissions are 0600 (the file may hold a CalDAV password).
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	path = ExpandPath(path)

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orgcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
