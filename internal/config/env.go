package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvOutput         = "ORGCAL_OUTPUT"
	EnvCalendars      = "ORGCAL_CALENDARS"
	EnvProvider       = "ORGCAL_PROVIDER"
	EnvLogLevel       = "ORGCAL_LOG_LEVEL"
	EnvCalDAVUser     = "ORGCAL_CALDAV_USERNAME"
	EnvCalDAVPassword = "ORGCAL_CALDAV_PASSWORD"
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(ExpandPath(f)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays ORGCAL_* variables read through lookup (os.LookupEnv
// when nil) onto c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvOutput); ok && v != "" {
		c.Output = v
	}
	if v, ok := lookup(EnvCalendars); ok {
		c.Calendars = SplitList(v)
	}
	if v, ok := lookup(EnvProvider); ok && v != "" {
		c.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}

	user, hasUser := lookup(EnvCalDAVUser)
	pass, hasPass := lookup(EnvCalDAVPassword)
	if (hasUser && user != "") || (hasPass && pass != "") {
		if c.CalDAV == nil {
			c.CalDAV = &CalDAVConfig{}
		}
		if user != "" {
			c.CalDAV.Username = user
		}
		if pass != "" {
			c.CalDAV.Password = pass
		}
	}
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
