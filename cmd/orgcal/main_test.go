package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//orgcal//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@example.com\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250106T090000Z\r\n" +
	"DTEND:20250106T093000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func writeConfig(t *testing.T) (cfgPath, outPath string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		fmt.Fprint(w, workFeed)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	outPath = filepath.Join(dir, "out", "calendar.org")

	yml := fmt.Sprintf(`output: %s
calendars: [Work, Missing]
provider: ics
timezone: UTC
ics:
  - name: Work
    url: %s
`, outPath, srv.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yml), 0o600))
	return cfgPath, outPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	err := app.Run(append([]string{"orgcal"}, args...))
	return buf.String(), err
}

const wantDoc = "# -*- mode: org -*-\n" +
	"* Work\n" +
	"** Standup\n<2025-01-06 Mon 09:00>-<2025-01-06 Mon 09:30>\n"

func TestWriteDryRunPrintsDocument(t *testing.T) {
	cfgPath, outPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "write", "--dry-run", "--start", "2025-01-01", "--end", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, wantDoc, out)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteCreatesOutput(t *testing.T) {
	cfgPath, outPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "write", "--start", "2025-01-01", "--end", "2025-01-31")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, wantDoc, string(data))
}

func TestWriteOutputFlagOverridesConfig(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	other := filepath.Join(t.TempDir(), "other.org")

	_, err := run(t, "--config", cfgPath, "write", "-o", other, "--start", "2025-01-07", "--end", "2025-01-07", "--calendar", "Work")
	require.NoError(t, err)

	data, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, "# -*- mode: org -*-\n* Work\n", string(data))
}

func TestWriteRejectsBadDate(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "write", "--start", "01/06/2025")
	assert.Error(t, err)
}

func TestCalendarsListsResolvedNames(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "calendars")
	require.NoError(t, err)
	assert.Equal(t, "Work\tWork\n", out)
}

func TestUnknownProviderFlag(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "--provider", "outlook", "write")
	assert.Error(t, err)
}

func TestInitConfigWritesDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := run(t, "--config", cfgPath, "init-config")
	require.NoError(t, err)
	assert.Contains(t, out, "provider applescript")

	info, err := os.Stat(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
