package applescript

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an AppleScript and returns its stdout.
type Runner interface {
	RunScript(ctx context.Context, script string) (string, error)
}

// ExecRunner runs scripts through /usr/bin/osascript.
type ExecRunner struct {
	// Path overrides the osascript binary; empty means look it up in PATH.
	Path string
}

func (r ExecRunner) binary() string {
	if r.Path != "" {
		return r.Path
	}
	return "osascript"
}

// LookPath reports whether the osascript binary can be found.
func (r ExecRunner) LookPath() error {
	_, err := exec.LookPath(r.binary())
	return err
}

func (r ExecRunner) RunScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary(), "-")
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("osascript: %w", err)
		}
		return "", fmt.Errorf("osascript: %w: %s", err, msg)
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// escapeString makes s safe inside an AppleScript double-quoted literal.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
