// Package system wraps the bits of the host the face touches directly: the
// console, helper scripts for the display and network, and the local zone.
package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

type Runner interface {
	Run(ctx context.Context, cmd string, args ...string) (stdout, stderr string, err error)
}

type NoopRunner struct{}

func (NoopRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	return "", "", nil
}

// ShellRunner executes commands via sudo and uses PATH to resolve scripts.
// It returns stdout, stderr, and an error if the command exits non-zero.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	fullArgs := append([]string{cmd}, args...)
	c := exec.CommandContext(ctx, "sudo", fullArgs...)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	if err := c.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), fmt.Errorf("exit %d: %w", exitErr.ExitCode(), err)
		}
		return outBuf.String(), errBuf.String(), err
	}
	return outBuf.String(), errBuf.String(), nil
}

// LocalZone resolves the host time zone fresh on every call, so a SIGHUP
// after the zone was changed picks up the new one. time.Local is cached at
// start and cannot be used for that.
func LocalZone() *time.Location {
	return loadZone(os.Getenv("TZ"), "/etc/timezone", "/etc/localtime")
}

func loadZone(tz, timezoneFile, localtimeFile string) *time.Location {
	if tz = strings.TrimPrefix(tz, ":"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if raw, err := os.ReadFile(timezoneFile); err == nil {
		if loc, err := time.LoadLocation(strings.TrimSpace(string(raw))); err == nil {
			return loc
		}
	}
	if data, err := os.ReadFile(localtimeFile); err == nil {
		if loc, err := time.LoadLocationFromTZData("Local", data); err == nil {
			return loc
		}
	}
	return time.Local
}
