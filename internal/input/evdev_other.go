//go:build !linux

package input

import "context"

const DefaultDevices = ""

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Watch is a no-op on non-Linux platforms; use the simulator instead.
func Watch(ctx context.Context, pattern string, logger Logger, fn func(Gesture)) {
	if logger != nil {
		logger.Infof("input", "evdev input not supported on this platform")
	}
}
