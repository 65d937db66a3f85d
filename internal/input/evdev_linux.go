//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDevices matches every evdev node.
const DefaultDevices = "/dev/input/event*"

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Watch reads every device matching pattern and calls fn for each gesture.
// fn is called from one goroutine per device, so it must be safe for
// concurrent use. ActionExit is delivered at most once.
//
// It is best-effort: if no input devices are available, it logs and returns.
func Watch(ctx context.Context, pattern string, logger Logger, fn func(Gesture)) {
	if fn == nil {
		return
	}
	if pattern == "" {
		pattern = DefaultDevices
	}

	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := binary.Size(unix.Timeval{})
	if tvSize <= 0 {
		tvSize = 16
	}

	paths, err := filepath.Glob(pattern)
	if err != nil || len(paths) == 0 {
		if logger != nil {
			logger.Infof("input", "no evdev devices match %s", pattern)
		}
		return
	}

	var exitOnce sync.Once
	emit := func(g Gesture) {
		if g.Action != ActionExit {
			fn(g)
			return
		}
		exitOnce.Do(func() {
			if logger != nil {
				logger.Infof("input", "F4 pressed: exiting")
			}
			fn(g)
		})
	}

	for _, path := range paths {
		go readDevice(ctx, path, tvSize, logger, emit)
	}
}

func readDevice(ctx context.Context, path string, tvSize int, logger Logger, emit func(Gesture)) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	decoder := NewDecoder()
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device might have gone away.
			if logger != nil {
				logger.Errorf("input", "poll %s: %v", path, err)
			}
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for _, ev := range ParseEvents(buf[:n], tvSize) {
			if g, ok := decoder.Feed(ev); ok {
				emit(g)
			}
		}
	}
}
