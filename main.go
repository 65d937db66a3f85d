package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teradata/watchface/internal/app"
	"github.com/teradata/watchface/internal/config"
	"github.com/teradata/watchface/internal/input"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/system"
)

func main() {
	fmt.Println("Watch face starting")

	cfg, err := config.Load(":80")
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	// Flags
	debug := flag.Bool("debug", false, "enable debug logging to ./watchface-debug.log")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	if err := system.RedirectStdIO(cfg.StdioLog); err != nil {
		fmt.Println("stdio log redirect error:", err)
	}

	// Local file logger when debug enabled
	var logger app.Logger = app.NoopLogger{}
	if *debug {
		f, err := os.OpenFile("./watchface-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer f.Close()
			logger = app.NewFileLogger(f)
			logger.Infof("main", "debug logging enabled")
		} else {
			fmt.Println("debug log open error:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{
		Presenter: render.NewFBPresenter(cfg.Framebuffer, logger),
		Runner:    system.ShellRunner{},
		Logger:    logger,
		Console:   true,
	})
	if err != nil {
		fmt.Println("app init error:", err)
		os.Exit(1)
	}

	input.Watch(ctx, cfg.InputDevices, logger, func(g input.Gesture) { a.HandleGesture(ctx, g) })

	// SIGHUP after the host time zone changed.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.ReloadTimeZone()
			}
		}
	}()

	if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("app error:", err)
		os.Exit(1)
	}
}
