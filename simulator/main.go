package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teradata/watchface/internal/app"
	"github.com/teradata/watchface/internal/config"
	"github.com/teradata/watchface/internal/prefs"
)

func main() {
	cfg, err := config.Load(":8080")
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	cfg.RegisterFlags(flag.CommandLine)
	staticDir := flag.String("static-dir", "", "serve the companion page from this directory (optional); when empty, embedded web UI assets are served")
	zoneName := flag.String("zone", "", "initial simulated time zone (IANA name); empty uses the host zone")
	ephemeral := flag.Bool("ephemeral", false, "keep preferences in memory instead of the prefs file")
	flag.Parse()

	var zone *time.Location
	if *zoneName != "" {
		zone, err = time.LoadLocation(*zoneName)
		if err != nil {
			fmt.Println("zone error:", err)
			os.Exit(2)
		}
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	control := NewSimControl(zone)
	opts := app.Options{
		Logger:    app.NewFileLogger(os.Stdout),
		Zone:      control.Zone,
		StaticDir: *staticDir,
	}
	if *ephemeral {
		opts.Store = prefs.NewMemoryStore()
	}
	a, err := app.New(processCtx, cfg, opts)
	if err != nil {
		fmt.Println("app init error:", err)
		os.Exit(2)
	}
	control.Bind(a)
	registerSimEndpoints(a.Mux, control)

	fmt.Println("Watch face simulator listening on", displayAddr(cfg.ListenAddr))
	fmt.Println("API: http://" + displayAddr(cfg.ListenAddr) + "/api/v1/")
	fmt.Println("Frame: http://" + displayAddr(cfg.ListenAddr) + "/api/v1/frame.png")

	if err := a.Start(processCtx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("simulator error:", err)
		os.Exit(1)
	}
}

func displayAddr(addr string) string {
	// Best-effort for display; don't attempt full URL parsing here.
	if len(addr) > 0 && addr[0] == ':' {
		return "127.0.0.1" + addr
	}
	if addr == "" {
		return "127.0.0.1:8080"
	}
	return addr
}
