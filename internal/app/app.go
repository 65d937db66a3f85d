package app

import (
	"context"
	"fmt"
	"image"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teradata/watchface/internal/clock"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/config"
	"github.com/teradata/watchface/internal/input"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/provider"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/system"
	"github.com/teradata/watchface/internal/watchface"
	"github.com/teradata/watchface/internal/web"
)

// App wires the engine to a presenter, the providers and the companion
// server, and owns their lifetimes.
type App struct {
	Config config.Config
	Logger Logger
	Runner system.Runner
	// Console switches the tty to graphics mode while running. Only the
	// framebuffer host wants that.
	Console bool
	// Zone reports the host time zone.
	Zone func() *time.Location

	Loop        *watchface.Loop
	Engine      *watchface.Engine
	Renderer    *render.Renderer
	Frames      *render.MemoryPresenter
	Prefs       prefs.Store
	Registry    *provider.Registry
	Lookup      *provider.Lookup
	Chooser     *provider.Chooser
	Permissions *provider.Permissions
	Feeder      *provider.Feeder
	Pairing     *provider.Pairing
	Web         web.Server
	// Mux serves the companion API; binaries may add routes before Start.
	Mux *http.ServeMux

	presenter render.Presenter
	ambient   atomic.Bool

	exitOnce atomic.Bool
	exitCh   chan error
}

// Options are the collaborators that differ between the device and the
// simulator. Zero values pick the simulator-friendly choice.
type Options struct {
	Presenter render.Presenter
	Store     prefs.Store
	Runner    system.Runner
	Logger    Logger
	Zone      func() *time.Location
	Clock     watchface.Clock
	Console   bool
	// StaticDir serves the companion page from disk instead of the
	// embedded copy.
	StaticDir string
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app := &App{Config: cfg, Logger: opts.Logger, Runner: opts.Runner, Console: opts.Console, Zone: opts.Zone, exitCh: make(chan error, 1)}
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	if app.Runner == nil {
		app.Runner = system.NoopRunner{}
	}
	if app.Zone == nil {
		app.Zone = system.LocalZone
	}

	app.Prefs = opts.Store
	if app.Prefs == nil {
		store, err := openPrefs(cfg.PrefsPath)
		if err != nil {
			return nil, err
		}
		app.Prefs = store
	}

	app.Frames = render.NewMemoryPresenter()
	app.presenter = app.Frames
	if opts.Presenter != nil {
		app.presenter = render.Tee{opts.Presenter, app.Frames}
	}
	app.Renderer = render.NewRenderer(app.presenter, app.Logger)

	companionURL := app.companionURL(ctx)
	app.Pairing = provider.NewPairing(companionURL)
	date := provider.NewDate()
	date.Now = func() time.Time { return time.Now().In(app.Zone()) }
	app.Registry = provider.NewRegistry(provider.NewBattery(), date, app.Pairing)

	palette, _ := cfg.Palette()
	layoutOpts := cfg.LayoutOptions(app.Renderer.LogoSize())
	dir := complication.Default()

	app.Loop = watchface.NewLoop()
	app.Permissions = provider.NewPermissions(app.Logger)
	app.Engine = watchface.New(app.Loop, app.Prefs, app.Renderer, app.Renderer.Fonts(), app.Logger, watchface.Options{
		Locale:      cfg.Locale,
		Zone:        app.Zone,
		Palette:     &palette,
		Layout:      &layoutOpts,
		Directory:   dir,
		Clock:       opts.Clock,
		Permissions: app.Permissions,
	})

	app.Lookup = provider.NewLookup(app.Registry, app.Prefs, dir, app.Logger)
	app.Chooser = provider.NewChooser(app.Lookup, app.Prefs)
	app.Feeder = provider.NewFeeder(app.Registry, app.Lookup, app.Permissions, app.Engine.OnComplicationDataUpdate, provider.DefaultFeederOptions(), app.Logger)
	app.Chooser.Subscribe(app.Feeder.Bind)
	app.Permissions.OnGrant(app.Feeder.Refresh)

	if companionURL != "" {
		app.seedPairingSlot()
	}

	deps := web.APIV1Deps{
		Settings:    app.Prefs,
		Status:      app.Engine,
		Directory:   dir,
		Chooser:     app.Chooser,
		Resolver:    app.Lookup,
		Permissions: app.Permissions,
		Frames:      app.Frames,
	}
	if companionURL != "" && !cfg.DevMode {
		deps.CheckToken = func(token string) bool { return token == app.Pairing.Token() }
	}
	app.Mux = web.NewDefaultMux(opts.StaticDir, web.APIV1Config{
		Handlers: web.APIV1Handlers{SettingsChanged: func(context.Context) { app.Engine.OnSettingsChanged() }},
		Deps:     deps,
	})
	server := web.NewHTTPServer(web.ServerConfigFrom(cfg))
	server.Handler = app.Mux
	server.Logger = app.Logger
	app.Web = server
	return app, nil
}

func openPrefs(path string) (prefs.Store, error) {
	if path == "" {
		return prefs.NewMemoryStore(), nil
	}
	store, err := prefs.OpenFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	return store, nil
}

func (app *App) companionURL(ctx context.Context) string {
	if app.Config.CompanionURL != "" {
		return app.Config.CompanionURL
	}
	_, portStr, err := net.SplitHostPort(app.Config.ListenAddr)
	if err != nil {
		app.Logger.Errorf("app", "companion url: listen address %q: %v", app.Config.ListenAddr, err)
		return ""
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port == 0 {
		return ""
	}
	url, err := system.CompanionURL(ctx, app.Runner, port)
	if err != nil {
		app.Logger.Errorf("app", "companion url: %v", err)
		return ""
	}
	return url
}

// seedPairingSlot binds the pairing code to the lower slot on first start,
// so a fresh device can be reached from a phone.
func (app *App) seedPairingSlot() {
	key := provider.PreferenceKey(complication.LowerID)
	if app.Prefs.String(key, "") != "" {
		return
	}
	app.Prefs.SetString(key, provider.PairingProviderID)
	if err := app.Prefs.Commit(); err != nil {
		app.Logger.Errorf("app", "seed pairing slot: %v", err)
	}
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs the face until ctx is done or Exit is called.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)

	if err := app.Renderer.Start(ctx); err != nil {
		app.Logger.Errorf("app", "renderer start error: %v", err)
		return err
	}
	defer func() { _ = app.Renderer.Stop() }()

	if app.Console {
		restore := system.EnterGraphics(app.Logger)
		defer restore()
	}

	if err := app.Web.Start(ctx); err != nil {
		// The face still works without its companion.
		app.Logger.Errorf("web", "start error: %v", err)
	}
	defer func() { _ = app.Web.Stop() }()

	width, height := app.surfaceSize()
	app.Engine.OnSurfaceChanged(width, height, app.Config.Canvas.Round)
	app.Engine.OnPropertiesChanged(app.Config.Canvas.LowBitAmbient, app.Config.Canvas.BurnInProtection)
	app.Engine.OnVisibilityChanged(true)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		app.Loop.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		if err := app.Feeder.Run(runCtx); err != nil {
			app.Logger.Errorf("feeder", "stopped: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		app.ambientTicks(runCtx)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	app.Engine.Destroy()
	cancel()
	wg.Wait()
	return err
}

// surfaceSize is the configured canvas, or the framebuffer resolution when
// the canvas size is left at zero.
func (app *App) surfaceSize() (int, int) {
	w, h := app.Config.Canvas.Width, app.Config.Canvas.Height
	if w > 0 && h > 0 {
		return w, h
	}
	type bounded interface{ Bounds() image.Rectangle }
	for _, p := range presenters(app.presenter) {
		if b, ok := p.(bounded); ok && !b.Bounds().Empty() {
			return b.Bounds().Dx(), b.Bounds().Dy()
		}
	}
	return config.Default("").Canvas.Width, config.Default("").Canvas.Height
}

func presenters(p render.Presenter) []render.Presenter {
	if tee, ok := p.(render.Tee); ok {
		return tee
	}
	return []render.Presenter{p}
}

// ambientTicks stands in for the system's minute tick: while ambient, the
// engine does not schedule repaints itself.
func (app *App) ambientTicks(ctx context.Context) {
	for {
		timer := time.NewTimer(clock.NextTickDelay(time.Now(), false))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if app.ambient.Load() {
			app.Engine.OnTimeTick()
		}
	}
}

// HandleGesture routes input from the touch screen and buttons.
func (app *App) HandleGesture(ctx context.Context, g input.Gesture) {
	switch g.Action {
	case input.ActionTouch:
		app.Engine.OnTapCommand(watchface.TapTouch, g.X, g.Y, g.Time)
	case input.ActionTouchCancel:
		app.Engine.OnTapCommand(watchface.TapTouchCancel, g.X, g.Y, g.Time)
	case input.ActionTap:
		if app.ambient.Load() {
			// Touching the dimmed face wakes it, as on a watch.
			app.SetAmbient(ctx, false)
			return
		}
		app.Engine.OnTapCommand(watchface.TapTap, g.X, g.Y, g.Time)
	case input.ActionPower:
		app.SetAmbient(ctx, !app.ambient.Load())
	case input.ActionExit:
		app.Exit(nil)
	}
}

// SetAmbient switches the face and the backlight.
func (app *App) SetAmbient(ctx context.Context, ambient bool) {
	if app.ambient.Swap(ambient) == ambient {
		return
	}
	app.Logger.Infof("app", "ambient=%t", ambient)
	app.Engine.OnAmbientModeChanged(ambient)
	go func() {
		if err := system.Backlight(ctx, app.Runner, ambient); err != nil {
			app.Logger.Errorf("app", "%v", err)
		}
	}()
}

func (app *App) Ambient() bool { return app.ambient.Load() }

// ReloadTimeZone applies the current host zone, for SIGHUP after the zone
// was changed. Providers are refreshed since the date depends on it.
func (app *App) ReloadTimeZone() {
	loc := app.Zone()
	app.Logger.Infof("app", "time zone %s", loc)
	app.Engine.OnTimeZoneChanged(loc)
	for _, id := range app.Engine.Directory().IDs() {
		app.Feeder.Refresh(id)
	}
}
