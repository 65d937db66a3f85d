package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/config"
	"github.com/teradata/watchface/internal/input"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/provider"
	"github.com/teradata/watchface/internal/state"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default("127.0.0.1:0")
	cfg.Canvas.Width, cfg.Canvas.Height = 200, 200
	cfg.PrefsPath = filepath.Join(t.TempDir(), "prefs.yaml")
	return cfg
}

func startApp(t *testing.T, a *App) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	require.Eventually(t, func() bool { return a.Frames.Frames() > 0 }, 5*time.Second, 10*time.Millisecond)
	return cancel, done
}

func TestAppRendersAndExits(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{Zone: func() *time.Location { return time.UTC }})
	require.NoError(t, err)
	cancel, done := startApp(t, a)
	defer cancel()

	st := a.Engine.Status()
	assert.Equal(t, state.ACTIVE_INTERACTIVE, st.Mode)
	assert.Equal(t, state.Surface{Width: 200, Height: 200, Round: true}, st.Surface)
	assert.Equal(t, 200, a.Frames.Last().Bounds().Dx())

	a.HandleGesture(context.Background(), input.Gesture{Action: input.ActionExit})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not exit")
	}
}

func TestPowerKeyTogglesAmbient(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{})
	require.NoError(t, err)
	cancel, done := startApp(t, a)
	defer func() {
		cancel()
		<-done
	}()

	a.HandleGesture(context.Background(), input.Gesture{Action: input.ActionPower})
	assert.True(t, a.Ambient())
	require.Eventually(t, func() bool { return a.Engine.Status().Mode == state.ACTIVE_AMBIENT }, 5*time.Second, 10*time.Millisecond)

	// A tap on the dimmed face wakes it instead of reaching a complication.
	a.HandleGesture(context.Background(), input.Gesture{Action: input.ActionTap, X: 100, Y: 100})
	assert.False(t, a.Ambient())
	require.Eventually(t, func() bool { return a.Engine.Status().Mode == state.ACTIVE_INTERACTIVE }, 5*time.Second, 10*time.Millisecond)
}

func TestContextCancelStops(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{})
	require.NoError(t, err)
	cancel, done := startApp(t, a)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestPairingSlotSeededOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.CompanionURL = "http://watch.local/"
	store := prefs.NewMemoryStore()

	a, err := New(context.Background(), cfg, Options{Store: store})
	require.NoError(t, err)
	key := provider.PreferenceKey(complication.LowerID)
	assert.Equal(t, provider.PairingProviderID, store.String(key, ""))
	assert.Equal(t, "http://watch.local/", a.Pairing.URL)

	require.NoError(t, a.Chooser.Choose(complication.LowerID, provider.NoProvider))
	_, err = New(context.Background(), cfg, Options{Store: store})
	require.NoError(t, err)
	assert.Equal(t, provider.NoProvider, store.String(key, ""))
}

func TestNoCompanionURLLeavesSlotsAlone(t *testing.T) {
	store := prefs.NewMemoryStore()
	a, err := New(context.Background(), testConfig(t), Options{Store: store})
	require.NoError(t, err)
	assert.Empty(t, a.Pairing.URL)
	assert.Empty(t, store.String(provider.PreferenceKey(complication.LowerID), ""))
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colors.Primary = "orange"
	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "invalid config")
}

func TestFileLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileLogger(&buf)
	l.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	l.Infof("engine", "frame %d", 3)
	l.Errorf("web", "boom")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"2024-03-05T10:00:00Z [INFO] engine: frame 3",
		"2024-03-05T10:00:00Z [ERROR] web: boom",
	}, lines)
}
