package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata/watchface/internal/app"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/config"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/state"
)

func newSim(t *testing.T) (*app.App, *http.ServeMux) {
	t.Helper()
	cfg := config.Default("127.0.0.1:0")
	cfg.Canvas.Width, cfg.Canvas.Height = 200, 200
	control := NewSimControl(time.UTC)
	a, err := app.New(context.Background(), cfg, app.Options{Store: prefs.NewMemoryStore(), Zone: control.Zone})
	require.NoError(t, err)
	control.Bind(a)
	registerSimEndpoints(a.Mux, control)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return a.Frames.Frames() > 0 }, 5*time.Second, 10*time.Millisecond)
	return a, a.Mux
}

func post(t *testing.T, mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSimAmbientAndState(t *testing.T) {
	a, mux := newSim(t)

	rec := post(t, mux, "/sim/ambient", `{"ambient":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, a.Ambient())
	require.Eventually(t, func() bool { return a.Engine.Status().Mode == state.ACTIVE_AMBIENT }, 5*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/sim/state", nil)
	get := httptest.NewRecorder()
	mux.ServeHTTP(get, req)
	assert.Equal(t, http.StatusOK, get.Code)
	assert.Contains(t, get.Body.String(), `"ambient":true`)
}

func TestSimUnreadAndMute(t *testing.T) {
	a, mux := newSim(t)

	require.Equal(t, http.StatusOK, post(t, mux, "/sim/unread", `{"count":3}`).Code)
	require.Equal(t, http.StatusOK, post(t, mux, "/sim/mute", `{"muted":true}`).Code)
	require.Eventually(t, func() bool {
		st := a.Engine.Status()
		return st.UnreadCount == 3 && st.Muted
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/unread", `{"count":-1}`).Code)
}

func TestSimComplicationUpdate(t *testing.T) {
	a, mux := newSim(t)

	rec := post(t, mux, "/sim/complications/0", `{"type":"short_text","text":"42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		for _, s := range a.Engine.Status().Complications {
			if s.ID == complication.UpperID && s.Type == complication.TypeShortText.String() {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusNotFound, post(t, mux, "/sim/complications/9", `{"type":"empty"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/complications/x", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/complications/0", `{"type":"hologram"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/complications/0", `{"type":"ranged_value"}`).Code)
}

func TestSimTimeZone(t *testing.T) {
	a, mux := newSim(t)

	require.Equal(t, http.StatusOK, post(t, mux, "/sim/timezone", `{"zone":"Asia/Tokyo"}`).Code)
	require.Eventually(t, func() bool { return a.Engine.Status().Location == "Asia/Tokyo" }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/timezone", `{"zone":"Mars/Olympus"}`).Code)
}

func TestSimRejectsBadRequests(t *testing.T) {
	_, mux := newSim(t)

	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/tap", `{"type":"swipe"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/geometry", `{"width":0,"height":10}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, mux, "/sim/visibility", `not json`).Code)

	req := httptest.NewRequest(http.MethodGet, "/sim/tick", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
