package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/teradata/watchface/internal/app"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/input"
)

// SimControl stands in for the system around the face: visibility, the
// notification counters and the time zone.
type SimControl struct {
	app *app.App

	mu   sync.RWMutex
	zone *time.Location
}

func NewSimControl(zone *time.Location) *SimControl {
	if zone == nil {
		zone = time.Local
	}
	return &SimControl{zone: zone}
}

// Bind attaches the app once it exists; app.New needs Zone first.
func (c *SimControl) Bind(a *app.App) { c.app = a }

func (c *SimControl) Zone() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zone
}

func (c *SimControl) SetZone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.zone = loc
	c.mu.Unlock()
	c.app.ReloadTimeZone()
	return nil
}

type simComplication struct {
	Type  string   `json:"type"`
	Text  string   `json:"text"`
	Title string   `json:"title"`
	Value *float64 `json:"value"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
}

func (s simComplication) data() (complication.Data, error) {
	t, err := complication.ParseType(s.Type)
	if err != nil {
		return complication.Data{}, err
	}
	d := complication.Data{Type: t, ShortText: s.Text, ShortTitle: s.Title, Min: s.Min, Max: s.Max}
	if t == complication.TypeRangedValue {
		if s.Value == nil {
			return complication.Data{}, fmt.Errorf("ranged_value needs a value")
		}
		d.Value = *s.Value
		if d.Max == 0 && d.Min == 0 {
			d.Max = 100
		}
	}
	if t == complication.TypeShortText && s.Text == "" {
		return complication.Data{}, fmt.Errorf("short_text needs text")
	}
	return d.Normalize(), nil
}

var tapActions = map[string]input.Action{
	"":       input.ActionTap,
	"tap":    input.ActionTap,
	"touch":  input.ActionTouch,
	"cancel": input.ActionTouchCancel,
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl) {
	a := control.app

	mux.HandleFunc("/sim/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		st := a.Engine.Status()
		writeSimJSON(w, http.StatusOK, map[string]any{
			"mode":     st.Mode.String(),
			"ambient":  a.Ambient(),
			"unread":   st.UnreadCount,
			"muted":    st.Muted,
			"frames":   st.Frames,
			"surface":  st.Surface,
			"location": st.Location,
		})
	})

	postJSON(mux, "/sim/visibility", func(body struct {
		Visible bool `json:"visible"`
	}) error {
		a.Engine.OnVisibilityChanged(body.Visible)
		return nil
	})

	postJSON(mux, "/sim/ambient", func(body struct {
		Ambient bool `json:"ambient"`
	}) error {
		a.SetAmbient(context.Background(), body.Ambient)
		return nil
	})

	postJSON(mux, "/sim/tap", func(body struct {
		X    int    `json:"x"`
		Y    int    `json:"y"`
		Type string `json:"type"`
	}) error {
		action, ok := tapActions[strings.ToLower(body.Type)]
		if !ok {
			return fmt.Errorf("unknown tap type %q", body.Type)
		}
		a.HandleGesture(context.Background(), input.Gesture{Action: action, X: body.X, Y: body.Y, Time: time.Now()})
		return nil
	})

	postJSON(mux, "/sim/unread", func(body struct {
		Count int `json:"count"`
	}) error {
		if body.Count < 0 {
			return fmt.Errorf("count must not be negative")
		}
		a.Engine.OnUnreadCountChanged(body.Count)
		return nil
	})

	postJSON(mux, "/sim/mute", func(body struct {
		Muted bool `json:"muted"`
	}) error {
		a.Engine.OnInterruptionFilterChanged(body.Muted)
		return nil
	})

	postJSON(mux, "/sim/properties", func(body struct {
		LowBit bool `json:"lowBit"`
		BurnIn bool `json:"burnIn"`
	}) error {
		a.Engine.OnPropertiesChanged(body.LowBit, body.BurnIn)
		return nil
	})

	postJSON(mux, "/sim/geometry", func(body struct {
		Width  int  `json:"width"`
		Height int  `json:"height"`
		Round  bool `json:"round"`
	}) error {
		if body.Width <= 0 || body.Height <= 0 {
			return fmt.Errorf("width and height must be positive")
		}
		a.Engine.OnSurfaceChanged(body.Width, body.Height, body.Round)
		return nil
	})

	postJSON(mux, "/sim/timezone", func(body struct {
		Zone string `json:"zone"`
	}) error {
		return control.SetZone(body.Zone)
	})

	mux.HandleFunc("/sim/tick", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		a.Engine.OnTimeTick()
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("/sim/complications/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sim/complications/"), "/"))
		if err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid slot id")
			return
		}
		if _, ok := a.Engine.Directory().Lookup(id); !ok {
			writeSimError(w, http.StatusNotFound, "unknown slot")
			return
		}
		var body simComplication
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		data, err := body.data()
		if err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Engine.OnComplicationDataUpdate(id, data)
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "slot": id, "type": data.Type.String()})
	})
}

// postJSON registers a POST-only endpoint that decodes its body into T.
func postJSON[T any](mux *http.ServeMux, path string, fn func(T) error) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body T
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := fn(body); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
