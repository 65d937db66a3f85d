package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teradata/watchface/internal/provider"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/state"
)

// TokenHeader carries the pairing token. The token query parameter works
// as well.
const TokenHeader = "X-Watchface-Token"

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// settingsPatch is a partial DisplayState; absent fields keep their value.
type settingsPatch struct {
	ShowDate          *bool `json:"showDate"`
	MilitaryTime      *bool `json:"militaryTime"`
	AmbientDrift      *bool `json:"ambientDrift"`
	ShowSeconds       *bool `json:"showSeconds"`
	BatteryStatus     *bool `json:"batteryStatus"`
	ShowNotifications *bool `json:"showNotifications"`
}

func (p settingsPatch) apply(d state.DisplayState) state.DisplayState {
	for _, f := range []struct {
		src *bool
		dst *bool
	}{
		{p.ShowDate, &d.ShowDate},
		{p.MilitaryTime, &d.MilitaryTime},
		{p.AmbientDrift, &d.AmbientDrift},
		{p.ShowSeconds, &d.ShowSeconds},
		{p.BatteryStatus, &d.BatteryStatus},
		{p.ShowNotifications, &d.ShowNotifications},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return d
}

type statusResponse struct {
	Mode          string             `json:"mode"`
	Display       state.DisplayState `json:"display"`
	Drift         [2]int             `json:"drift"`
	UnreadCount   int                `json:"unreadCount"`
	Muted         bool               `json:"muted"`
	LowBitAmbient bool               `json:"lowBitAmbient"`
	BurnIn        bool               `json:"burnInProtection"`
	Frames        int64              `json:"frames"`
	LastFrame     *time.Time         `json:"lastFrame,omitempty"`
	NextTick      *time.Time         `json:"nextTick,omitempty"`
	Surface       state.Surface      `json:"surface"`
	Location      string             `json:"location"`
}

type providerResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Types           []string `json:"types"`
	NeedsPermission bool     `json:"needsPermission"`
}

type complicationResponse struct {
	ID                int               `json:"id"`
	Role              string            `json:"role"`
	SupportedTypes    []string          `json:"supportedTypes"`
	Provider          *providerResponse `json:"provider"`
	Data              *state.SlotStatus `json:"data,omitempty"`
	PendingPermission bool              `json:"pendingPermission"`
}

type chooseRequest struct {
	Provider string `json:"provider"`
}

type permissionRequest struct {
	Grant bool `json:"grant"`
}

type pendingPermission struct {
	Slot     int               `json:"slot"`
	Provider *providerResponse `json:"provider"`
}

func apiV1RouterWithDeps(handlers APIV1Handlers, deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) { handleSettings(w, r, deps, handlers) })
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) { handleStatus(w, r, deps) })
	mux.HandleFunc("/complications", func(w http.ResponseWriter, r *http.Request) { handleComplications(w, r, deps) })
	mux.HandleFunc("/complications/", func(w http.ResponseWriter, r *http.Request) { handleComplications(w, r, deps) })
	mux.HandleFunc("/permissions", func(w http.ResponseWriter, r *http.Request) { handlePermissions(w, r, deps) })
	mux.HandleFunc("/permissions/", func(w http.ResponseWriter, r *http.Request) { handlePermissions(w, r, deps) })
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, deps) })
	return mux
}

func authorized(w http.ResponseWriter, r *http.Request, deps APIV1Deps) bool {
	if deps.CheckToken == nil {
		return true
	}
	token := r.Header.Get(TokenHeader)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token != "" && deps.CheckToken(token) {
		return true
	}
	writeAPIError(w, http.StatusUnauthorized, "unauthorized", "pairing token required")
	return false
}

func handleSettings(w http.ResponseWriter, r *http.Request, deps APIV1Deps, handlers APIV1Handlers) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, state.FromValues(deps.Settings.Snapshot()))
	case http.MethodPut:
		if !authorized(w, r, deps) {
			return
		}
		var patch settingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		display := patch.apply(state.FromValues(deps.Settings.Snapshot()))
		if err := state.Save(deps.Settings, display); err != nil {
			writeAPIError(w, http.StatusInternalServerError, "save_failed", err.Error())
			return
		}
		if handlers.SettingsChanged != nil {
			handlers.SettingsChanged(r.Context())
		}
		writeJSON(w, http.StatusOK, display)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleStatus(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	st := deps.Status.Status()
	resp := statusResponse{
		Mode:          st.Mode.String(),
		Display:       st.Display,
		Drift:         [2]int{st.Drift.X, st.Drift.Y},
		UnreadCount:   st.UnreadCount,
		Muted:         st.Muted,
		LowBitAmbient: st.LowBit,
		BurnIn:        st.BurnIn,
		Frames:        st.Frames,
		Surface:       st.Surface,
		Location:      st.Location,
	}
	if !st.LastFrame.IsZero() {
		resp.LastFrame = &st.LastFrame
	}
	if !st.NextTick.IsZero() {
		resp.NextTick = &st.NextTick
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleComplications(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	// GET /complications -> every slot with its binding and data
	// GET /complications/{id}/providers -> chooser options
	// PUT /complications/{id}/provider -> choose
	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, "/complications"), "/")
	if rel == "" {
		if r.Method != http.MethodGet {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, listComplications(deps))
		return
	}

	parts := strings.Split(rel, "/")
	slotID, err := strconv.Atoi(parts[0])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_slot", "slot id must be a number")
		return
	}
	if _, ok := deps.Directory.Lookup(slotID); !ok {
		writeAPIError(w, http.StatusNotFound, "slot_not_found", "slot not found")
		return
	}
	if len(parts) != 2 {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if deps.Chooser == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "provider chooser not configured")
		return
	}

	switch {
	case parts[1] == "providers" && r.Method == http.MethodGet:
		infos, err := deps.Chooser.Options(slotID)
		if err != nil {
			writeProviderError(w, err)
			return
		}
		out := make([]providerResponse, 0, len(infos))
		for _, info := range infos {
			out = append(out, *toProviderResponse(&info))
		}
		writeJSON(w, http.StatusOK, out)
	case parts[1] == "provider" && r.Method == http.MethodPut:
		if !authorized(w, r, deps) {
			return
		}
		var req chooseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if err := deps.Chooser.Choose(slotID, strings.TrimSpace(req.Provider)); err != nil {
			writeProviderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, complicationFor(deps, slotID, deps.Status.Status()))
	case parts[1] == "providers" || parts[1] == "provider":
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	default:
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func listComplications(deps APIV1Deps) []complicationResponse {
	st := deps.Status.Status()
	out := make([]complicationResponse, 0, len(deps.Directory.IDs()))
	for _, id := range deps.Directory.IDs() {
		out = append(out, complicationFor(deps, id, st))
	}
	return out
}

func complicationFor(deps APIV1Deps, slotID int, st state.Status) complicationResponse {
	slot, _ := deps.Directory.Lookup(slotID)
	resp := complicationResponse{ID: slot.ID, Role: slot.Role.String()}
	for _, t := range slot.SupportedTypes() {
		resp.SupportedTypes = append(resp.SupportedTypes, t.String())
	}
	if deps.Resolver != nil {
		if info, err := deps.Resolver.Resolve(slotID); err == nil {
			resp.Provider = toProviderResponse(info)
		}
	}
	for i := range st.Complications {
		if st.Complications[i].ID == slotID {
			data := st.Complications[i]
			resp.Data = &data
		}
	}
	if deps.Permissions != nil {
		for _, id := range deps.Permissions.Pending() {
			if id == slotID {
				resp.PendingPermission = true
			}
		}
	}
	return resp
}

func handlePermissions(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	// GET /permissions -> pending requests
	// POST /permissions/{slot} {"grant": true|false} -> decide
	// Deciding needs no pairing token: the pairing code itself is shown
	// only after its provider was granted.
	if deps.Permissions == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "permissions not configured")
		return
	}
	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, "/permissions"), "/")
	if rel == "" {
		if r.Method != http.MethodGet {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		out := []pendingPermission{}
		for _, id := range deps.Permissions.Pending() {
			p := pendingPermission{Slot: id}
			if deps.Resolver != nil {
				if info, err := deps.Resolver.Resolve(id); err == nil {
					p.Provider = toProviderResponse(info)
				}
			}
			out = append(out, p)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	slotID, err := strconv.Atoi(rel)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_slot", "slot id must be a number")
		return
	}
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if !req.Grant {
		deps.Permissions.Deny(slotID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "granted": false})
		return
	}
	if deps.Resolver == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "provider lookup not configured")
		return
	}
	info, err := deps.Resolver.Resolve(slotID)
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if info == nil {
		writeAPIError(w, http.StatusConflict, "no_provider", "slot has no provider")
		return
	}
	deps.Permissions.Grant(slotID, info.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "granted": true, "provider": info.ID})
}

func handleFrame(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var buf bytes.Buffer
	if err := deps.Frames.WritePNG(&buf); err != nil {
		if errors.Is(err, render.ErrNoFrame) {
			writeAPIError(w, http.StatusNotFound, "no_frame", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func toProviderResponse(info *provider.Info) *providerResponse {
	if info == nil {
		return nil
	}
	return &providerResponse{ID: info.ID, Name: info.Name, Types: info.TypeNames(), NeedsPermission: info.NeedsPermission}
}

func writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrUnknownSlot):
		writeAPIError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, provider.ErrUnknownProvider):
		writeAPIError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, provider.ErrUnsupported):
		writeAPIError(w, http.StatusConflict, "unsupported_provider", err.Error())
	default:
		writeAPIError(w, http.StatusInternalServerError, "provider_failed", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
