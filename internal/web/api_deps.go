package web

import (
	"io"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/prefs"
	"github.com/teradata/watchface/internal/provider"
	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/state"
)

// StatusSource is the published engine status. *watchface.Engine fits.
type StatusSource interface {
	Status() state.Status
}

// ProviderChooser is the picker flow. *provider.Chooser fits.
type ProviderChooser interface {
	Options(slotID int) ([]provider.Info, error)
	Choose(slotID int, providerID string) error
}

// ProviderResolver reports the provider currently bound to a slot.
// *provider.Lookup fits.
type ProviderResolver interface {
	Resolve(slotID int) (*provider.Info, error)
}

// PermissionGate is the permission flow. *provider.Permissions fits.
type PermissionGate interface {
	Pending() []int
	Allowed(providerID string) bool
	Grant(slotID int, providerID string)
	Deny(slotID int)
}

// FrameSource encodes the last presented frame. *render.MemoryPresenter
// fits.
type FrameSource interface {
	WritePNG(w io.Writer) error
}

type APIV1Deps struct {
	Settings    prefs.Store
	Status      StatusSource
	Directory   *complication.Directory
	Chooser     ProviderChooser
	Resolver    ProviderResolver
	Permissions PermissionGate
	Frames      FrameSource

	// CheckToken validates the pairing token on requests that change
	// anything. Nil allows every request.
	CheckToken func(token string) bool
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Settings == nil {
		out.Settings = prefs.NewMemoryStore()
	}
	if out.Status == nil {
		out.Status = NoopStatus{}
	}
	if out.Directory == nil {
		out.Directory = complication.Default()
	}
	if out.Frames == nil {
		out.Frames = NoopFrames{}
	}
	return out
}

type NoopStatus struct{}

func (NoopStatus) Status() state.Status { return state.Status{} }

type NoopFrames struct{}

func (NoopFrames) WritePNG(io.Writer) error { return render.ErrNoFrame }
