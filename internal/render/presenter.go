package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"
	"sync/atomic"

	fb "github.com/gonutz/framebuffer"
)

// ErrNoFrame is returned when a frame is requested before one was presented.
var ErrNoFrame = errors.New("no frame presented yet")

// Presenter puts a finished frame on a display.
type Presenter interface {
	Start(ctx context.Context) error
	Stop() error
	Present(frame *image.RGBA) error
}

type NoopPresenter struct{}

func (NoopPresenter) Start(ctx context.Context) error { return nil }
func (NoopPresenter) Stop() error                     { return nil }
func (NoopPresenter) Present(*image.RGBA) error       { return nil }

// FBPresenter blits frames to a Linux framebuffer device, scaling the
// canvas to the device resolution.
type FBPresenter struct {
	Device string
	Logger Logger

	dev     *fb.Device
	running atomic.Bool
}

func NewFBPresenter(device string, logger Logger) *FBPresenter {
	if device == "" {
		device = "/dev/fb0"
	}
	return &FBPresenter{Device: device, Logger: logger}
}

func (p *FBPresenter) Start(ctx context.Context) error {
	dev, err := fb.Open(p.Device)
	if err != nil {
		return err
	}
	p.dev = dev
	if p.Logger != nil {
		bounds := dev.Bounds()
		p.Logger.Infof("fb", "framebuffer %s open, bounds=%dx%d", p.Device, bounds.Dx(), bounds.Dy())
	}
	p.running.Store(true)
	return nil
}

func (p *FBPresenter) Stop() error {
	p.running.Store(false)
	if p.dev != nil {
		p.dev.Close()
	}
	return nil
}

// Bounds reports the device resolution, or an empty rectangle before Start.
func (p *FBPresenter) Bounds() image.Rectangle {
	if p.dev == nil {
		return image.Rectangle{}
	}
	return p.dev.Bounds()
}

func (p *FBPresenter) Present(frame *image.RGBA) error {
	if !p.running.Load() || p.dev == nil {
		return nil
	}
	return blit(p.dev, frame)
}

// blit copies canvas into dst with nearest-neighbor sampling.
func blit(dst draw.Image, canvas *image.RGBA) error {
	if dst == nil || canvas == nil {
		return nil
	}
	bounds := dst.Bounds()
	dstWidth, dstHeight := bounds.Dx(), bounds.Dy()
	srcWidth, srcHeight := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return nil
	}
	for y := 0; y < dstHeight; y++ {
		sy := (y * srcHeight) / dstHeight
		for x := 0; x < dstWidth; x++ {
			sx := (x * srcWidth) / dstWidth
			pixel := canvas.RGBAAt(sx, sy)
			dst.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
	return nil
}

// MemoryPresenter keeps a copy of the most recent frame.
type MemoryPresenter struct {
	mu     sync.RWMutex
	last   *image.RGBA
	frames int64
}

func NewMemoryPresenter() *MemoryPresenter { return &MemoryPresenter{} }

func (m *MemoryPresenter) Start(ctx context.Context) error { return nil }
func (m *MemoryPresenter) Stop() error                     { return nil }

func (m *MemoryPresenter) Present(frame *image.RGBA) error {
	if frame == nil {
		return nil
	}
	clone := image.NewRGBA(frame.Bounds())
	copy(clone.Pix, frame.Pix)
	m.mu.Lock()
	m.last = clone
	m.frames++
	m.mu.Unlock()
	return nil
}

// Last returns the most recent frame, or nil.
func (m *MemoryPresenter) Last() *image.RGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *MemoryPresenter) Frames() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

// WritePNG encodes the most recent frame.
func (m *MemoryPresenter) WritePNG(w io.Writer) error {
	last := m.Last()
	if last == nil {
		return ErrNoFrame
	}
	return png.Encode(w, last)
}

// Tee presents each frame to every presenter in order.
type Tee []Presenter

func (t Tee) Start(ctx context.Context) error {
	for _, p := range t {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Stop() error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.Stop())
	}
	return errors.Join(errs...)
}

func (t Tee) Present(frame *image.RGBA) error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.Present(frame))
	}
	return errors.Join(errs...)
}
