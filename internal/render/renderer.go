package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/teradata/watchface/internal/assets"
)

// Renderer rasterizes draw commands onto its canvas and hands each finished
// frame to a presenter.
type Renderer struct {
	mu        sync.Mutex
	fonts     *Fonts
	canvas    *Canvas
	images    Images
	presenter Presenter
	logger    Logger
}

// NewRenderer loads the embedded fonts and logos. A nil presenter discards
// frames.
func NewRenderer(presenter Presenter, logger Logger) *Renderer {
	if presenter == nil {
		presenter = NoopPresenter{}
	}
	fonts := NewFonts(assets.PrimaryFont, assets.SecondaryFont, logger)
	r := &Renderer{
		fonts:     fonts,
		canvas:    NewCanvas(0, 0, fonts),
		images:    Images{},
		presenter: presenter,
		logger:    logger,
	}
	r.loadImage(AssetLogo, assets.LogoPNG)
	r.loadImage(AssetLogoAmbient, assets.LogoAmbientPNG)
	return r
}

func (r *Renderer) loadImage(asset Asset, data []byte) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		if r.logger != nil {
			r.logger.Errorf("render", "asset %d decode failed: %v", asset, err)
		}
		return
	}
	r.images[asset] = img
}

func (r *Renderer) Start(ctx context.Context) error { return r.presenter.Start(ctx) }
func (r *Renderer) Stop() error                     { return r.presenter.Stop() }

// Fonts doubles as the layout measurer.
func (r *Renderer) Fonts() *Fonts { return r.fonts }

// LogoSize returns the pixel size of the interactive logo.
func (r *Renderer) LogoSize() image.Point {
	if img, ok := r.images[AssetLogo]; ok {
		return img.Bounds().Size()
	}
	return image.Point{}
}

// Resize sets the canvas size to the surface size.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, h := r.canvas.Size(); w == width && h == height {
		return
	}
	r.canvas.Resize(width, height)
}

// Draw executes cmds on the canvas and presents the result. A panic while
// rasterizing is returned as an error and the frame is still presented.
func (r *Renderer) Draw(cmds []Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, h := r.canvas.Size(); w == 0 || h == 0 {
		return fmt.Errorf("draw before surface size is known")
	}
	err := r.execute(cmds)
	if presentErr := r.presenter.Present(r.canvas.Image()); presentErr != nil {
		return errors.Join(err, fmt.Errorf("present frame: %w", presentErr))
	}
	return err
}

func (r *Renderer) execute(cmds []Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rasterize frame: %v", p)
		}
	}()
	Execute(r.canvas, r.images, cmds)
	return nil
}
