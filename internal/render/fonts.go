package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"github.com/teradata/watchface/internal/render/layout"
)

const fontDPI = 72

type faceKey struct {
	font layout.Font
	size float64
}

type faceSource func(size float64) (font.Face, error)

// Fonts hands out font faces per typeface and size and measures text for
// the layout engine. Faces are created on first use and kept.
type Fonts struct {
	mu      sync.Mutex
	sources map[layout.Font]faceSource
	faces   map[faceKey]font.Face
	logger  Logger
}

// Logger is the logging surface the render package needs.
type Logger interface {
	Infof(component, format string, args ...interface{})
	Errorf(component, format string, args ...interface{})
}

// NewFonts parses primary and secondary font data. Data that fails to parse
// as OpenType is retried with the TrueType parser, and if that fails too the
// typeface falls back to the fixed 7x13 bitmap face.
func NewFonts(primary, secondary []byte, logger Logger) *Fonts {
	f := &Fonts{
		sources: map[layout.Font]faceSource{},
		faces:   map[faceKey]font.Face{},
		logger:  logger,
	}
	f.sources[layout.FontPrimary] = f.parse("primary", primary)
	f.sources[layout.FontSecondary] = f.parse("secondary", secondary)
	return f
}

func (f *Fonts) parse(name string, data []byte) faceSource {
	otf, err := opentype.Parse(data)
	if err == nil {
		return func(size float64) (font.Face, error) {
			return opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: fontDPI, Hinting: font.HintingFull})
		}
	}
	f.errorf("opentype parse of %s font failed: %v", name, err)

	ttf, terr := truetype.Parse(data)
	if terr == nil {
		return func(size float64) (font.Face, error) {
			return truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: fontDPI, Hinting: font.HintingFull}), nil
		}
	}
	f.errorf("truetype parse of %s font failed, using basicfont: %v", name, terr)
	return nil
}

// Face returns the face for a typeface at size points.
func (f *Fonts) Face(which layout.Font, size float64) font.Face {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faceLocked(which, size)
}

func (f *Fonts) faceLocked(which layout.Font, size float64) font.Face {
	key := faceKey{font: which, size: size}
	if face, ok := f.faces[key]; ok {
		return face
	}
	var face font.Face = basicfont.Face7x13
	if source := f.sources[which]; source != nil && size > 0 {
		created, err := source(size)
		if err != nil {
			f.errorf("font face at %.1fpt failed, using basicfont: %v", size, err)
		} else {
			face = created
		}
	}
	f.faces[key] = face
	return face
}

// TextBounds implements layout.Measurer.
func (f *Fonts) TextBounds(which layout.Font, size float64, text string) image.Rectangle {
	if text == "" {
		return image.Rectangle{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := font.BoundString(f.faceLocked(which, size), text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

func (f *Fonts) errorf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Errorf("fonts", "%s", fmt.Sprintf(format, args...))
	}
}
