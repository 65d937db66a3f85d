package layout

import (
	"image"
	"strconv"
	"strings"

	"github.com/teradata/watchface/internal/complication"
)

const (
	// LineOffset is the gap between the midline and the time digits.
	LineOffset = 9
	// StrokeWidth of the midline.
	StrokeWidth = 1

	widgetDivisor = 6.5
)

// Font selects which typeface a text box is measured with.
type Font int

const (
	FontPrimary Font = iota
	FontSecondary
)

// Measurer returns the ink bounds of text relative to a baseline-left origin,
// so Min.Y is negative for glyphs above the baseline.
type Measurer interface {
	TextBounds(font Font, size float64, text string) image.Rectangle
}

// Key names a piece of laid-out content.
type Key string

const (
	KeyHour   Key = "hour"
	KeyMinute Key = "minute"
	KeySecond Key = "second"
	KeyDate   Key = "date"
	KeyLogo   Key = "logo"
)

const complicationPrefix = "complication/"

func ComplicationKey(slotID int) Key {
	return Key(complicationPrefix + strconv.Itoa(slotID))
}

func (k Key) complicationID() (int, bool) {
	rest, ok := strings.CutPrefix(string(k), complicationPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	return id, err == nil
}

// Box is a laid-out rectangle. For text, Dot is the baseline-left point the
// string is drawn from and Rect its ink bounds; otherwise Dot is Rect.Min.
type Box struct {
	Rect image.Rectangle
	Dot  image.Point
}

// Add translates the box by p.
func (b Box) Add(p image.Point) Box {
	return Box{Rect: b.Rect.Add(p), Dot: b.Dot.Add(p)}
}

// Options are the sizing inputs that do not come from the surface.
type Options struct {
	PrimaryTextSizeRound  float64
	PrimaryTextSizeSquare float64
	SecondaryTextSize     float64
	LogoSize              image.Point
	// Directory places the complication slots by role. Nil uses
	// complication.Default.
	Directory *complication.Directory
}

func DefaultOptions() Options {
	return Options{
		PrimaryTextSizeRound:  72,
		PrimaryTextSizeSquare: 64,
		SecondaryTextSize:     22,
		LogoSize:              image.Pt(64, 24),
	}
}

// Geometry holds the constants derived from the surface.
type Geometry struct {
	Width             int
	Height            int
	Round             bool
	Midline           int
	WidgetSize        int
	PrimaryTextSize   float64
	SecondaryTextSize float64
	LogoSize          image.Point
	Directory         *complication.Directory

	// DigitBounds is the ink box of "88" at the primary size.
	DigitBounds image.Rectangle
	// AmbientSize bounds the burn-in drift offset.
	AmbientSize image.Point
	// Notification is the center of the unread badge.
	Notification image.Point
}

// EvenSize rounds n down to the nearest even integer.
func EvenSize(n int) int {
	if n%2 != 0 {
		return n - 1
	}
	return n
}

// WidgetSize is the edge length of a complication widget on a surface of
// the given width.
func WidgetSize(width int) int {
	return EvenSize(int(float64(width) / widgetDivisor))
}

// NewGeometry derives every sizing constant for a surface.
func NewGeometry(width, height int, round bool, opts Options, m Measurer) Geometry {
	g := Geometry{
		Width:             width,
		Height:            height,
		Round:             round,
		Midline:           height / 2,
		WidgetSize:        WidgetSize(width),
		SecondaryTextSize: opts.SecondaryTextSize,
		LogoSize:          opts.LogoSize,
		Directory:         opts.Directory,
		Notification:      image.Pt(width/2, height-20),
	}
	if round {
		g.PrimaryTextSize = opts.PrimaryTextSizeRound
	} else {
		g.PrimaryTextSize = opts.PrimaryTextSizeSquare
	}
	if m != nil {
		g.DigitBounds = m.TextBounds(FontPrimary, g.PrimaryTextSize, "88")
	}
	g.AmbientSize = ambientSize(g.Midline, g.DigitBounds)
	return g
}

// ambientSize computes how far the face may drift while staying on a round
// screen: the band around the time digits is inscribed in the circle.
func ambientSize(mid int, digits image.Rectangle) image.Point {
	shiftW := mid - LineOffset + digits.Dx()/2
	shiftH := 2*digits.Dy() + 2*LineOffset
	return image.Pt(
		nonNegative(inscribed(mid, shiftH/2)-shiftW/2),
		nonNegative(inscribed(mid, shiftW/2)-shiftH/2),
	)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Compute lays out key with content under g. It depends on nothing else,
// so equal inputs always give equal boxes.
func Compute(g Geometry, m Measurer, key Key, content string) Box {
	mid := g.Midline
	switch key {
	case KeyHour:
		b := measure(m, FontPrimary, g.PrimaryTextSize, content)
		return textBox(b, image.Pt(centeredIn(g.Width, b.Dx()), mid-(StrokeWidth+LineOffset)))
	case KeyMinute:
		b := measure(m, FontPrimary, g.PrimaryTextSize, content)
		return textBox(b, image.Pt(centeredIn(g.Width, b.Dx()), mid+(StrokeWidth+LineOffset)+b.Dy()))
	case KeySecond:
		// Anchored to the widest two-digit minute so it does not jitter.
		b := measure(m, FontSecondary, g.SecondaryTextSize, content)
		minuteRight := (g.Width + g.DigitBounds.Dx()) / 2
		minuteBaseline := mid + (StrokeWidth + LineOffset) + g.DigitBounds.Dy()
		return textBox(b, image.Pt(minuteRight+LineOffset, minuteBaseline-LineOffset))
	case KeyDate:
		b := measure(m, FontSecondary, g.SecondaryTextSize, content)
		logo := logoRect(g)
		return textBox(b, image.Pt(logo.Min.X+centeredIn(logo.Dx(), b.Dx()), mid+b.Dy()+LineOffset))
	case KeyLogo:
		r := logoRect(g)
		return Box{Rect: r, Dot: r.Min}
	}

	if id, ok := key.complicationID(); ok {
		r := complicationRect(g, id)
		return Box{Rect: r, Dot: r.Min}
	}
	return Box{}
}

func measure(m Measurer, font Font, size float64, text string) image.Rectangle {
	if m == nil || text == "" {
		return image.Rectangle{}
	}
	return m.TextBounds(font, size, text)
}

func textBox(bounds image.Rectangle, dot image.Point) Box {
	return Box{Rect: bounds.Add(dot), Dot: dot}
}

func logoRect(g Geometry) image.Rectangle {
	w, h := g.LogoSize.X, g.LogoSize.Y
	minX := g.Width - w - LineOffset
	minY := g.Midline - LineOffset - h
	return image.Rect(minX, minY, minX+w, minY+h)
}

func complicationRect(g Geometry, slotID int) image.Rectangle {
	dir := g.Directory
	if dir == nil {
		dir = complication.Default()
	}
	slot, ok := dir.Lookup(slotID)
	if !ok {
		return image.Rectangle{}
	}
	mid := g.Midline
	size := g.WidgetSize
	left := (mid-size)/2 - LineOffset*2
	switch slot.Role {
	case complication.RoleUpper:
		return image.Rect(left, mid-size-LineOffset, left+size, mid-LineOffset)
	case complication.RoleLower:
		return image.Rect(left, mid+LineOffset, left+size, mid+size+LineOffset)
	case complication.RoleBattery:
		// The battery bar runs along the midline.
		return image.Rect(0, mid, g.Width, mid+StrokeWidth)
	}
	return image.Rectangle{}
}

type cachedBox struct {
	content string
	box     Box
}

// Engine caches boxes per key and recomputes them only when their content
// or the surface geometry changed.
type Engine struct {
	measurer Measurer
	options  Options
	geometry Geometry

	cache          map[Key]cachedBox
	recomputations int
}

func NewEngine(m Measurer, opts Options) *Engine {
	return &Engine{measurer: m, options: opts, cache: map[Key]cachedBox{}}
}

// OnGeometryChanged recomputes the sizing constants and drops every cached box.
func (e *Engine) OnGeometryChanged(width, height int, round bool) Geometry {
	e.geometry = NewGeometry(width, height, round, e.options, e.measurer)
	e.cache = map[Key]cachedBox{}
	return e.geometry
}

func (e *Engine) Geometry() Geometry { return e.geometry }

// BoxFor returns the box of key for content, reusing the cached one when
// content is unchanged since the previous call for key.
func (e *Engine) BoxFor(key Key, content string) Box {
	if cached, ok := e.cache[key]; ok && cached.content == content {
		return cached.box
	}
	box := Compute(e.geometry, e.measurer, key, content)
	e.cache[key] = cachedBox{content: content, box: box}
	e.recomputations++
	return box
}

// Invalidate forces the next BoxFor(key, ...) to recompute.
func (e *Engine) Invalidate(key Key) {
	delete(e.cache, key)
}

// InvalidateAll drops every cached box while keeping the geometry.
func (e *Engine) InvalidateAll() {
	e.cache = map[Key]cachedBox{}
}

// Recomputations counts how many boxes were computed rather than served
// from the cache.
func (e *Engine) Recomputations() int { return e.recomputations }
