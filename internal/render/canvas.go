package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/raster"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// circleKappa places cubic control points so four segments approximate a circle.
const circleKappa = 0.5522847498

type ScaleMode int

const (
	// ScaleFit keeps the aspect ratio and centers inside the rect.
	ScaleFit ScaleMode = iota
	// ScaleStretch fills the rect exactly.
	ScaleStretch
)

// Drawer is the set of primitives draw commands are executed against.
type Drawer interface {
	Size() (width int, height int)
	Fill(c color.Color)
	// MeasureText returns ink bounds relative to the baseline-left dot.
	MeasureText(text string, paint Paint) image.Rectangle
	DrawText(text string, dot image.Point, paint Paint)
	DrawLine(from, to image.Point, paint Paint)
	DrawCircle(center image.Point, radius int, paint Paint)
	// DrawArc strokes a circular arc. Angles are in degrees, clockwise from
	// twelve o'clock.
	DrawArc(center image.Point, radius int, startDeg, sweepDeg float64, paint Paint)
	DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode, paint Paint)
}

// Canvas is an offscreen RGBA surface implementing Drawer.
type Canvas struct {
	img        *image.RGBA
	fonts      *Fonts
	rasterizer *raster.Rasterizer
}

func NewCanvas(width, height int, fonts *Fonts) *Canvas {
	c := &Canvas{fonts: fonts}
	c.Resize(width, height)
	return c
}

// Resize replaces the surface. Previous content is discarded.
func (c *Canvas) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	c.rasterizer = raster.NewRasterizer(width, height)
	c.rasterizer.UseNonZeroWinding = true
}

func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) Fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func (c *Canvas) face(paint Paint) font.Face {
	return c.fonts.Face(paint.Font, paint.TextSize)
}

func (c *Canvas) MeasureText(text string, paint Paint) image.Rectangle {
	return c.fonts.TextBounds(paint.Font, paint.TextSize, text)
}

func (c *Canvas) DrawText(text string, dot image.Point, paint Paint) {
	if text == "" {
		return
	}
	src := &image.Uniform{C: paint.Color}
	if paint.AntiAlias {
		d := &font.Drawer{Dst: c.img, Src: src, Face: c.face(paint), Dot: fixed.P(dot.X, dot.Y)}
		d.DrawString(text)
		return
	}

	// Render coverage into a mask first and keep only fully covered pixels.
	bounds := c.MeasureText(text, paint).Add(dot).Intersect(c.img.Bounds())
	if bounds.Empty() {
		return
	}
	mask := image.NewAlpha(bounds)
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: c.face(paint), Dot: fixed.P(dot.X, dot.Y)}
	d.DrawString(text)
	threshold(mask)
	draw.DrawMask(c.img, bounds, src, image.Point{}, mask, bounds.Min, draw.Over)
}

func threshold(mask *image.Alpha) {
	for i, a := range mask.Pix {
		if a >= 0x80 {
			mask.Pix[i] = 0xFF
		} else {
			mask.Pix[i] = 0
		}
	}
}

func (c *Canvas) painter(paint Paint) raster.Painter {
	p := raster.NewRGBAPainter(c.img)
	p.SetColor(paint.Color)
	if paint.AntiAlias {
		return p
	}
	return raster.NewMonochromePainter(p)
}

func (c *Canvas) fillPath(path raster.Path, paint Paint) {
	c.rasterizer.Clear()
	c.rasterizer.AddPath(path)
	c.rasterizer.Rasterize(c.painter(paint))
}

func (c *Canvas) strokePath(path raster.Path, paint Paint, capper raster.Capper) {
	width := paint.StrokeWidth
	if width <= 0 {
		width = 1
	}
	c.rasterizer.Clear()
	raster.Stroke(c.rasterizer, path, fixedFloat(width), capper, raster.RoundJoiner)
	c.rasterizer.Rasterize(c.painter(paint))
}

func (c *Canvas) DrawLine(from, to image.Point, paint Paint) {
	if from == to {
		return
	}
	var path raster.Path
	// Pixel centers, so a one pixel stroke lands on a single row.
	path.Start(pixelCenter(float64(from.X), float64(from.Y)))
	path.Add1(pixelCenter(float64(to.X), float64(to.Y)))
	c.strokePath(path, paint, raster.ButtCapper)
}

func (c *Canvas) DrawCircle(center image.Point, radius int, paint Paint) {
	if radius <= 0 {
		return
	}
	cx, cy, r := float64(center.X), float64(center.Y), float64(radius)
	if paint.Filled {
		c.fillPath(circlePath(cx, cy, r), paint)
		return
	}
	// raster.Stroke only handles linear and quadratic segments.
	c.strokePath(ringPath(cx, cy, r), paint, raster.RoundCapper)
}

func (c *Canvas) DrawArc(center image.Point, radius int, startDeg, sweepDeg float64, paint Paint) {
	if radius <= 0 || sweepDeg == 0 {
		return
	}
	if sweepDeg >= 360 || sweepDeg <= -360 {
		c.DrawCircle(center, radius, Paint{Color: paint.Color, AntiAlias: paint.AntiAlias, StrokeWidth: paint.StrokeWidth})
		return
	}
	steps := int(math.Ceil(math.Abs(sweepDeg) / 5))
	var path raster.Path
	for i := 0; i <= steps; i++ {
		deg := startDeg + sweepDeg*float64(i)/float64(steps)
		rad := (deg - 90) * math.Pi / 180
		p := pixelCenter(float64(center.X)+float64(radius)*math.Cos(rad), float64(center.Y)+float64(radius)*math.Sin(rad))
		if i == 0 {
			path.Start(p)
		} else {
			path.Add1(p)
		}
	}
	c.strokePath(path, paint, raster.RoundCapper)
}

func (c *Canvas) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode, paint Paint) {
	if img == nil || rect.Empty() {
		return
	}
	dst := rect
	if mode == ScaleFit {
		dst = fitRect(img.Bounds(), rect)
	}
	var scaler xdraw.Scaler = xdraw.NearestNeighbor
	if paint.AntiAlias {
		scaler = xdraw.ApproxBiLinear
	}
	scaler.Scale(c.img, dst, img, img.Bounds(), xdraw.Over, nil)
}

func fitRect(src, into image.Rectangle) image.Rectangle {
	if src.Empty() {
		return image.Rectangle{}
	}
	scale := math.Min(float64(into.Dx())/float64(src.Dx()), float64(into.Dy())/float64(src.Dy()))
	w := int(float64(src.Dx()) * scale)
	h := int(float64(src.Dy()) * scale)
	minX := into.Min.X + (into.Dx()-w)/2
	minY := into.Min.Y + (into.Dy()-h)/2
	return image.Rect(minX, minY, minX+w, minY+h)
}

func circlePath(cx, cy, r float64) raster.Path {
	k := r * circleKappa
	var path raster.Path
	path.Start(pixelCenter(cx+r, cy))
	path.Add3(pixelCenter(cx+r, cy+k), pixelCenter(cx+k, cy+r), pixelCenter(cx, cy+r))
	path.Add3(pixelCenter(cx-k, cy+r), pixelCenter(cx-r, cy+k), pixelCenter(cx-r, cy))
	path.Add3(pixelCenter(cx-r, cy-k), pixelCenter(cx-k, cy-r), pixelCenter(cx, cy-r))
	path.Add3(pixelCenter(cx+k, cy-r), pixelCenter(cx+r, cy-k), pixelCenter(cx+r, cy))
	return path
}

// ringPath is a closed polyline around the circle, fine enough that the
// chords stay within a quarter pixel of the arc.
func ringPath(cx, cy, r float64) raster.Path {
	steps := max(16, int(math.Ceil(2*math.Pi*r/4)))
	var path raster.Path
	path.Start(pixelCenter(cx+r, cy))
	for i := 1; i < steps; i++ {
		rad := 2 * math.Pi * float64(i) / float64(steps)
		path.Add1(pixelCenter(cx+r*math.Cos(rad), cy+r*math.Sin(rad)))
	}
	path.Add1(pixelCenter(cx+r, cy))
	return path
}

func pixelCenter(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixedFloat(x + 0.5), Y: fixedFloat(y + 0.5)}
}

func fixedFloat(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
