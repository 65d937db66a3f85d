package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata/watchface/internal/assets"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/render/layout"
)

var (
	black = color.NRGBA{A: 0xFF}
	red   = color.NRGBA{R: 0xFF, A: 0xFF}
)

func newTestCanvas(t *testing.T) *Canvas {
	t.Helper()
	c := NewCanvas(100, 100, NewFonts(assets.PrimaryFont, assets.SecondaryFont, nopLogger{}))
	c.Fill(black)
	return c
}

func rgbaOf(c color.NRGBA) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestCanvasLine(t *testing.T) {
	c := newTestCanvas(t)
	c.DrawLine(image.Pt(0, 10), image.Pt(50, 10), Paint{Color: red, StrokeWidth: 1})
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(25, 10))
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(25, 12))
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(75, 10))
}

func TestCanvasFilledCircle(t *testing.T) {
	c := newTestCanvas(t)
	c.DrawCircle(image.Pt(50, 50), 10, Paint{Color: red, Filled: true})
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(50, 50))
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(50, 70))

	c.Fill(black)
	c.DrawCircle(image.Pt(50, 50), 10, Paint{Color: red, StrokeWidth: 2})
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(50, 50), "outline leaves the center")
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(60, 50))
}

func TestCanvasTextWithoutAntiAliasIsTwoTone(t *testing.T) {
	c := newTestCanvas(t)
	paint := Paint{Color: red, Font: layout.FontPrimary, TextSize: 40}
	c.DrawText("88", image.Pt(10, 60), paint)

	var inked int
	img := c.Image()
	for i := 0; i < len(img.Pix); i += 4 {
		px := color.RGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
		switch px {
		case rgbaOf(red):
			inked++
		case rgbaOf(black):
		default:
			t.Fatalf("intermediate pixel %v", px)
		}
	}
	assert.Positive(t, inked)
}

func TestCanvasImageFit(t *testing.T) {
	c := newTestCanvas(t)
	src := image.NewRGBA(image.Rect(0, 0, 10, 5))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}
	c.DrawImageInRect(src, image.Rect(0, 0, 40, 40), ScaleFit, Paint{})
	assert.Equal(t, uint8(0xFF), c.Image().RGBAAt(20, 20).G)
	assert.Equal(t, uint8(0), c.Image().RGBAAt(20, 2).G, "letterboxed above")
}

func TestFontsFallBackToBasicFont(t *testing.T) {
	fonts := NewFonts([]byte("not a font"), nil, nopLogger{})
	b := fonts.TextBounds(layout.FontPrimary, 30, "12")
	assert.False(t, b.Empty())
	assert.Equal(t, image.Rectangle{}, fonts.TextBounds(layout.FontPrimary, 30, ""))
}

func TestFontsMeasureWiderTextWider(t *testing.T) {
	fonts := NewFonts(assets.PrimaryFont, assets.SecondaryFont, nopLogger{})
	one := fonts.TextBounds(layout.FontPrimary, 40, "1")
	four := fonts.TextBounds(layout.FontPrimary, 40, "8888")
	assert.Greater(t, four.Dx(), one.Dx())
	assert.Negative(t, four.Min.Y, "glyphs sit above the baseline")
}

type call struct {
	op   string
	text string
}

type recordingDrawer struct {
	calls []call
}

func (r *recordingDrawer) Size() (int, int) { return 100, 100 }
func (r *recordingDrawer) Fill(color.Color) { r.calls = append(r.calls, call{op: "fill"}) }
func (r *recordingDrawer) MeasureText(text string, paint Paint) image.Rectangle {
	return image.Rect(0, -10, 8*len(text), 0)
}
func (r *recordingDrawer) DrawText(text string, dot image.Point, paint Paint) {
	r.calls = append(r.calls, call{op: "text", text: text})
}
func (r *recordingDrawer) DrawLine(from, to image.Point, paint Paint) {
	r.calls = append(r.calls, call{op: "line"})
}
func (r *recordingDrawer) DrawCircle(center image.Point, radius int, paint Paint) {
	r.calls = append(r.calls, call{op: "circle"})
}
func (r *recordingDrawer) DrawArc(center image.Point, radius int, startDeg, sweepDeg float64, paint Paint) {
	r.calls = append(r.calls, call{op: "arc"})
}
func (r *recordingDrawer) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode, paint Paint) {
	r.calls = append(r.calls, call{op: "image"})
}

func TestDrawComplicationPerType(t *testing.T) {
	rect := image.Rect(0, 0, 60, 60)
	icon := image.NewRGBA(image.Rect(0, 0, 8, 8))
	cases := []struct {
		name string
		data complication.Data
		want []call
	}{
		{"empty", complication.Empty(), nil},
		{"not configured", complication.Data{Type: complication.TypeNotConfigured}, []call{{"text", "+"}}},
		{"no permission", complication.Data{Type: complication.TypeNoPermission}, []call{{"text", "!"}}},
		{"ranged", complication.Data{Type: complication.TypeRangedValue, Value: 42, Max: 100},
			[]call{{op: "circle"}, {op: "arc"}, {"text", "42"}}},
		{"short text", complication.Data{Type: complication.TypeShortText, ShortText: "5", ShortTitle: "km"},
			[]call{{"text", "5"}, {"text", "km"}}},
		{"icon", complication.Data{Type: complication.TypeIcon, Icon: icon}, []call{{op: "image"}}},
		{"small image", complication.Data{Type: complication.TypeSmallImage, Image: icon}, []call{{op: "image"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &recordingDrawer{}
			DrawComplication(d, rect, tc.data, Paint{Color: red})
			assert.Equal(t, tc.want, d.calls)
		})
	}
}

func TestRendererPresentsToMemory(t *testing.T) {
	mem := NewMemoryPresenter()
	r := NewRenderer(mem, nopLogger{})

	var buf bytes.Buffer
	assert.ErrorIs(t, mem.WritePNG(&buf), ErrNoFrame)
	assert.Error(t, r.Draw(nil), "no surface yet")

	r.Resize(120, 80)
	require.NoError(t, r.Draw([]Command{{Kind: KindFill, Paint: Paint{Color: red}}}))
	assert.Equal(t, int64(1), mem.Frames())

	require.NoError(t, mem.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())
	assert.Equal(t, image.Pt(64, 24), r.LogoSize())
}

func TestBlitScalesToDestination(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(1, 1, color.RGBA{G: 0xFF, A: 0xFF})
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, blit(dst, src))
	assert.Equal(t, uint8(0xFF), dst.RGBAAt(3, 3).G)
	assert.Equal(t, uint8(0), dst.RGBAAt(0, 0).G)
	assert.Equal(t, uint8(0xFF), dst.RGBAAt(0, 0).A)
}

func TestCanvasOutlinedRingAndFullArc(t *testing.T) {
	c := newTestCanvas(t)
	c.DrawCircle(image.Pt(50, 50), 20, Paint{Color: red, StrokeWidth: 3, AntiAlias: true})
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(50, 50))
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(50, 70))
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(30, 50))

	c.Fill(black)
	c.DrawArc(image.Pt(50, 50), 20, 0, 360, Paint{Color: red, StrokeWidth: 3})
	assert.Equal(t, rgbaOf(red), c.Image().RGBAAt(70, 50))
	assert.Equal(t, rgbaOf(black), c.Image().RGBAAt(50, 50))
}

func TestRendererRasterizesBadgeAndRangedRing(t *testing.T) {
	f := testFrame(t)
	f.UnreadCount = 2
	f.Complications.SetData(complication.UpperID, complication.Data{Type: complication.TypeRangedValue, Value: 40, Max: 100})
	f.Complications.SetData(complication.LowerID, complication.Data{Type: complication.TypeRangedValue, Value: 100, Max: 100})

	mem := NewMemoryPresenter()
	r := NewRenderer(mem, nopLogger{})
	r.Resize(390, 390)
	require.NotPanics(t, func() { require.NoError(t, r.Draw(RenderFrame(f))) })

	f.Ambient = true
	require.NotPanics(t, func() { require.NoError(t, r.Draw(RenderFrame(f))) })
	assert.Equal(t, int64(2), mem.Frames())

	badge := f.Geometry.Notification
	px := mem.Last().RGBAAt(badge.X+badgeOuterRadius, badge.Y)
	assert.NotEqual(t, uint8(0), px.R|px.G|px.B, "badge outline is drawn")
}
