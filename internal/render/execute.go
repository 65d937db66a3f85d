package render

import (
	"image"
	"image/color"
	"strconv"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/render/layout"
)

const (
	ringTrackAlpha  = 0x50
	ringStrokeScale = 0.08
	widgetPadding   = 4
)

// Images resolves bitmap assets referenced by draw commands.
type Images map[Asset]image.Image

// Execute runs cmds against d in order.
func Execute(d Drawer, images Images, cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case KindFill:
			d.Fill(cmd.Paint.Color)
		case KindText:
			d.DrawText(cmd.Text, cmd.At, cmd.Paint)
		case KindLine:
			d.DrawLine(cmd.At, cmd.To, cmd.Paint)
		case KindBitmap:
			d.DrawImageInRect(images[cmd.Asset], cmd.Rect, ScaleFit, cmd.Paint)
		case KindCircle:
			d.DrawCircle(cmd.At, cmd.Radius, cmd.Paint)
		case KindComplication:
			DrawComplication(d, cmd.Rect, cmd.Data, cmd.Paint)
		}
	}
}

// DrawComplication draws one widget into rect according to its data type.
func DrawComplication(d Drawer, rect image.Rectangle, data complication.Data, paint Paint) {
	if rect.Empty() {
		return
	}
	inner := layout.Inset(rect, widgetPadding)
	text := paint
	text.Font = layout.FontSecondary
	text.TextSize = float64(rect.Dy()) / 3

	switch data.Type {
	case complication.TypeRangedValue:
		drawRing(d, rect, data, paint)
		label := data.ShortText
		if label == "" {
			label = strconv.Itoa(int(data.Value))
		}
		drawCentered(d, inner, label, text)
	case complication.TypeIcon:
		d.DrawImageInRect(data.Icon, inner, ScaleFit, paint)
	case complication.TypeShortText:
		if data.ShortTitle == "" {
			drawCentered(d, inner, data.ShortText, text)
			return
		}
		top, bottom := layout.SplitHorizontal(inner, inner.Dy()*3/5)
		drawCentered(d, top, data.ShortText, text)
		title := text
		title.TextSize = text.TextSize * 0.75
		drawCentered(d, bottom, data.ShortTitle, title)
	case complication.TypeSmallImage:
		d.DrawImageInRect(data.Image, inner, ScaleFit, paint)
	case complication.TypeNotConfigured:
		drawCentered(d, inner, "+", text)
	case complication.TypeNoPermission:
		drawCentered(d, inner, "!", text)
	}
}

func drawRing(d Drawer, rect image.Rectangle, data complication.Data, paint Paint) {
	square := layout.FitSquare(rect)
	side := square.Dx()
	stroke := float64(side) * ringStrokeScale
	if stroke < 1 {
		stroke = 1
	}
	center := layout.CenterOf(square)
	radius := side/2 - int(stroke+1)/2

	track := paint
	track.StrokeWidth = stroke
	track.Filled = false
	track.Color = color.NRGBA{R: paint.Color.R, G: paint.Color.G, B: paint.Color.B, A: ringTrackAlpha}
	d.DrawCircle(center, radius, track)

	value := paint
	value.StrokeWidth = stroke
	d.DrawArc(center, radius, 0, 360*data.Fraction(), value)
}

func drawCentered(d Drawer, rect image.Rectangle, text string, paint Paint) {
	if text == "" || rect.Empty() {
		return
	}
	b := d.MeasureText(text, paint)
	dot := image.Pt(
		rect.Min.X+(rect.Dx()-b.Dx())/2-b.Min.X,
		rect.Min.Y+(rect.Dy()-b.Dy())/2-b.Min.Y,
	)
	d.DrawText(text, dot, paint)
}
