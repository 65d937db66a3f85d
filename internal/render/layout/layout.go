package layout

import (
	"image"
	"math"
)

// Inset shrinks rect by px on every side. A rect too small to shrink
// collapses to its center.
func Inset(rect image.Rectangle, px int) image.Rectangle {
	rect = rect.Canon()
	if px <= 0 {
		return rect
	}
	if rect.Dx() <= 2*px || rect.Dy() <= 2*px {
		c := CenterOf(rect)
		return image.Rectangle{Min: c, Max: c}
	}
	return image.Rect(rect.Min.X+px, rect.Min.Y+px, rect.Max.X-px, rect.Max.Y-px)
}

// SplitHorizontal cuts rect into a top part topPx tall and the remaining
// bottom part. topPx is clamped to the rect.
func SplitHorizontal(rect image.Rectangle, topPx int) (top, bottom image.Rectangle) {
	rect = rect.Canon()
	cut := rect.Min.Y + clamp(topPx, 0, rect.Dy())
	top, bottom = rect, rect
	top.Max.Y = cut
	bottom.Min.Y = cut
	return top, bottom
}

// CenterOf is the integer midpoint of rect.
func CenterOf(rect image.Rectangle) image.Point {
	return image.Pt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
}

// FitSquare is the largest square centered in rect.
func FitSquare(rect image.Rectangle) image.Rectangle {
	rect = rect.Canon()
	side := min(rect.Dx(), rect.Dy())
	c := CenterOf(rect)
	minPt := c.Sub(image.Pt(side/2, side/2))
	return image.Rectangle{Min: minPt, Max: minPt.Add(image.Pt(side, side))}
}

// centeredIn is the left edge that centers something w wide in a span
// total wide.
func centeredIn(total, w int) int { return (total - w) / 2 }

// inscribed is the half-chord of a circle with the given radius at
// distance half from its center, or 0 outside the circle.
func inscribed(radius, half int) int {
	v := float64(radius)*float64(radius) - float64(half)*float64(half)
	if v <= 0 {
		return 0
	}
	return int(math.Sqrt(v))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
