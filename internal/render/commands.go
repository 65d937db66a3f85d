package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/render/layout"
)

// Kind tags a draw command.
type Kind int

const (
	KindFill Kind = iota
	KindText
	KindLine
	KindBitmap
	KindCircle
	KindComplication
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindText:
		return "text"
	case KindLine:
		return "line"
	case KindBitmap:
		return "bitmap"
	case KindCircle:
		return "circle"
	case KindComplication:
		return "complication"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Asset names a bitmap the drawer resolves.
type Asset int

const (
	AssetLogo Asset = iota
	AssetLogoAmbient
)

// Paint describes how a primitive is drawn.
type Paint struct {
	Color       color.NRGBA
	AntiAlias   bool
	StrokeWidth float64
	Filled      bool
	Font        layout.Font
	TextSize    float64
}

// Command is one draw primitive. Which fields are used depends on Kind:
//
//	KindFill:         Paint.Color
//	KindText:         Text drawn from At (baseline-left)
//	KindLine:         At -> To
//	KindBitmap:       Asset into Rect
//	KindCircle:       center At, Radius, Paint.Filled
//	KindComplication: Slot, Data into Rect
type Command struct {
	Kind   Kind
	Paint  Paint
	Text   string
	At     image.Point
	To     image.Point
	Radius int
	Rect   image.Rectangle
	Asset  Asset
	Slot   int
	Data   complication.Data
}
