package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette is the color set of the face.
type Palette struct {
	Background color.NRGBA
	Primary    color.NRGBA
	Secondary  color.NRGBA
	Ambient    color.NRGBA
}

// DefaultPalette uses the Teradata orange on black.
func DefaultPalette() Palette {
	return Palette{
		Background: color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF}, // #000000
		Primary:    color.NRGBA{R: 0xF3, G: 0x74, B: 0x40, A: 0xFF}, // #f37440
		Secondary:  color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, // #ffffff
		Ambient:    color.NRGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}, // #dddddd
	}
}

var ambientBackground = color.NRGBA{A: 0xFF}

// ParseHexColor parses #rgb, #rrggbb or #rrggbbaa.
func ParseHexColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]}) + "ff"
	case 6:
		s += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func withAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = alpha
	return c
}
