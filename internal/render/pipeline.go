package render

import (
	"image"
	"time"

	"github.com/teradata/watchface/internal/clock"
	"github.com/teradata/watchface/internal/complication"
	"github.com/teradata/watchface/internal/render/layout"
	"github.com/teradata/watchface/internal/state"
)

const (
	mutedAlpha       = 100
	badgeOuterRadius = 8
	badgeInnerRadius = 4
	badgeStrokeWidth = 2
)

// Boxes are the laid-out positions a frame is drawn with.
type Boxes struct {
	Hour   layout.Box
	Minute layout.Box
	Second layout.Box
	Date   layout.Box
	Logo   layout.Box
	Slots  map[int]layout.Box
}

// Frame is everything a frame depends on.
type Frame struct {
	Now           time.Time
	Display       state.DisplayState
	Ambient       bool
	Drift         image.Point
	Text          clock.Text
	Geometry      layout.Geometry
	Boxes         Boxes
	Complications *complication.Cache
	UnreadCount   int
	Muted         bool
	Palette       Palette
}

type paints struct {
	primary, secondary, tertiary, badge Paint
}

// antiAlias is off for every ambient frame.
func antiAlias(f Frame) bool {
	return !f.Ambient
}

func framePaints(f Frame) paints {
	aa := antiAlias(f)
	p := paints{
		primary:   Paint{Color: f.Palette.Primary, AntiAlias: aa, StrokeWidth: layout.StrokeWidth, Font: layout.FontPrimary, TextSize: f.Geometry.PrimaryTextSize},
		secondary: Paint{Color: f.Palette.Secondary, AntiAlias: aa, StrokeWidth: layout.StrokeWidth, Font: layout.FontSecondary, TextSize: f.Geometry.SecondaryTextSize},
		tertiary:  Paint{Color: f.Palette.Primary, AntiAlias: aa, StrokeWidth: layout.StrokeWidth, Font: layout.FontSecondary, TextSize: f.Geometry.SecondaryTextSize},
		badge:     Paint{Color: f.Palette.Secondary, AntiAlias: aa, StrokeWidth: badgeStrokeWidth},
	}
	if f.Muted {
		p.primary.Color = withAlpha(p.primary.Color, mutedAlpha)
		p.secondary.Color = withAlpha(p.secondary.Color, mutedAlpha)
	}
	if f.Ambient {
		for _, paint := range []*Paint{&p.primary, &p.secondary, &p.tertiary, &p.badge} {
			paint.Color = withAlpha(f.Palette.Ambient, paint.Color.A)
		}
	}
	return p
}

// RenderFrame turns a frame description into an ordered list of draw
// commands. It keeps no state between calls.
func RenderFrame(f Frame) []Command {
	p := framePaints(f)
	g := f.Geometry
	d := f.Drift
	cmds := make([]Command, 0, 12)

	background := f.Palette.Background
	if f.Ambient {
		background = ambientBackground
	}
	cmds = append(cmds, Command{Kind: KindFill, Paint: Paint{Color: background}})

	// Time
	cmds = append(cmds,
		Command{Kind: KindText, Paint: p.primary, Text: f.Text.Hours, At: f.Boxes.Hour.Dot.Add(d)},
		Command{Kind: KindText, Paint: p.primary, Text: f.Text.Minutes, At: f.Boxes.Minute.Dot.Add(d)},
	)
	if f.Display.ShowSeconds && !f.Ambient {
		cmds = append(cmds, Command{Kind: KindText, Paint: p.tertiary, Text: f.Text.Seconds, At: f.Boxes.Second.Dot.Add(d)})
	}

	cmds = append(cmds, Command{
		Kind:  KindLine,
		Paint: p.secondary,
		At:    image.Pt(0, g.Midline).Add(d),
		To:    image.Pt(g.Width, g.Midline).Add(d),
	})

	// Logo / date
	logo := AssetLogo
	if f.Ambient {
		logo = AssetLogoAmbient
	}
	cmds = append(cmds, Command{Kind: KindBitmap, Paint: Paint{AntiAlias: antiAlias(f)}, Asset: logo, Rect: f.Boxes.Logo.Rect.Add(d)})
	if f.Display.ShowDate || !f.Ambient {
		cmds = append(cmds, Command{Kind: KindText, Paint: p.secondary, Text: f.Text.Date, At: f.Boxes.Date.Dot.Add(d)})
	}

	if f.Display.ShowNotifications && f.UnreadCount > 0 {
		center := g.Notification.Add(d)
		cmds = append(cmds, Command{Kind: KindCircle, Paint: p.badge, At: center, Radius: badgeOuterRadius})
		if !f.Ambient {
			inner := p.primary
			inner.Filled = true
			cmds = append(cmds, Command{Kind: KindCircle, Paint: inner, At: center, Radius: badgeInnerRadius})
		}
	}

	if f.Ambient || f.Complications == nil {
		return cmds
	}

	for _, slot := range f.Complications.Directory().Slots() {
		if !slot.IsWidget() {
			continue
		}
		box, ok := f.Boxes.Slots[slot.ID]
		if !ok || box.Rect.Empty() {
			continue
		}
		cmds = append(cmds, Command{
			Kind:  KindComplication,
			Paint: p.secondary,
			Slot:  slot.ID,
			Rect:  box.Rect.Add(d),
			Data:  f.Complications.Data(slot.ID),
		})
	}

	if f.Display.BatteryStatus {
		if battery, ok := f.Complications.Directory().ByRole(complication.RoleBattery); ok && f.Complications.Has(battery.ID) {
			data := f.Complications.Data(battery.ID)
			if data.Type == complication.TypeRangedValue && data.IsActive(f.Now) {
				end := int(float64(g.Width) * data.Fraction())
				cmds = append(cmds, Command{
					Kind:  KindLine,
					Paint: p.primary,
					At:    image.Pt(0, g.Midline).Add(d),
					To:    image.Pt(end, g.Midline).Add(d),
				})
			}
		}
	}
	return cmds
}
