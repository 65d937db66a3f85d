package provider

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/teradata/watchface/internal/complication"
)

const (
	DateProviderID    = "day-of-month"
	PairingProviderID = "companion-pairing"

	defaultPowerSupplyRoot = "/sys/class/power_supply"
	pairingQRSize          = 128
)

// ErrNoBattery is returned when no battery is present.
var ErrNoBattery = errors.New("no battery found")

// Battery reports the charge of the first battery under the power supply
// class directory as a percentage.
type Battery struct {
	Root string
}

func NewBattery() *Battery { return &Battery{Root: defaultPowerSupplyRoot} }

func (b *Battery) Info() Info {
	return Info{ID: complication.BatteryProvider, Name: "Watch battery", Types: []complication.Type{complication.TypeRangedValue, complication.TypeShortText}}
}

func (b *Battery) Fetch(ctx context.Context, slot complication.Slot) (complication.Data, error) {
	level, err := b.level()
	if err != nil {
		return complication.Data{}, err
	}
	text := strconv.Itoa(level) + "%"
	if !slot.Supports(complication.TypeRangedValue) {
		return complication.Data{Type: complication.TypeShortText, ShortText: text, ShortTitle: "BATT"}, nil
	}
	return complication.Data{
		Type:      complication.TypeRangedValue,
		Value:     float64(level),
		Min:       0,
		Max:       100,
		ShortText: text,
	}, nil
}

func (b *Battery) level() (int, error) {
	entries, err := os.ReadDir(b.Root)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", b.Root, err)
	}
	for _, entry := range entries {
		dir := filepath.Join(b.Root, entry.Name())
		kind, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(kind)) != "Battery" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			return 0, fmt.Errorf("read capacity of %s: %w", entry.Name(), err)
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return 0, fmt.Errorf("parse capacity of %s: %w", entry.Name(), err)
		}
		if level < 0 {
			level = 0
		}
		if level > 100 {
			level = 100
		}
		return level, nil
	}
	return 0, ErrNoBattery
}

// Date shows the day of the month with the weekday as its title.
type Date struct {
	Now      func() time.Time
	Location *time.Location
}

func NewDate() *Date { return &Date{Now: time.Now} }

func (d *Date) Info() Info {
	return Info{ID: DateProviderID, Name: "Day of month", Types: []complication.Type{complication.TypeShortText}}
}

func (d *Date) Fetch(ctx context.Context, slot complication.Slot) (complication.Data, error) {
	now := d.Now()
	if d.Location != nil {
		now = now.In(d.Location)
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return complication.Data{
		Type:       complication.TypeShortText,
		ShortText:  strconv.Itoa(now.Day()),
		ShortTitle: strings.ToUpper(now.Format("Mon")),
		Window:     &complication.TimeWindow{End: midnight},
	}, nil
}

// Pairing shows a QR code that opens the companion settings page with a
// one-time token. Tapping it rotates the token. It needs permission because
// the code grants access to the settings API.
type Pairing struct {
	URL string

	mu    sync.Mutex
	token string
}

func NewPairing(url string) *Pairing {
	return &Pairing{URL: url, token: uuid.NewString()}
}

func (p *Pairing) Info() Info {
	return Info{ID: PairingProviderID, Name: "Companion pairing", Types: []complication.Type{complication.TypeSmallImage}, NeedsPermission: true}
}

// Token is the current pairing token.
func (p *Pairing) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Rotate replaces the token, invalidating the code currently shown.
func (p *Pairing) Rotate() error {
	p.mu.Lock()
	p.token = uuid.NewString()
	p.mu.Unlock()
	return nil
}

// Payload is the text encoded into the QR code.
func (p *Pairing) Payload() string {
	return p.URL + "?token=" + p.Token()
}

func (p *Pairing) Fetch(ctx context.Context, slot complication.Slot) (complication.Data, error) {
	if p.URL == "" {
		return complication.Data{Type: complication.TypeEmpty}, nil
	}
	code, err := qrcode.New(p.Payload(), qrcode.Medium)
	if err != nil {
		return complication.Data{}, fmt.Errorf("encode pairing code: %w", err)
	}
	// Light modules on a dark face.
	code.ForegroundColor = color.White
	code.BackgroundColor = color.Black
	code.DisableBorder = true
	return complication.Data{
		Type:      complication.TypeSmallImage,
		Image:     code.Image(pairingQRSize),
		TapAction: complication.ActionFunc(p.Rotate),
	}, nil
}
