// Package clock turns wall-clock time into the strings drawn on the face and
// computes tick alignment.
package clock

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Text holds the strings of one frame.
type Text struct {
	Hours   string
	Minutes string
	Seconds string
	Date    string
}

// Formatter renders time strings for a fixed locale. The locale is bound at
// construction; only the time zone can change afterwards.
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	location *time.Location
}

// NewFormatter builds a formatter for locale (BCP 47, e.g. "en-US").
// An unparsable locale falls back to English; a nil location to time.Local.
func NewFormatter(locale string, location *time.Location) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	if location == nil {
		location = time.Local
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag), location: location}
}

func (f *Formatter) Language() language.Tag { return f.tag }

func (f *Formatter) Location() *time.Location { return f.location }

func (f *Formatter) SetLocation(location *time.Location) {
	if location != nil {
		f.location = location
	}
}

// Format returns the hour, minute, second and date strings for now.
// In 12-hour mode hours are not zero padded and midnight/noon read "12".
func (f *Formatter) Format(now time.Time, military bool) Text {
	local := now.In(f.location)

	var hours string
	if military {
		hours = f.printer.Sprintf("%02d", local.Hour())
	} else {
		hour := local.Hour() % 12
		if hour == 0 {
			hour = 12
		}
		hours = f.printer.Sprintf("%d", hour)
	}

	return Text{
		Hours:   hours,
		Minutes: f.printer.Sprintf("%02d", local.Minute()),
		Seconds: f.printer.Sprintf("%02d", local.Second()),
		Date:    local.Format("Mon") + " " + f.printer.Sprintf("%d", local.Day()) + " ",
	}
}
