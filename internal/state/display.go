package state

import "github.com/teradata/watchface/internal/prefs"

// Preference keys shared with the settings surface.
const (
	KeyShowDate          = "always_show_date"
	KeyMilitaryTime      = "military_time"
	KeyAmbientDrift      = "ambient_drift"
	KeyShowSeconds       = "show_seconds"
	KeyBatteryStatus     = "show_battery_status"
	KeyShowNotifications = "saved_unread_notifications"
)

// DisplayState is the set of user toggles the face is drawn with.
type DisplayState struct {
	ShowDate          bool `json:"showDate"`
	MilitaryTime      bool `json:"militaryTime"`
	AmbientDrift      bool `json:"ambientDrift"`
	ShowSeconds       bool `json:"showSeconds"`
	BatteryStatus     bool `json:"batteryStatus"`
	ShowNotifications bool `json:"showNotifications"`
}

// Defaults is what an empty preference store yields.
func Defaults() DisplayState {
	return DisplayState{
		ShowDate:          false,
		MilitaryTime:      true,
		AmbientDrift:      true,
		ShowSeconds:       false,
		BatteryStatus:     true,
		ShowNotifications: true,
	}
}

// Reload reads all six flags from one consistent snapshot of store.
// A nil store yields the defaults.
func Reload(store prefs.Store) DisplayState {
	if store == nil {
		return Defaults()
	}
	return FromValues(store.Snapshot())
}

func FromValues(values prefs.Reader) DisplayState {
	def := Defaults()
	return DisplayState{
		ShowDate:          values.Bool(KeyShowDate, def.ShowDate),
		MilitaryTime:      values.Bool(KeyMilitaryTime, def.MilitaryTime),
		AmbientDrift:      values.Bool(KeyAmbientDrift, def.AmbientDrift),
		ShowSeconds:       values.Bool(KeyShowSeconds, def.ShowSeconds),
		BatteryStatus:     values.Bool(KeyBatteryStatus, def.BatteryStatus),
		ShowNotifications: values.Bool(KeyShowNotifications, def.ShowNotifications),
	}
}

// Save stages every flag into store and commits.
func Save(store prefs.Store, display DisplayState) error {
	store.SetBool(KeyShowDate, display.ShowDate)
	store.SetBool(KeyMilitaryTime, display.MilitaryTime)
	store.SetBool(KeyAmbientDrift, display.AmbientDrift)
	store.SetBool(KeyShowSeconds, display.ShowSeconds)
	store.SetBool(KeyBatteryStatus, display.BatteryStatus)
	store.SetBool(KeyShowNotifications, display.ShowNotifications)
	return store.Commit()
}
