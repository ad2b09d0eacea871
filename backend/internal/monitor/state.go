package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SmokeThreshold is the smoke reading at or above which smoke is reported.
const SmokeThreshold = 150

// Number is a JSON number that may also arrive as a numeric string or null.
type Number struct {
	Value float64
	Valid bool
}

// NumberOf returns a valid Number.
func NumberOf(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}

		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}

		*n = NumberOf(v)

		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*n = NumberOf(v)

	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(n.Value)
}

// String formats the value in its shortest form, or "" when missing.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}

	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// DeviceSnapshot is the Owner/{deviceKey} record.
type DeviceSnapshot struct {
	Latitude    Number `json:"latitude"`
	Longitude   Number `json:"longitude"`
	Temperature Number `json:"Temperature"`
	Smoke       Number `json:"Smoke"`
	Fire        bool   `json:"Fire"`
	Arrived     bool   `json:"arrived"`
	Allowed     bool   `json:"allowed"`
	UserID      string `json:"userId,omitempty"`
	PhoneNumber string `json:"PhoneNumber,omitempty"`
	Email       string `json:"Email,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (d DeviceSnapshot) HasCoordinates() bool {
	return d.Latitude.Valid && d.Longitude.Valid
}

// LogEntry is one Logs/{id} reading.
type LogEntry struct {
	UserID      string `json:"UserID"`
	Temperature Number `json:"Temperature"`
	Smoke       Number `json:"Smoke"`
	Fire        bool   `json:"Fire"`
}

// LogSummaryEntry is one LogsCV/{id} aggregate.
type LogSummaryEntry struct {
	UserID        string `json:"UserID"`
	CombinedValue Number `json:"CombinedValue"`
}

// PinColor is the map marker color.
type PinColor string

const (
	PinRed    PinColor = "red"
	PinYellow PinColor = "yellow"
	PinGreen  PinColor = "green"
)

// pinColor: a responder on the way wins, then recent data, then idle.
func pinColor(allowed, gatheringData bool) PinColor {
	switch {
	case !allowed:
		return PinGreen
	case gatheringData:
		return PinRed
	default:
		return PinYellow
	}
}

// Region is the map window centered on the device.
type Region struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

const regionDelta = 0.1

func regionAround(d DeviceSnapshot) *Region {
	return &Region{
		Latitude:       d.Latitude.Value,
		Longitude:      d.Longitude.Value,
		LatitudeDelta:  regionDelta,
		LongitudeDelta: regionDelta,
	}
}

// Readout is the textual status panel.
type Readout struct {
	Temperature string `json:"temperature"`
	Smoke       string `json:"smoke"`
	Fire        string `json:"fire"`
}

const (
	detected    = "Detected"
	notDetected = "Not Detected"
)

func readout(d *DeviceSnapshot) Readout {
	r := Readout{Smoke: notDetected, Fire: notDetected}
	if d == nil {
		return r
	}

	r.Temperature = d.Temperature.String()

	if d.Smoke.Valid && d.Smoke.Value >= SmokeThreshold {
		r.Smoke = detected
	}

	if d.Fire {
		r.Fire = detected
	}

	return r
}

// State is everything the reducer tracks for one monitored device.
type State struct {
	UserID string

	Device        *DeviceSnapshot
	GatheringData bool
	// Generation identifies the current freshness timer.
	Generation uint64

	Allowed     bool
	Arrived     bool
	HouseOnFire bool
	Region      *Region
	PinColor    PinColor

	NotificationSent bool

	Series TimeSeries
	Bars   BarSeries
}

// NewState is the state before any update arrives.
func NewState(userID string) State {
	return State{
		UserID:        userID,
		GatheringData: true,
		Allowed:       true,
		PinColor:      PinRed,
		Series:        emptySeries(),
		Bars:          defaultBars(),
	}
}

// View is the rendered monitor state.
type View struct {
	Device        *DeviceSnapshot `json:"device"`
	GatheringData bool            `json:"gatheringData"`
	PinColor      PinColor        `json:"pinColor"`
	Allowed       bool            `json:"allowed"`
	Arrived       bool            `json:"arrived"`
	HouseOnFire   bool            `json:"houseOnFire"`
	MarkerVisible bool            `json:"markerVisible"`
	Region        *Region         `json:"initialMapRegion"`
	Readout       Readout         `json:"readout"`
	Series        TimeSeries      `json:"series"`
	Bars          BarSeries       `json:"bars"`
}

// View renders s.
func (s State) View() View {
	return View{
		Device:        s.Device,
		GatheringData: s.GatheringData,
		PinColor:      s.PinColor,
		Allowed:       s.Allowed,
		Arrived:       s.Arrived,
		HouseOnFire:   s.HouseOnFire,
		MarkerVisible: s.Device != nil && s.Device.HasCoordinates() && !s.Device.Arrived,
		Region:        s.Region,
		Readout:       readout(s.Device),
		Series:        s.Series,
		Bars:          s.Bars,
	}
}
