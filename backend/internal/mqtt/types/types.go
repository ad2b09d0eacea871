package types

// Telemetry is a sensor reading published by a device.
type Telemetry struct {
	// Temperature in degrees Celsius
	Temperature float64 `json:"temperature"`
	// Smoke is the raw smoke sensor value
	Smoke float64 `json:"smoke"`
	// Fire is the flame sensor state
	Fire bool `json:"fire"`
	// Latitude and Longitude are sent by devices with GPS
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Summary is an aggregated value for one reporting window.
type Summary struct {
	// CombinedValue is the device's combined sensor index
	CombinedValue float64 `json:"combinedValue"`
}
