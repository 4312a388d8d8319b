// Package capability abstracts host facilities the alert pipeline depends
// on but cannot rely on: battery telemetry and a location fix. Every
// capability has a declared sentinel fallback so the pipeline degrades
// instead of aborting when a facility is unavailable.
package capability

// ChargingState reports whether the host battery is charging.
type ChargingState string

const (
	Charging        ChargingState = "Charging"
	NotCharging     ChargingState = "Not Charging"
	ChargingUnknown ChargingState = "Unknown"
)

// Sentinel values substituted when a capability fails.
const (
	// SentinelBatteryLevel is reported when no battery reading is available.
	SentinelBatteryLevel = 100
	// SentinelCoordinate is reported when no location fix is available.
	SentinelCoordinate = "0.0"
)
