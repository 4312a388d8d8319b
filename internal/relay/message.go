package relay

import "fmt"

// BuildAlertText composes the human-readable alert sent to every
// recipient: distress preamble, a map link from the coordinates, and the
// battery summary.
func BuildAlertText(latitude, longitude, batteryLevel, batteryStatus string) string {
	return fmt.Sprintf(
		"🚨 EMERGENCY ALERT 🚨\n\n🚨I am in danger! Please help me !🚨\nhttps://www.google.com/maps?q=%s,%s\n\n🔋 Battery: %s%%\n⚡ Charging: %s",
		latitude, longitude, batteryLevel, batteryStatus,
	)
}
