package wizard

import "voltswap/internal/models"

// Compatible reports whether at least one station battery matches the
// vehicle's battery type and is available right now. A matching type with any
// other status does not count.
func Compatible(batteryTypeID string, batteries []models.Battery) bool {
	if batteryTypeID == "" {
		return false
	}
	for _, b := range batteries {
		if b.BatteryTypeID == batteryTypeID && b.Status == models.BatteryAvailable {
			return true
		}
	}
	return false
}
