package services

import "time"

// IsInactive reports whether more than threshold has passed since
// lastActivity. Both values are compared as absolute instants.
func IsInactive(now, lastActivity time.Time, threshold time.Duration) bool {
	return now.Sub(lastActivity) > threshold
}
