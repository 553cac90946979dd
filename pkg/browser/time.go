package browser

import (
	"math"
	"time"
)

// timeFromEpoch converts a fractional unix timestamp (the cookie
// expiry format used by both CDP and Playwright storage state files)
// into a time.Time.
func timeFromEpoch(epoch float64) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
