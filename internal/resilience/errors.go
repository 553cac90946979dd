package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsTimeout reports whether err represents a timeout. Used as the
// default retry predicate: a timed-out browser navigation is worth one
// more attempt, a navigation error or detected wall is not.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Wrapped errors from the CDP layer lose their type.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out")
}
