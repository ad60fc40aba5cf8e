// Package lockout counts admin login attempts inside a fixed window, per
// username and client IP and per username alone.
package lockout

import (
	"context"
	"strings"
	"time"
)

// Store is the counter backend. Counters expire one window after the
// attempt that created them.
type Store interface {
	// RecordAttempt increments the counter under key and returns the new
	// value. The increment is atomic so concurrent attempts get distinct
	// counts.
	RecordAttempt(ctx context.Context, key string, window time.Duration) (int, error)
	Clear(ctx context.Context, key string) error
}

// Key builds the counter key for a login attempt. Delimiters inside the
// segments are escaped so a crafted username cannot collide with another
// username/IP pair.
func Key(username, ip string) string {
	return "login:" + sanitizeSegment(strings.ToLower(username)) + ":" + sanitizeSegment(ip)
}

// UserKey builds the counter key shared by every client trying username.
func UserKey(username string) string {
	return "login-user:" + sanitizeSegment(strings.ToLower(username))
}

func sanitizeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
