package models

import "time"

// SessionWindow is how long a session keeps routing affinity after the last
// message. Sessions older than this are ignored by routing but retained in
// the store.
const SessionWindow = 24 * time.Hour

// Session is a time-bounded affinity between one customer and one tenant.
// It is created or refreshed on every successfully routed message.
type Session struct {
	CustomerID    string    `json:"customer_id"`
	TenantID      string    `json:"tenant_id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// IsActive reports whether the session still carries routing affinity at the
// given time.
func (s *Session) IsActive(now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = SessionWindow
	}
	return now.Sub(s.LastMessageAt) <= window
}
