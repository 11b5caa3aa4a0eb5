package quota

import "time"

// DayKey identifies a quota window: one UTC calendar day. The boundary is
// fixed server-side UTC regardless of where the user is.
type DayKey string

const dayFormat = "2006-01-02"

// Today returns the current UTC day window.
func Today() DayKey {
	return DayKey(time.Now().UTC().Format(dayFormat))
}

// DayOf returns the window containing t.
func DayOf(t time.Time) DayKey {
	return DayKey(t.UTC().Format(dayFormat))
}

// SecondsUntilRollover reports how long until the next UTC midnight, for
// Retry-After headers on quota denials.
func SecondsUntilRollover(now time.Time) int {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return int(next.Sub(now).Seconds())
}

// UsageStatus is the API view of a user's consumption against their
// ceiling. Ceiling and Remaining are -1 for unlimited tiers.
type UsageStatus struct {
	Day          string `json:"day"`
	MessagesSent int    `json:"messages_sent"`
	Ceiling      int    `json:"ceiling"`
	Remaining    int    `json:"remaining"`
}
