package scheduling

import "time"

// FormatSlot renders a start time for end users and voice agents,
// e.g. "Monday, February 17 at 2:00 PM".
func FormatSlot(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}

// FormatSlotISO renders the machine-readable RFC3339 timestamp.
func FormatSlotISO(t time.Time) string {
	return t.Format(time.RFC3339)
}
