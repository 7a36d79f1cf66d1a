package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultGranularity is the slot step used when a policy does not
// specify one.
const DefaultGranularity = 30 * time.Minute

// Window is a daily opening interval expressed as offsets from local
// midnight. Close is exclusive: a slot must end at or before it.
type Window struct {
	Open  time.Duration
	Close time.Duration
}

// Policy is a named business-hours configuration: allowed weekdays,
// opening windows and slot granularity. Policies are defined in config
// and consumed by the slot generator; nothing is hardcoded per surface.
type Policy struct {
	Name        string
	Weekdays    []time.Weekday
	Windows     []Window
	Granularity time.Duration
}

// Allows reports whether the policy admits bookings on the given weekday.
func (p Policy) Allows(day time.Weekday) bool {
	for _, d := range p.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func (p Policy) granularity() time.Duration {
	if p.Granularity > 0 {
		return p.Granularity
	}
	return DefaultGranularity
}

// ParseWindow parses an "HH:MM-HH:MM" opening range.
func ParseWindow(s string) (Window, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid window %q, want HH:MM-HH:MM", s)
	}
	open, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	close, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if close <= open {
		return Window{}, fmt.Errorf("invalid window %q: close must be after open", s)
	}
	return Window{Open: open, Close: close}, nil
}

func parseClock(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// ParseWeekday maps config day names onto time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func (p Policy) sortedWindows() []Window {
	windows := make([]Window, len(p.Windows))
	copy(windows, p.Windows)
	sort.Slice(windows, func(i, j int) bool { return windows[i].Open < windows[j].Open })
	return windows
}

// OfficeHours is the default policy for the REST surface:
// 09:00-18:00, Monday through Friday.
func OfficeHours() Policy {
	return Policy{
		Name:     "office",
		Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Windows:  []Window{{Open: 9 * time.Hour, Close: 18 * time.Hour}},
	}
}

// ExtendedHours is the default policy for the voice-agent surface:
// 10:00-22:00, Monday through Saturday.
func ExtendedHours() Policy {
	return Policy{
		Name:     "extended",
		Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		Windows:  []Window{{Open: 10 * time.Hour, Close: 22 * time.Hour}},
	}
}
