package scheduling

import "time"

// SlotsForDate generates the candidate start times for a single date
// under the policy: chronologically ordered, aligned to the policy
// granularity from each window's opening time, with the full duration
// fitting inside the window. Pure function of its inputs.
func SlotsForDate(p Policy, date time.Time, duration time.Duration) []time.Time {
	if duration <= 0 || !p.Allows(date.Weekday()) {
		return nil
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	step := p.granularity()

	var slots []time.Time
	for _, w := range p.sortedWindows() {
		for offset := w.Open; offset+duration <= w.Close; offset += step {
			slots = append(slots, midnight.Add(offset))
		}
	}
	return slots
}

// SlotsForRange generates slots for each date in [from, from+days),
// in chronological order. Days the policy disallows contribute nothing.
func SlotsForRange(p Policy, from time.Time, days int, duration time.Duration) []time.Time {
	var slots []time.Time
	for i := 0; i < days; i++ {
		slots = append(slots, SlotsForDate(p, from.AddDate(0, 0, i), duration)...)
	}
	return slots
}
