// File: services/booking/conflict.go
package booking

import (
	"fmt"
	"regexp"
	"time"
)

var hoursWindowRe = regexp.MustCompile(`(\d{2}:\d{2})\s*-\s*(\d{2}:\d{2})`)

// ParseWorkingHoursWindow extracts the daily opening window from a free-text
// working-hours description such as "Mon-Sun 06:00-23:00".
func ParseWorkingHoursWindow(workingHours string) (open, close time.Time, ok bool) {
	match := hoursWindowRe.FindStringSubmatch(workingHours)
	if match == nil {
		return time.Time{}, time.Time{}, false
	}
	open, err := time.Parse("15:04", match[1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	close, err = time.Parse("15:04", match[2])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return open, close, true
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WithinWorkingHours reports whether both ends of the period fall inside the
// daily opening window. ok is false when either input is unparseable; callers
// must treat that as "cannot evaluate" and never block on it.
func WithinWorkingHours(period, workingHours string) (within, ok bool) {
	start, end, periodOK := ParseReservationPeriod(period)
	open, close, hoursOK := ParseWorkingHoursWindow(workingHours)
	if !periodOK || !hoursOK {
		return false, false
	}
	return minutesOfDay(start) >= minutesOfDay(open) && minutesOfDay(end) <= minutesOfDay(close), true
}

func atTimeOfDay(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
}

// SuggestAlternatives proposes up to two periods of the same duration inside
// the opening window: the same day clipped to the window (starting no earlier
// than the original start), and the next day's equivalent window. Candidates
// with non-positive duration after clipping are discarded.
func SuggestAlternatives(period, workingHours string) []string {
	start, end, periodOK := ParseReservationPeriod(period)
	open, close, hoursOK := ParseWorkingHoursWindow(workingHours)
	if !periodOK || !hoursOK {
		return nil
	}

	duration := end.Sub(start)
	if duration <= 0 {
		duration = time.Hour
	}

	sameDayOpen := atTimeOfDay(start, open)
	sameDayClose := atTimeOfDay(start, close)

	var candidates [][2]time.Time

	proposedStart := start
	if proposedStart.Before(sameDayOpen) {
		proposedStart = sameDayOpen
	}
	proposedEnd := proposedStart.Add(duration)
	if !proposedEnd.After(sameDayClose) {
		candidates = append(candidates, [2]time.Time{proposedStart, proposedEnd})
	}

	nextDayStart := atTimeOfDay(start.AddDate(0, 0, 1), open)
	nextDayEnd := nextDayStart.Add(duration)
	nextDayClose := atTimeOfDay(nextDayStart, close)
	if nextDayEnd.After(nextDayClose) {
		nextDayEnd = nextDayClose
	}
	if nextDayEnd.After(nextDayStart) {
		candidates = append(candidates, [2]time.Time{nextDayStart, nextDayEnd})
	}

	var rendered []string
	for _, candidate := range candidates {
		normalized := fmt.Sprintf("%s to %s",
			candidate[0].Format(PeriodLayout), candidate[1].Format(PeriodLayout))
		duplicate := false
		for _, existing := range rendered {
			if existing == normalized {
				duplicate = true
				break
			}
		}
		if !duplicate {
			rendered = append(rendered, normalized)
		}
	}

	if len(rendered) > 2 {
		rendered = rendered[:2]
	}
	return rendered
}
