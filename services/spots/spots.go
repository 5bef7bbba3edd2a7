// File: services/spots/spots.go
//
// Deterministic parking-spot occupancy helpers: overlap counting for capacity
// checks, first-free spot assignment (P1..PN), and a spot board view for the
// admin UI. Storage concerns stay with the caller.
package spots

import (
	"fmt"
	"time"

	"parkwise/models"
)

// Window is a half-open time interval: the end instant is non-inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Occupied ties a ledger record to its parsed reservation window.
type Occupied struct {
	Record models.ReservationRecord
	Window Window
}

// PeriodParser parses a reservation period string into its start and end.
type PeriodParser func(value string) (start, end time.Time, ok bool)

// FromRecords converts ledger records into occupancy entries, skipping
// records whose period cannot be parsed.
func FromRecords(records []models.ReservationRecord, parse PeriodParser) []Occupied {
	var occupied []Occupied
	for _, record := range records {
		start, end, ok := parse(record.ReservationPeriod)
		if !ok {
			continue
		}
		occupied = append(occupied, Occupied{Record: record, Window: Window{Start: start, End: end}})
	}
	return occupied
}

// CountOverlapping counts occupancy entries intersecting the window.
func CountOverlapping(w Window, occupied []Occupied) int {
	count := 0
	for _, entry := range occupied {
		if w.Overlaps(entry.Window) {
			count++
		}
	}
	return count
}

func spotID(n int) string {
	return fmt.Sprintf("P%d", n)
}

// ChooseSpotID assigns the first spot (P1..PN) free for the whole window.
// Only entries that already carry a spot assignment count as occupying one.
// ok is false when every spot is taken or totalSpots is non-positive.
func ChooseSpotID(w Window, occupied []Occupied, totalSpots int) (string, bool) {
	if totalSpots <= 0 {
		return "", false
	}

	taken := make(map[string][]Window, totalSpots)
	for _, entry := range occupied {
		id := entry.Record.SpotID
		if id == "" {
			continue
		}
		taken[id] = append(taken[id], entry.Window)
	}

	for i := 1; i <= totalSpots; i++ {
		id := spotID(i)
		free := true
		for _, window := range taken[id] {
			if w.Overlaps(window) {
				free = false
				break
			}
		}
		if free {
			return id, true
		}
	}
	return "", false
}

// BoardItem is one row of the admin spot board.
type BoardItem struct {
	SpotID       string                     `json:"spot_id"`
	Status       string                     `json:"status"` // available|booked
	BookedUntil  string                     `json:"booked_until,omitempty"`
	Reservations []models.ReservationRecord `json:"reservations,omitempty"`
}

// BuildBoard renders the occupancy of every spot within the window, in
// deterministic P1..PN order. Entries without a spot assignment are ignored.
func BuildBoard(w Window, occupied []Occupied, totalSpots int) []BoardItem {
	if totalSpots <= 0 {
		return nil
	}

	grouped := make(map[string][]Occupied, totalSpots)
	for _, entry := range occupied {
		id := entry.Record.SpotID
		if id == "" {
			continue
		}
		grouped[id] = append(grouped[id], entry)
	}

	board := make([]BoardItem, 0, totalSpots)
	for i := 1; i <= totalSpots; i++ {
		id := spotID(i)
		var overlapping []models.ReservationRecord
		var latestEnd time.Time

		for _, entry := range grouped[id] {
			if !w.Overlaps(entry.Window) {
				continue
			}
			overlapping = append(overlapping, entry.Record)
			if entry.Window.End.After(latestEnd) {
				latestEnd = entry.Window.End
			}
		}

		item := BoardItem{SpotID: id, Status: "available", Reservations: overlapping}
		if len(overlapping) > 0 {
			item.Status = "booked"
			item.BookedUntil = latestEnd.Format("2006-01-02 15:04")
		}
		board = append(board, item)
	}
	return board
}

// DefaultBoardWindow is the two-hour window the board shows when the caller
// does not pick one.
func DefaultBoardWindow(now time.Time) Window {
	start := now.Truncate(time.Minute)
	return Window{Start: start, End: start.Add(2 * time.Hour)}
}
