// File: services/booking/fields.go
package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"parkwise/models"
)

// PeriodLayout is the canonical timestamp rendering on both sides of a
// reservation period ("<start> to <end>").
const PeriodLayout = "2006-01-02 15:04"

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z' -]{1,49}$`)
	carRe    = regexp.MustCompile(`^[A-Z0-9-]{4,12}$`)
	periodRe = regexp.MustCompile(`(?i)^\s*(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2})\s+to\s+(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2})\s*$`)
)

// Structured shorthand lets a user supply several fields in one message,
// e.g. "name: Roman; car: AA 1234 BB". Unmatched fields are simply absent.
var shorthandPatterns = map[models.Field]*regexp.Regexp{
	models.FieldName:              regexp.MustCompile(`(?i)(?:^|[\s,;])name[:=]\s*([A-Za-z][A-Za-z' -]{1,49})`),
	models.FieldSurname:           regexp.MustCompile(`(?i)(?:^|[\s,;])surname[:=]\s*([A-Za-z][A-Za-z' -]{1,49})`),
	models.FieldCarNumber:         regexp.MustCompile(`(?i)(?:^|[\s,;])(?:car|plate|car_number)[:=]\s*([A-Za-z0-9 -]{4,20})`),
	models.FieldReservationPeriod: regexp.MustCompile(`(?i)(?:^|[\s,;])(?:period|reservation_period)[:=]\s*([^;]+)$`),
}

var bookingKeywords = []string{
	"book",
	"booking",
	"reserve",
	"reservation",
	"parking spot",
	"parking place",
	"бронь",
	"броню",
	"заброню",
	"забронювати",
}

// IsBookingKeywordIntent reports whether the message asks to start a booking.
func IsBookingKeywordIntent(message string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range bookingKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// ParseReservationPeriod parses "<date> <time> to <date> <time>" into its
// start and end instants. ok is false when the value does not match.
func ParseReservationPeriod(value string) (start, end time.Time, ok bool) {
	match := periodRe.FindStringSubmatch(value)
	if match == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(PeriodLayout, squashSpaces(match[1]))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(PeriodLayout, squashSpaces(match[2]))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func squashSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// ValidateField checks a raw value against the rules for the given field and
// returns a human-readable reason, or "" when the value is acceptable.
// Validation never fails with an error: bad input is a conversation event,
// not a fault.
func ValidateField(field models.Field, value string) string {
	switch field {
	case models.FieldName, models.FieldSurname:
		if !nameRe.MatchString(value) {
			return "Use only letters, spaces, apostrophe, or hyphen (2-50 chars)."
		}
	case models.FieldCarNumber:
		if !carRe.MatchString(NormalizeCarNumber(value)) {
			return "Car number must be 4-12 chars: letters, digits, or '-' only."
		}
	case models.FieldReservationPeriod:
		start, end, ok := ParseReservationPeriod(value)
		if !ok {
			return "Use format: YYYY-MM-DD HH:MM to YYYY-MM-DD HH:MM."
		}
		if !end.After(start) {
			return "Reservation end time must be after start time."
		}
	}
	return ""
}

// NormalizeCarNumber uppercases and strips spaces.
func NormalizeCarNumber(value string) string {
	return strings.ReplaceAll(strings.ToUpper(value), " ", "")
}

// NormalizeReservationPeriod re-renders a parseable period in canonical form.
// Unparseable values are returned trimmed, for the validator to reject.
func NormalizeReservationPeriod(value string) string {
	start, end, ok := ParseReservationPeriod(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return fmt.Sprintf("%s to %s", start.Format(PeriodLayout), end.Format(PeriodLayout))
}

// NormalizeField canonicalizes an accepted value for storage.
func NormalizeField(field models.Field, value string) string {
	switch field {
	case models.FieldCarNumber:
		return NormalizeCarNumber(value)
	case models.FieldReservationPeriod:
		return NormalizeReservationPeriod(value)
	default:
		return value
	}
}

// ParseStructuredDetails extracts "field: value" / "field=value" tokens from
// free-form input. Values are not validated here; that happens when applied.
func ParseStructuredDetails(text string) map[models.Field]string {
	result := make(map[models.Field]string)
	value := strings.TrimSpace(text)

	for field, pattern := range shorthandPatterns {
		if match := pattern.FindStringSubmatch(value); match != nil {
			result[field] = strings.TrimSpace(match[1])
		}
	}
	return result
}

// NextMissingField returns the first booking field, in canonical order, that
// is absent or blank in collected. ok is false when all fields are present.
func NextMissingField(collected map[models.Field]string) (models.Field, bool) {
	for _, field := range models.BookingFields {
		if strings.TrimSpace(collected[field]) == "" {
			return field, true
		}
	}
	return "", false
}
