// File: services/intelligence/service.go
package intelligence

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	chatRepo "parkwise/database/repository/chat"
	"parkwise/models"
	"parkwise/services/booking"
	"parkwise/services/spots"
	"parkwise/utils"

	"go.uber.org/zap"
)

// DefaultInfoService answers questions by keyword scoring against a small set
// of facility topics. Availability is computed from the live reservation
// ledger, everything else comes from configuration.
type DefaultInfoService struct {
	Store        chatRepo.Persistence
	WorkingHours string
	Pricing      string
	TotalSpots   int
	Clock        func() time.Time
}

// Sensitive-content guardrails: card numbers, SSNs, credentials. Questions
// carrying these are refused before any matching happens.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{16}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`(?i)\bpassword\b`),
}

const refusalAnswer = "I can't process sensitive personal or payment details in chat. " +
	"Please remove card numbers, IDs, or passwords and ask again."

const fallbackAnswer = "I can help with working hours, pricing, and spot availability. " +
	"Say 'book' whenever you want to reserve a parking spot."

type topic struct {
	keywords []string
	render   func(s *DefaultInfoService, ctx context.Context) string
}

var topics = []topic{
	{
		keywords: []string{"hours", "open", "close", "closing", "opening", "when", "schedule"},
		render: func(s *DefaultInfoService, ctx context.Context) string {
			return fmt.Sprintf("We are open %s.", s.WorkingHours)
		},
	},
	{
		keywords: []string{"price", "pricing", "cost", "rate", "fee", "much", "pay", "charge"},
		render: func(s *DefaultInfoService, ctx context.Context) string {
			return fmt.Sprintf("Parking costs %s.", s.Pricing)
		},
	},
	{
		keywords: []string{"available", "availability", "free", "spot", "spots", "space", "spaces", "capacity", "full"},
		render: func(s *DefaultInfoService, ctx context.Context) string {
			status, err := s.Status(ctx)
			if err != nil {
				return fmt.Sprintf("We have %d parking spots in total.", s.TotalSpots)
			}
			return fmt.Sprintf("We have %d of %d spots available right now.",
				status.AvailableSpaces, status.TotalSpots)
		},
	},
}

func containsSensitive(question string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(question) {
			return true
		}
	}
	return false
}

func (s *DefaultInfoService) AnswerQuestion(ctx context.Context, question string) (string, error) {
	if containsSensitive(question) {
		return refusalAnswer, nil
	}

	lowered := strings.ToLower(question)
	bestScore := 0
	var best *topic
	for i := range topics {
		score := 0
		for _, keyword := range topics[i].keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &topics[i]
		}
	}

	if best == nil {
		return fallbackAnswer, nil
	}
	return best.render(s, ctx), nil
}

// Status reports facility settings plus live availability: the number of
// spots not overlapped by a ledger reservation at this instant. A ledger read
// failure degrades to "all spots available" rather than failing the turn.
func (s *DefaultInfoService) Status(ctx context.Context) (models.ParkingStatus, error) {
	status := models.ParkingStatus{
		WorkingHours:    s.WorkingHours,
		Pricing:         s.Pricing,
		TotalSpots:      s.TotalSpots,
		AvailableSpaces: s.TotalSpots,
	}

	records, err := s.Store.ListReservations(ctx)
	if err != nil {
		utils.GetLogger().Warn("availability lookup failed", zap.Error(err))
		return status, nil
	}

	now := s.now()
	occupied := spots.FromRecords(records, booking.ParseReservationPeriod)
	busy := spots.CountOverlapping(spots.Window{Start: now, End: now.Add(time.Minute)}, occupied)
	if busy > status.TotalSpots {
		busy = status.TotalSpots
	}
	status.AvailableSpaces = status.TotalSpots - busy
	return status, nil
}

func (s *DefaultInfoService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
