// File: services/intelligence/interface.go
package intelligence

import (
	"context"
	"time"

	chatRepo "parkwise/database/repository/chat"
	"parkwise/models"
)

// Service answers free-form facility questions and reports live parking
// status. It is the information side of the assistant; the booking engine
// consumes it through its own port.
type Service interface {
	AnswerQuestion(ctx context.Context, question string) (string, error)
	Status(ctx context.Context) (models.ParkingStatus, error)
}

// NewInfoService builds the keyword-matching info service over the given
// facility settings. The store is used to compute live availability; it may
// be the same store the booking engine writes to.
func NewInfoService(store chatRepo.Persistence, workingHours, pricing string, totalSpots int) Service {
	return &DefaultInfoService{
		Store:        store,
		WorkingHours: workingHours,
		Pricing:      pricing,
		TotalSpots:   totalSpots,
		Clock:        time.Now,
	}
}
