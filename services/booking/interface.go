package booking

import (
	"context"
	"time"

	chatRepo "parkwise/database/repository/chat"
	"parkwise/models"
)

// InfoSource answers free-text questions and reports the live facility
// status. Both calls may fail; the engine degrades gracefully on either.
type InfoSource interface {
	AnswerQuestion(ctx context.Context, question string) (string, error)
	Status(ctx context.Context) (models.ParkingStatus, error)
}

// Recorder is the optional external side channel notified of approved
// reservations, independent of the primary ledger. A failure is reported to
// the user but never rolled back; the missing half is retried on a later turn.
type Recorder interface {
	RecordReservation(ctx context.Context, name, carNumber, reservationPeriod, approvalTime string) (string, error)
}

// Engine runs one conversation turn at a time. It is stateless between calls:
// everything lives in the caller-supplied prior state and the Persistence
// store, so a single Engine value serves every thread. Callers must serialize
// turns per thread id.
type Engine struct {
	Store chatRepo.Persistence
	Info  InfoSource

	// Recorder may be nil, in which case the side channel is skipped.
	Recorder Recorder

	// RestartRequiresCancel makes a booking-intent message mid-review or
	// mid-approval ask for an explicit cancel instead of silently discarding
	// the in-flight booking.
	RestartRequiresCancel bool

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
