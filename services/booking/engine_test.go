// File: services/booking/engine_test.go
package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"parkwise/models"

	chatRepo "parkwise/database/repository/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInfo struct {
	answer    string
	answerErr error
	status    models.ParkingStatus
	statusErr error
}

func (s *stubInfo) AnswerQuestion(ctx context.Context, question string) (string, error) {
	return s.answer, s.answerErr
}

func (s *stubInfo) Status(ctx context.Context) (models.ParkingStatus, error) {
	return s.status, s.statusErr
}

type stubRecorder struct {
	calls int
	err   error
}

func (s *stubRecorder) RecordReservation(ctx context.Context, name, carNumber, reservationPeriod, approvalTime string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "rec-1", nil
}

// flakyStore wraps the in-memory store with injectable failures.
type flakyStore struct {
	chatRepo.Persistence
	getApprovalErr       error
	createApprovalErr    error
	appendReservationErr error
}

func (s *flakyStore) GetApproval(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	if s.getApprovalErr != nil {
		return nil, s.getApprovalErr
	}
	return s.Persistence.GetApproval(ctx, requestID)
}

func (s *flakyStore) CreateApproval(ctx context.Context, payload map[string]string) (string, error) {
	if s.createApprovalErr != nil {
		return "", s.createApprovalErr
	}
	return s.Persistence.CreateApproval(ctx, payload)
}

func (s *flakyStore) AppendReservation(ctx context.Context, record models.ReservationRecord) (models.ReservationRecord, error) {
	if s.appendReservationErr != nil {
		return models.ReservationRecord{}, s.appendReservationErr
	}
	return s.Persistence.AppendReservation(ctx, record)
}

func defaultStatus() models.ParkingStatus {
	return models.ParkingStatus{
		WorkingHours:    "Mon-Sun 06:00-23:00",
		Pricing:         "$2/hour or $15/day",
		TotalSpots:      42,
		AvailableSpaces: 42,
	}
}

func newTestEngine() (*Engine, *chatRepo.InMemoryStore, *stubRecorder) {
	store := chatRepo.NewInMemoryStore()
	recorder := &stubRecorder{}
	engine := &Engine{
		Store:    store,
		Info:     &stubInfo{answer: "We are open daily.", status: defaultStatus()},
		Recorder: recorder,
	}
	return engine, store, recorder
}

// run feeds one message through the engine and carries the state forward.
func run(t *testing.T, e *Engine, state *models.ConversationState, message string) (models.TurnResult, *models.ConversationState) {
	t.Helper()
	result, next := e.RunTurn(context.Background(), message, state)
	return result, &next
}

const validPeriod = "2026-09-01 09:00 to 2026-09-01 18:00"

// walkToReview drives a fresh thread through the full collect phase.
func walkToReview(t *testing.T, e *Engine) *models.ConversationState {
	t.Helper()
	var state *models.ConversationState
	var result models.TurnResult

	result, state = run(t, e, state, "I want to book a parking spot")
	require.Equal(t, models.StatusCollecting, result.Status)
	require.Equal(t, models.FieldName, result.PendingField)

	result, state = run(t, e, state, "John")
	require.Equal(t, models.FieldSurname, result.PendingField)

	result, state = run(t, e, state, "Doe")
	require.Equal(t, models.FieldCarNumber, result.PendingField)

	result, state = run(t, e, state, "ab 123 cd")
	require.Equal(t, models.FieldReservationPeriod, result.PendingField)

	result, state = run(t, e, state, validPeriod)
	require.Equal(t, models.StatusReview, result.Status)
	require.Equal(t, models.ActionReviewConfirmation, result.ActionRequired)
	require.Contains(t, result.Response, "John")
	require.Contains(t, result.Response, "Doe")
	require.Contains(t, result.Response, "AB123CD")
	require.Contains(t, result.Response, validPeriod)
	return state
}

func TestEmptyMessage(t *testing.T) {
	engine, _, _ := newTestEngine()
	result, state := run(t, engine, nil, "   ")
	assert.Equal(t, "Message cannot be empty.", result.Response)
	assert.False(t, state.BookingActive)
}

func TestInfoQuestion(t *testing.T) {
	engine, _, _ := newTestEngine()
	result, state := run(t, engine, nil, "What are your working hours?")
	assert.Equal(t, "We are open daily.", result.Response)
	assert.Equal(t, models.ModeInfo, result.Mode)
	assert.False(t, state.BookingActive)
}

func TestInfoFallbackOnError(t *testing.T) {
	engine, _, _ := newTestEngine()
	engine.Info = &stubInfo{answerErr: errors.New("upstream down"), status: defaultStatus()}
	result, _ := run(t, engine, nil, "What does parking cost?")
	assert.Equal(t, msgInfoFallback, result.Response)
}

func TestHappyPathToApproved(t *testing.T) {
	engine, store, recorder := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "confirm")
	require.Equal(t, models.StatusPending, result.Status)
	require.NotEmpty(t, result.RequestID)
	require.Contains(t, result.Response, "Submitted for approval. Request id: "+result.RequestID)
	requestID := result.RequestID

	// Polling before a decision is a no-op.
	result, state = run(t, engine, state, "any news?")
	require.Equal(t, models.StatusPending, result.Status)
	require.Contains(t, result.Response, "Still pending administrator decision. Request id: "+requestID)

	result, state = run(t, engine, state, "still waiting")
	require.Equal(t, models.StatusPending, result.Status)

	_, err := store.SetApprovalDecision(context.Background(), requestID, true, "")
	require.NoError(t, err)

	result, state = run(t, engine, state, "status?")
	assert.Equal(t, "Confirmed and recorded.", result.Response)
	assert.Equal(t, models.StatusApproved, result.Status)
	assert.True(t, result.Recorded)
	assert.True(t, result.McpRecorded)
	assert.NotEmpty(t, result.DecidedAt)
	assert.Equal(t, 1, recorder.calls)

	records, err := store.ListReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "John Doe", records[0].Name)
	assert.Equal(t, "AB123CD", records[0].CarNumber)
	assert.Equal(t, validPeriod, records[0].ReservationPeriod)
	assert.Equal(t, requestID, records[0].RequestID)
	assert.Equal(t, "P1", records[0].SpotID)

	// Fully recorded: subsequent messages fall through to info mode and
	// nothing is written twice.
	result, _ = run(t, engine, state, "thanks!")
	assert.Equal(t, models.ModeInfo, result.Mode)
	assert.Equal(t, 1, recorder.calls)
	records, _ = store.ListReservations(context.Background())
	assert.Len(t, records, 1)
}

func TestDeclinedIsTerminal(t *testing.T) {
	engine, store, recorder := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "confirm")
	requestID := result.RequestID
	_, err := store.SetApprovalDecision(context.Background(), requestID, false, "lot full")
	require.NoError(t, err)

	result, state = run(t, engine, state, "status?")
	assert.Equal(t, "Declined by administrator.", result.Response)
	assert.Equal(t, models.StatusDeclined, result.Status)
	assert.NotEmpty(t, result.DecidedAt)
	assert.Equal(t, 0, recorder.calls)

	records, _ := store.ListReservations(context.Background())
	assert.Empty(t, records)

	// The declined thread answers questions again.
	result, _ = run(t, engine, state, "how much is parking?")
	assert.Equal(t, models.ModeInfo, result.Mode)
}

func TestInvalidValuesReprompt(t *testing.T) {
	engine, _, _ := newTestEngine()
	var state *models.ConversationState
	var result models.TurnResult

	result, state = run(t, engine, state, "book")
	require.Equal(t, models.FieldName, result.PendingField)

	result, state = run(t, engine, state, "1234")
	assert.Contains(t, result.Response, "Invalid name")
	assert.Equal(t, models.FieldName, result.PendingField)
	assert.Equal(t, models.FieldName, state.PendingField)

	result, state = run(t, engine, state, "John")
	result, state = run(t, engine, state, "Doe")
	require.Equal(t, models.FieldCarNumber, result.PendingField)

	result, state = run(t, engine, state, "x!")
	assert.Contains(t, result.Response, "Invalid car_number")
	assert.Equal(t, models.FieldCarNumber, state.PendingField)

	result, state = run(t, engine, state, "AB123CD")
	require.Equal(t, models.FieldReservationPeriod, result.PendingField)

	result, _ = run(t, engine, state, "tomorrow morning")
	assert.Contains(t, result.Response, "Invalid reservation_period")
	assert.Contains(t, result.Response, "YYYY-MM-DD HH:MM")
}

func TestShorthandFillsAnyOrder(t *testing.T) {
	engine, _, _ := newTestEngine()
	var state *models.ConversationState
	var result models.TurnResult

	result, state = run(t, engine, state, "I'd like to reserve a spot")
	require.Equal(t, models.FieldName, result.PendingField)

	result, state = run(t, engine, state, "surname: Doe, car: ab 123 cd")
	require.Equal(t, models.StatusCollecting, result.Status)
	assert.Equal(t, models.FieldName, result.PendingField)
	assert.Equal(t, "Doe", result.Collected[models.FieldSurname])
	assert.Equal(t, "AB123CD", result.Collected[models.FieldCarNumber])

	result, state = run(t, engine, state, "name: John")
	require.Equal(t, models.FieldReservationPeriod, result.PendingField)

	result, _ = run(t, engine, state, "period: "+validPeriod)
	assert.Equal(t, models.StatusReview, result.Status)
	assert.Contains(t, result.Response, "John")
}

func TestShorthandPeriodDoesNotRestartWizard(t *testing.T) {
	engine, _, _ := newTestEngine()
	var state *models.ConversationState

	_, state = run(t, engine, state, "book")
	_, state = run(t, engine, state, "John")
	_, state = run(t, engine, state, "Doe")
	_, state = run(t, engine, state, "AB123CD")

	// "reservation_period" contains the "reservation" keyword but must be
	// treated as field shorthand, not a restart.
	result, _ := run(t, engine, state, "reservation_period: "+validPeriod)
	assert.Equal(t, models.StatusReview, result.Status)
	assert.Equal(t, validPeriod, result.Collected[models.FieldReservationPeriod])
}

func TestCancelFromEachActiveState(t *testing.T) {
	engine, store, _ := newTestEngine()

	// From collecting.
	var state *models.ConversationState
	_, state = run(t, engine, state, "book")
	result, state := run(t, engine, state, "cancel")
	assert.Equal(t, msgCancelled, result.Response)
	assert.Equal(t, models.StatusCancelled, state.Status)
	assert.False(t, state.BookingActive)

	// From review.
	state = walkToReview(t, engine)
	result, state = run(t, engine, state, "stop")
	assert.Equal(t, models.StatusCancelled, state.Status)

	// From pending: the approval request stays behind, only the thread moves on.
	state = walkToReview(t, engine)
	confirmResult, state := run(t, engine, state, "confirm")
	result, state = run(t, engine, state, "please cancel booking")
	assert.Equal(t, msgCancelled, result.Response)
	assert.Empty(t, state.RequestID)

	pending, err := store.ListPendingApprovals(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, confirmResult.RequestID, pending[0].RequestID)
}

func TestNewBookingClearsStaleRequest(t *testing.T) {
	engine, store, _ := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "confirm")
	firstID := result.RequestID
	_, err := store.SetApprovalDecision(context.Background(), firstID, false, "")
	require.NoError(t, err)
	_, state = run(t, engine, state, "status?")

	// Declined, now start over. No identifier from the first attempt leaks.
	result, state = run(t, engine, state, "book a parking place")
	assert.Equal(t, models.StatusCollecting, result.Status)
	assert.Empty(t, state.RequestID)
	assert.Empty(t, state.Collected)
	assert.False(t, state.Recorded)
}

func TestRestartGuard(t *testing.T) {
	engine, _, _ := newTestEngine()
	engine.RestartRequiresCancel = true

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "book")
	assert.Equal(t, msgRestartGuard, result.Response)
	assert.Equal(t, models.StatusReview, state.Status)

	// Cancel unblocks the restart.
	_, state = run(t, engine, state, "cancel")
	result, _ = run(t, engine, state, "book")
	assert.Equal(t, models.FieldName, result.PendingField)

	// Mid-collect restarts are still allowed even with the guard on.
	var fresh *models.ConversationState
	_, fresh = run(t, engine, fresh, "book")
	_, fresh = run(t, engine, fresh, "John")
	result, _ = run(t, engine, fresh, "actually book again")
	assert.Equal(t, models.FieldName, result.PendingField)
}

func TestReviewEditField(t *testing.T) {
	engine, _, _ := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "edit car")
	assert.Equal(t, models.StatusCollecting, result.Status)
	assert.Equal(t, models.FieldCarNumber, result.PendingField)
	assert.Empty(t, state.Collected[models.FieldCarNumber])

	result, _ = run(t, engine, state, "XY 987 Z")
	assert.Equal(t, models.StatusReview, result.Status)
	assert.Contains(t, result.Response, "XY987Z")
}

func TestReviewUnknownEditField(t *testing.T) {
	engine, _, _ := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "edit color")
	assert.Equal(t, msgUnknownField, result.Response)
	assert.Equal(t, models.StatusReview, state.Status)
}

func TestReviewUnrecognizedInputRepeatsSummary(t *testing.T) {
	engine, _, _ := newTestEngine()
	state := walkToReview(t, engine)

	result, state := run(t, engine, state, "hmm let me think")
	assert.Equal(t, models.StatusReview, state.Status)
	assert.Contains(t, result.Response, "Please review your booking details")
}

func TestOutsideWorkingHoursSuggestsAlternatives(t *testing.T) {
	engine, _, _ := newTestEngine()
	var state *models.ConversationState

	_, state = run(t, engine, state, "book")
	_, state = run(t, engine, state, "John")
	_, state = run(t, engine, state, "Doe")
	_, state = run(t, engine, state, "AB123CD")

	result, state := run(t, engine, state, "2026-09-01 04:00 to 2026-09-01 07:00")
	assert.Equal(t, models.StatusCollecting, result.Status)
	assert.Equal(t, models.FieldReservationPeriod, state.PendingField)
	assert.Contains(t, result.Response, "outside our working hours")
	require.NotEmpty(t, result.Alternatives)
	assert.LessOrEqual(t, len(result.Alternatives), 2)
	for _, alternative := range result.Alternatives {
		within, ok := WithinWorkingHours(alternative, "Mon-Sun 06:00-23:00")
		assert.True(t, ok)
		assert.True(t, within, "alternative %q outside working hours", alternative)
	}
}

func TestCapacityConflict(t *testing.T) {
	engine, store, _ := newTestEngine()
	engine.Info = &stubInfo{answer: "ok", status: models.ParkingStatus{
		WorkingHours: "Mon-Sun 06:00-23:00",
		TotalSpots:   1,
	}}

	_, err := store.AppendReservation(context.Background(), models.ReservationRecord{
		RequestID:         "seed",
		Name:              "Taken Spot",
		CarNumber:         "ZZ999",
		ReservationPeriod: validPeriod,
		SpotID:            "P1",
	})
	require.NoError(t, err)

	var state *models.ConversationState
	_, state = run(t, engine, state, "book")
	_, state = run(t, engine, state, "John")
	_, state = run(t, engine, state, "Doe")
	_, state = run(t, engine, state, "AB123CD")

	result, _ := run(t, engine, state, "2026-09-01 10:00 to 2026-09-01 12:00")
	assert.Contains(t, result.Response, "No parking spaces are available")
	assert.Equal(t, models.StatusCollecting, result.Status)

	// A non-overlapping period sails through.
	result, _ = run(t, engine, state, "2026-09-02 10:00 to 2026-09-02 12:00")
	assert.Equal(t, models.StatusReview, result.Status)
}

func TestStatusFailureNeverBlocksPeriod(t *testing.T) {
	engine, _, _ := newTestEngine()
	engine.Info = &stubInfo{answer: "ok", statusErr: errors.New("info source down")}

	var state *models.ConversationState
	_, state = run(t, engine, state, "book")
	_, state = run(t, engine, state, "John")
	_, state = run(t, engine, state, "Doe")
	_, state = run(t, engine, state, "AB123CD")

	result, _ := run(t, engine, state, validPeriod)
	assert.Equal(t, models.StatusReview, result.Status)
}

func TestApprovalStoreFailureKeepsPending(t *testing.T) {
	engine, _, _ := newTestEngine()
	flaky := &flakyStore{Persistence: engine.Store}
	engine.Store = flaky

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "confirm")
	requestID := result.RequestID

	flaky.getApprovalErr = errors.New("store offline")
	result, state = run(t, engine, state, "status?")
	assert.Equal(t, models.StatusPending, result.Status)
	assert.Contains(t, result.Response, requestID)
	assert.NotEmpty(t, result.StatusDetail)
	assert.Equal(t, models.StatusPending, state.Status)
}

func TestSubmitFailureStaysInReview(t *testing.T) {
	engine, _, _ := newTestEngine()
	flaky := &flakyStore{Persistence: engine.Store, createApprovalErr: errors.New("store offline")}
	engine.Store = flaky

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "confirm")
	assert.Equal(t, msgSubmitFailed, result.Response)
	assert.Equal(t, models.StatusReview, state.Status)
	assert.Empty(t, state.RequestID)

	flaky.createApprovalErr = nil
	result, _ = run(t, engine, state, "confirm")
	assert.Equal(t, models.StatusPending, result.Status)
	assert.NotEmpty(t, result.RequestID)
}

func TestRecorderFailureRetriedOnce(t *testing.T) {
	engine, store, recorder := newTestEngine()
	recorder.err = errors.New("recorder unreachable")

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "confirm")
	requestID := result.RequestID
	_, err := store.SetApprovalDecision(context.Background(), requestID, true, "")
	require.NoError(t, err)

	result, state = run(t, engine, state, "status?")
	assert.Equal(t, "Confirmed and recorded.", result.Response)
	assert.True(t, result.Recorded)
	assert.False(t, result.McpRecorded)
	assert.Contains(t, result.StatusDetail, "external recording failed")
	assert.Equal(t, 1, recorder.calls)

	// The next turn retries only the missing half.
	recorder.err = nil
	result, state = run(t, engine, state, "status?")
	assert.True(t, result.McpRecorded)
	assert.Equal(t, 2, recorder.calls)

	records, _ := store.ListReservations(context.Background())
	assert.Len(t, records, 1)

	// Fully recorded now; further messages do not touch the recorder.
	_, _ = run(t, engine, state, "status?")
	assert.Equal(t, 2, recorder.calls)
}

func TestLedgerFailureRetried(t *testing.T) {
	engine, _, recorder := newTestEngine()
	flaky := &flakyStore{Persistence: engine.Store, appendReservationErr: errors.New("disk full")}
	engine.Store = flaky

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "confirm")
	_, err := flaky.Persistence.SetApprovalDecision(context.Background(), result.RequestID, true, "")
	require.NoError(t, err)

	result, state = run(t, engine, state, "status?")
	assert.False(t, result.Recorded)
	assert.True(t, result.McpRecorded)
	assert.Contains(t, result.StatusDetail, "ledger write failed")

	flaky.appendReservationErr = nil
	result, _ = run(t, engine, state, "status?")
	assert.True(t, result.Recorded)
	assert.Equal(t, 1, recorder.calls)

	records, _ := flaky.Persistence.ListReservations(context.Background())
	assert.Len(t, records, 1)
}

func TestNoRecorderConfigured(t *testing.T) {
	engine, store, _ := newTestEngine()
	engine.Recorder = nil

	state := walkToReview(t, engine)
	result, state := run(t, engine, state, "confirm")
	_, err := store.SetApprovalDecision(context.Background(), result.RequestID, true, "")
	require.NoError(t, err)

	result, state = run(t, engine, state, "status?")
	assert.True(t, result.Recorded)
	assert.False(t, result.McpRecorded)
	assert.Empty(t, result.StatusDetail)

	// No second half to wait for: the thread is done.
	result, _ = run(t, engine, state, "thanks")
	assert.Equal(t, models.ModeInfo, result.Mode)
}

func TestReviewSummaryListsFieldsInOrder(t *testing.T) {
	engine, _, _ := newTestEngine()
	state := walkToReview(t, engine)

	summary := reviewSummary(state.Collected)
	nameIdx := strings.Index(summary, "- name:")
	surnameIdx := strings.Index(summary, "- surname:")
	carIdx := strings.Index(summary, "- car_number:")
	periodIdx := strings.Index(summary, "- reservation_period:")
	assert.True(t, nameIdx >= 0 && nameIdx < surnameIdx && surnameIdx < carIdx && carIdx < periodIdx)
}
