// File: services/booking/engine.go
package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"parkwise/models"
	"parkwise/services/spots"
	"parkwise/utils"

	"go.uber.org/zap"
)

var fieldPrompts = map[models.Field]string{
	models.FieldName:              "Please provide your name.",
	models.FieldSurname:           "Please provide your surname.",
	models.FieldCarNumber:         "What is your car number?",
	models.FieldReservationPeriod: "What reservation period would you like (e.g., 2026-02-20 09:00 to 2026-02-20 18:00)?",
}

const (
	msgEmpty         = "Message cannot be empty."
	msgCancelled     = "Booking cancelled. Let me know if you need anything else."
	msgApproved      = "Confirmed and recorded."
	msgDeclined      = "Declined by administrator."
	msgInfoFallback  = "Sorry, I could not answer that right now. Please try again later."
	msgSubmitFailed  = "Could not submit your booking for approval right now. Please reply 'confirm' to try again."
	msgRestartGuard  = "A booking is already in progress. Reply 'cancel' first if you want to start over."
	msgUnknownField  = "I don't recognize that field. You can edit: name, surname, car_number, reservation_period."
	reviewFooterText = "Reply 'confirm' to submit for approval, 'edit <field>' to change a value, or 'cancel' to abort."
)

var (
	confirmRe = regexp.MustCompile(`(?i)^(confirm|yes|y|ok|submit)[.!]?$`)
	editRe    = regexp.MustCompile(`(?i)^edit\s+([A-Za-z_ ]+)$`)
)

var cancelWords = map[string]struct{}{
	"cancel": {},
	"stop":   {},
	"abort":  {},
	"quit":   {},
}

func isCancelCommand(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if _, ok := cancelWords[lowered]; ok {
		return true
	}
	return strings.Contains(lowered, "cancel booking")
}

var fieldAliases = map[string]models.Field{
	"name":               models.FieldName,
	"surname":            models.FieldSurname,
	"car":                models.FieldCarNumber,
	"plate":              models.FieldCarNumber,
	"car number":         models.FieldCarNumber,
	"car_number":         models.FieldCarNumber,
	"period":             models.FieldReservationPeriod,
	"reservation period": models.FieldReservationPeriod,
	"reservation_period": models.FieldReservationPeriod,
}

func resolveFieldAlias(raw string) (models.Field, bool) {
	field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(raw))]
	return field, ok
}

// RunTurn processes one user message against the prior thread state and
// returns the response payload plus the state to persist. It never returns an
// error: validation problems re-prompt, external failures become statusDetail
// annotations or fallback responses.
func (e *Engine) RunTurn(ctx context.Context, message string, prior *models.ConversationState) (models.TurnResult, models.ConversationState) {
	current := models.DefaultConversationState()
	if prior != nil {
		current = *prior
		if current.Collected == nil {
			current.Collected = map[models.Field]string{}
		}
		if current.Mode == "" {
			current.Mode = models.ModeInfo
		}
		if current.Status == "" {
			current.Status = models.StatusCollecting
		}
	}

	text := strings.TrimSpace(message)
	if text == "" {
		return models.TurnResult{Response: msgEmpty, Mode: current.Mode, Status: current.Status}, current
	}

	// An explicit cancel beats every other interpretation of the message
	// while a booking is in flight.
	if current.BookingActive && isCancelCommand(text) {
		next := models.DefaultConversationState()
		next.Status = models.StatusCancelled
		return models.TurnResult{
			Response:       msgCancelled,
			Mode:           models.ModeInfo,
			Status:         models.StatusCancelled,
			ActionRequired: models.ActionNone,
		}, next
	}

	parsed := ParseStructuredDetails(text)

	// Booking keywords (re)start the wizard, unless the message is really a
	// structured field payload ("reservation_period: ..." names the field,
	// not an intent) or the restart guard is holding an in-flight booking.
	if IsBookingKeywordIntent(text) && len(parsed) == 0 {
		if e.RestartRequiresCancel && current.BookingActive &&
			(current.Status == models.StatusReview || current.Status == models.StatusPending) {
			return models.TurnResult{
				Response:       msgRestartGuard,
				Mode:           current.Mode,
				Status:         current.Status,
				RequestID:      current.RequestID,
				ActionRequired: actionFor(current.Status),
			}, current
		}
		return e.startWizard()
	}

	if current.RequestID != "" &&
		(current.Status == models.StatusPending ||
			(current.Status == models.StatusApproved && e.awaitingSideEffects(current))) {
		return e.pollApproval(ctx, current)
	}

	if current.BookingActive && current.Status == models.StatusReview {
		return e.handleReview(ctx, text, parsed, current)
	}

	if current.BookingActive && current.PendingField != "" {
		return e.collectField(ctx, text, parsed, current)
	}

	return e.answerInfo(ctx, text)
}

func actionFor(status models.Status) models.ActionRequired {
	switch status {
	case models.StatusCollecting:
		return models.ActionInput
	case models.StatusReview:
		return models.ActionReviewConfirmation
	case models.StatusPending:
		return models.ActionAwaitAdminDecision
	default:
		return models.ActionNone
	}
}

// startWizard resets every booking-related field so no identifier from a
// previous attempt can leak into the new one.
func (e *Engine) startWizard() (models.TurnResult, models.ConversationState) {
	next := models.ConversationState{
		Mode:          models.ModeBooking,
		BookingActive: true,
		PendingField:  models.FieldName,
		Collected:     map[models.Field]string{},
		Status:        models.StatusCollecting,
	}
	return models.TurnResult{
		Response:       fieldPrompts[models.FieldName],
		Mode:           models.ModeBooking,
		Status:         models.StatusCollecting,
		PendingField:   models.FieldName,
		ActionRequired: models.ActionInput,
	}, next
}

// awaitingSideEffects reports whether the approved transition still has work
// to retry: the ledger append and, when a recorder is wired, the external
// record call are guarded independently.
func (e *Engine) awaitingSideEffects(state models.ConversationState) bool {
	if !state.Recorded {
		return true
	}
	return e.Recorder != nil && !state.McpRecorded
}

func (e *Engine) pollApproval(ctx context.Context, current models.ConversationState) (models.TurnResult, models.ConversationState) {
	stillPending := func(detail string) (models.TurnResult, models.ConversationState) {
		return models.TurnResult{
			Response:       fmt.Sprintf("Still pending administrator decision. Request id: %s", current.RequestID),
			Mode:           models.ModeBooking,
			Status:         models.StatusPending,
			RequestID:      current.RequestID,
			ActionRequired: models.ActionAwaitAdminDecision,
			StatusDetail:   detail,
		}, current
	}

	approval, err := e.Store.GetApproval(ctx, current.RequestID)
	if err != nil {
		utils.GetLogger().Error("approval lookup failed",
			zap.String("requestId", current.RequestID), zap.Error(err))
		return stillPending("approval store unavailable; decision not checked")
	}
	if approval == nil || approval.Decision == nil {
		// Re-entrant no-op: repeated polling must not mutate anything.
		return stillPending("")
	}

	decision := approval.Decision
	if !decision.Approved {
		next := current
		next.Mode = models.ModeBooking
		next.BookingActive = false
		next.PendingField = ""
		next.Status = models.StatusDeclined
		next.DecidedAt = decision.DecidedAt
		return models.TurnResult{
			Response:       msgDeclined,
			Mode:           models.ModeBooking,
			Status:         models.StatusDeclined,
			RequestID:      current.RequestID,
			DecidedAt:      decision.DecidedAt,
			ActionRequired: models.ActionNone,
		}, next
	}

	next := current
	next.Mode = models.ModeBooking
	next.BookingActive = false
	next.PendingField = ""
	next.Status = models.StatusApproved
	next.DecidedAt = decision.DecidedAt

	approvalTime := decision.DecidedAt
	if approvalTime == "" {
		approvalTime = e.now().UTC().Format(time.RFC3339)
	}

	var details []string

	// The primary ledger append comes first and is guarded by Recorded so
	// duplicate deliveries or repeat polls cannot double-write.
	if !next.Recorded {
		record := models.ReservationRecord{
			RequestID:         current.RequestID,
			Name:              fullName(current.Collected),
			CarNumber:         current.Collected[models.FieldCarNumber],
			ReservationPeriod: current.Collected[models.FieldReservationPeriod],
			ApprovalTime:      approvalTime,
		}
		record.SpotID = e.assignSpot(ctx, record.ReservationPeriod)
		if _, err := e.Store.AppendReservation(ctx, record); err != nil {
			utils.GetLogger().Error("reservation ledger append failed",
				zap.String("requestId", current.RequestID), zap.Error(err))
			details = append(details, "reservation ledger write failed; it will be retried on the next status check")
		} else {
			next.Recorded = true
		}
	}

	// The external side channel has its own guard and failure mode; it never
	// blocks the approved response and only its own half is retried later.
	if e.Recorder != nil && !next.McpRecorded {
		_, err := e.Recorder.RecordReservation(ctx,
			fullName(current.Collected),
			current.Collected[models.FieldCarNumber],
			current.Collected[models.FieldReservationPeriod],
			approvalTime,
		)
		if err != nil {
			utils.GetLogger().Warn("external reservation recording failed",
				zap.String("requestId", current.RequestID), zap.Error(err))
			details = append(details, "external recording failed; the reservation is still confirmed")
		} else {
			next.McpRecorded = true
		}
	}

	return models.TurnResult{
		Response:       msgApproved,
		Mode:           models.ModeBooking,
		Status:         models.StatusApproved,
		RequestID:      current.RequestID,
		DecidedAt:      decision.DecidedAt,
		Recorded:       next.Recorded,
		McpRecorded:    next.McpRecorded,
		ActionRequired: models.ActionNone,
		StatusDetail:   strings.Join(details, "; "),
	}, next
}

func (e *Engine) handleReview(ctx context.Context, text string, parsed map[models.Field]string, current models.ConversationState) (models.TurnResult, models.ConversationState) {
	if confirmRe.MatchString(text) {
		requestID, err := e.Store.CreateApproval(ctx, payloadFromCollected(current.Collected))
		if err != nil {
			utils.GetLogger().Error("approval creation failed", zap.Error(err))
			summary := reviewSummary(current.Collected)
			return models.TurnResult{
				Response:       msgSubmitFailed,
				Mode:           models.ModeBooking,
				Status:         models.StatusReview,
				Collected:      current.CollectedCopy(),
				ReviewSummary:  summary,
				ActionRequired: models.ActionReviewConfirmation,
			}, current
		}

		next := current
		next.Mode = models.ModeBooking
		next.BookingActive = true
		next.PendingField = ""
		next.Status = models.StatusPending
		next.RequestID = requestID
		next.Recorded = false
		next.McpRecorded = false
		next.DecidedAt = ""
		return models.TurnResult{
			Response:       fmt.Sprintf("Submitted for approval. Request id: %s", requestID),
			Mode:           models.ModeBooking,
			Status:         models.StatusPending,
			RequestID:      requestID,
			ActionRequired: models.ActionAwaitAdminDecision,
		}, next
	}

	if match := editRe.FindStringSubmatch(text); match != nil {
		field, ok := resolveFieldAlias(match[1])
		if !ok {
			summary := reviewSummary(current.Collected)
			return models.TurnResult{
				Response:       msgUnknownField,
				Mode:           models.ModeBooking,
				Status:         models.StatusReview,
				Collected:      current.CollectedCopy(),
				ReviewSummary:  summary,
				ActionRequired: models.ActionReviewConfirmation,
			}, current
		}

		collected := current.CollectedCopy()
		delete(collected, field)
		next := current
		next.Collected = collected
		next.Status = models.StatusCollecting
		next.PendingField = field
		return models.TurnResult{
			Response:       fieldPrompts[field],
			Mode:           models.ModeBooking,
			Status:         models.StatusCollecting,
			PendingField:   field,
			Collected:      next.CollectedCopy(),
			ActionRequired: models.ActionInput,
		}, next
	}

	if len(parsed) > 0 {
		merged, note, alternatives := e.applyParsedDetails(ctx, current.Collected, parsed)
		next := current
		next.Collected = merged
		if missing, ok := NextMissingField(merged); ok {
			next.Status = models.StatusCollecting
			next.PendingField = missing
			return models.TurnResult{
				Response:       withNote(note, fieldPrompts[missing]),
				Mode:           models.ModeBooking,
				Status:         models.StatusCollecting,
				PendingField:   missing,
				Collected:      next.CollectedCopy(),
				Alternatives:   alternatives,
				ActionRequired: models.ActionInput,
			}, next
		}
		return e.enterReview(next, note, alternatives)
	}

	// Anything else just repeats the summary.
	return e.enterReview(current, "", nil)
}

func (e *Engine) collectField(ctx context.Context, text string, parsed map[models.Field]string, current models.ConversationState) (models.TurnResult, models.ConversationState) {
	if len(parsed) > 0 {
		merged, note, alternatives := e.applyParsedDetails(ctx, current.Collected, parsed)
		next := current
		next.Mode = models.ModeBooking
		next.Collected = merged
		if missing, ok := NextMissingField(merged); ok {
			next.Status = models.StatusCollecting
			next.PendingField = missing
			return models.TurnResult{
				Response:       withNote(note, fieldPrompts[missing]),
				Mode:           models.ModeBooking,
				Status:         models.StatusCollecting,
				PendingField:   missing,
				Collected:      next.CollectedCopy(),
				Alternatives:   alternatives,
				ActionRequired: models.ActionInput,
			}, next
		}
		return e.enterReview(next, note, alternatives)
	}

	field := current.PendingField
	reason := ValidateField(field, text)
	var alternatives []string

	if reason == "" && field == models.FieldReservationPeriod {
		reason, alternatives = e.periodConflict(ctx, NormalizeReservationPeriod(text))
	}

	if reason != "" {
		if field == models.FieldReservationPeriod && len(alternatives) == 0 {
			if status, err := e.Info.Status(ctx); err == nil {
				alternatives = SuggestAlternatives(text, status.WorkingHours)
			}
		}
		response := fmt.Sprintf("Invalid %s: %s %s", field, reason, fieldPrompts[field])
		if len(alternatives) > 0 {
			response += " Available alternatives: " + strings.Join(alternatives, "; ")
		}
		return models.TurnResult{
			Response:       response,
			Mode:           models.ModeBooking,
			Status:         models.StatusCollecting,
			PendingField:   field,
			Collected:      current.CollectedCopy(),
			Alternatives:   alternatives,
			ActionRequired: models.ActionInput,
		}, current
	}

	collected := current.CollectedCopy()
	collected[field] = NormalizeField(field, text)
	next := current
	next.Mode = models.ModeBooking
	next.Collected = collected
	if missing, ok := NextMissingField(collected); ok {
		next.Status = models.StatusCollecting
		next.PendingField = missing
		return models.TurnResult{
			Response:       fieldPrompts[missing],
			Mode:           models.ModeBooking,
			Status:         models.StatusCollecting,
			PendingField:   missing,
			Collected:      next.CollectedCopy(),
			ActionRequired: models.ActionInput,
		}, next
	}
	return e.enterReview(next, "", nil)
}

func (e *Engine) enterReview(next models.ConversationState, note string, alternatives []string) (models.TurnResult, models.ConversationState) {
	next.Mode = models.ModeBooking
	next.BookingActive = true
	next.Status = models.StatusReview
	next.PendingField = ""

	summary := reviewSummary(next.Collected)
	return models.TurnResult{
		Response:       withNote(note, summary),
		Mode:           models.ModeBooking,
		Status:         models.StatusReview,
		Collected:      next.CollectedCopy(),
		ReviewSummary:  summary,
		Alternatives:   alternatives,
		ActionRequired: models.ActionReviewConfirmation,
	}, next
}

func (e *Engine) answerInfo(ctx context.Context, text string) (models.TurnResult, models.ConversationState) {
	answer, err := e.Info.AnswerQuestion(ctx, text)
	if err != nil {
		utils.GetLogger().Warn("info answer failed", zap.Error(err))
		answer = msgInfoFallback
	}

	// A prior booking may have just ended; info turns always return the
	// thread to a clean slate.
	next := models.DefaultConversationState()
	return models.TurnResult{
		Response:       answer,
		Mode:           models.ModeInfo,
		Status:         models.StatusCollecting,
		ActionRequired: models.ActionNone,
	}, next
}

// applyParsedDetails merges valid shorthand values into a fresh copy of
// collected. Invalid values are skipped silently, except a reservation period
// rejected by the conflict check, which is reported with alternatives.
func (e *Engine) applyParsedDetails(ctx context.Context, collected, parsed map[models.Field]string) (map[models.Field]string, string, []string) {
	merged := make(map[models.Field]string, len(collected)+len(parsed))
	for k, v := range collected {
		merged[k] = v
	}

	var note string
	var alternatives []string
	for _, field := range models.BookingFields {
		raw := strings.TrimSpace(parsed[field])
		if raw == "" {
			continue
		}
		if ValidateField(field, raw) != "" {
			continue
		}
		if field == models.FieldReservationPeriod {
			normalized := NormalizeReservationPeriod(raw)
			if reason, suggestions := e.periodConflict(ctx, normalized); reason != "" {
				note, alternatives = reason, suggestions
				continue
			}
			merged[field] = normalized
			continue
		}
		merged[field] = NormalizeField(field, raw)
	}
	return merged, note, alternatives
}

// periodConflict checks a syntactically valid period against working hours
// and spot capacity. An unavailable info source or unparseable window means
// "cannot evaluate" and never blocks the booking.
func (e *Engine) periodConflict(ctx context.Context, period string) (string, []string) {
	status, err := e.Info.Status(ctx)
	if err != nil {
		return "", nil
	}

	if within, ok := WithinWorkingHours(period, status.WorkingHours); ok && !within {
		return fmt.Sprintf("That period is outside our working hours (%s).", status.WorkingHours),
			SuggestAlternatives(period, status.WorkingHours)
	}

	if status.TotalSpots > 0 {
		if start, end, ok := ParseReservationPeriod(period); ok {
			if records, lerr := e.Store.ListReservations(ctx); lerr == nil {
				occupied := spots.FromRecords(records, ParseReservationPeriod)
				window := spots.Window{Start: start, End: end}
				if spots.CountOverlapping(window, occupied) >= status.TotalSpots {
					return "No parking spaces are available for that period.",
						SuggestAlternatives(period, status.WorkingHours)
				}
			}
		}
	}
	return "", nil
}

// assignSpot picks a free spot id for the record about to be appended. Any
// failure along the way leaves the record unassigned rather than blocking.
func (e *Engine) assignSpot(ctx context.Context, period string) string {
	start, end, ok := ParseReservationPeriod(period)
	if !ok {
		return ""
	}
	status, err := e.Info.Status(ctx)
	if err != nil || status.TotalSpots <= 0 {
		return ""
	}
	records, err := e.Store.ListReservations(ctx)
	if err != nil {
		return ""
	}
	occupied := spots.FromRecords(records, ParseReservationPeriod)
	id, ok := spots.ChooseSpotID(spots.Window{Start: start, End: end}, occupied, status.TotalSpots)
	if !ok {
		return ""
	}
	return id
}

func reviewSummary(collected map[models.Field]string) string {
	var b strings.Builder
	b.WriteString("Please review your booking details:\n")
	for _, field := range models.BookingFields {
		fmt.Fprintf(&b, "- %s: %s\n", field, collected[field])
	}
	b.WriteString(reviewFooterText)
	return b.String()
}

func withNote(note, response string) string {
	if note == "" {
		return response
	}
	return note + " " + response
}

func payloadFromCollected(collected map[models.Field]string) map[string]string {
	return map[string]string{
		string(models.FieldName):              collected[models.FieldName],
		string(models.FieldSurname):           collected[models.FieldSurname],
		string(models.FieldCarNumber):         collected[models.FieldCarNumber],
		string(models.FieldReservationPeriod): collected[models.FieldReservationPeriod],
	}
}

func fullName(collected map[models.Field]string) string {
	return strings.TrimSpace(strings.TrimSpace(collected[models.FieldName]) + " " +
		strings.TrimSpace(collected[models.FieldSurname]))
}
