package models

// Mode says which half of the assistant currently owns the thread.
type Mode string

const (
	ModeInfo    Mode = "info"
	ModeBooking Mode = "booking"
)

// Status is the booking wizard lifecycle state for a thread.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusReview     Status = "review"
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusCancelled  Status = "cancelled"
)

// Field identifies one of the four booking fields collected by the wizard.
type Field string

const (
	FieldName              Field = "name"
	FieldSurname           Field = "surname"
	FieldCarNumber         Field = "car_number"
	FieldReservationPeriod Field = "reservation_period"
)

// BookingFields is the canonical collection order. The wizard always prompts
// in this order and "next missing" is resolved against it.
var BookingFields = []Field{FieldName, FieldSurname, FieldCarNumber, FieldReservationPeriod}

// Next returns the field after f in collection order, or false when f is the
// last field (or not a booking field at all).
func (f Field) Next() (Field, bool) {
	for i, known := range BookingFields {
		if known == f && i+1 < len(BookingFields) {
			return BookingFields[i+1], true
		}
	}
	return "", false
}

// Valid reports whether f is one of the four booking fields.
func (f Field) Valid() bool {
	for _, known := range BookingFields {
		if known == f {
			return true
		}
	}
	return false
}

// ConversationState is the persisted per-thread state. It is a value type:
// every engine transition returns a fresh state rather than mutating in place,
// so the exact field set of each transition stays auditable.
type ConversationState struct {
	Mode          Mode             `json:"mode" bson:"mode"`
	BookingActive bool             `json:"booking_active" bson:"bookingActive"`
	PendingField  Field            `json:"pending_field,omitempty" bson:"pendingField,omitempty"`
	Collected     map[Field]string `json:"collected,omitempty" bson:"collected,omitempty"`
	Status        Status           `json:"status" bson:"status"`
	RequestID     string           `json:"request_id,omitempty" bson:"requestId,omitempty"`
	Recorded      bool             `json:"recorded" bson:"recorded"`
	McpRecorded   bool             `json:"mcp_recorded" bson:"mcpRecorded"`
	DecidedAt     string           `json:"decided_at,omitempty" bson:"decidedAt,omitempty"`
}

// DefaultConversationState is the state of a thread before any booking activity.
func DefaultConversationState() ConversationState {
	return ConversationState{
		Mode:      ModeInfo,
		Status:    StatusCollecting,
		Collected: map[Field]string{},
	}
}

// CollectedCopy returns a detached copy of the collected field map, never nil.
func (s ConversationState) CollectedCopy() map[Field]string {
	out := make(map[Field]string, len(s.Collected))
	for k, v := range s.Collected {
		out[k] = v
	}
	return out
}
