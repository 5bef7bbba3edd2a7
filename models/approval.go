package models

// ApprovalDecision is set at most once, by an administrator. The conversation
// engine only ever reads it.
type ApprovalDecision struct {
	Approved  bool   `json:"approved" bson:"approved"`
	DecidedAt string `json:"decided_at" bson:"decidedAt"`
	Notes     string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// ApprovalRequest is a booking submitted for out-of-band administrator review.
type ApprovalRequest struct {
	RequestID string            `json:"request_id" bson:"requestId"`
	Payload   map[string]string `json:"payload" bson:"payload"`
	Decision  *ApprovalDecision `json:"decision,omitempty" bson:"decision,omitempty"`
	CreatedAt string            `json:"created_at" bson:"createdAt"`
}
