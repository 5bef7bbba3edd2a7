package models

// ActionRequired tells the caller what kind of follow-up the turn expects.
type ActionRequired string

const (
	ActionInput              ActionRequired = "input"
	ActionReviewConfirmation ActionRequired = "review_confirmation"
	ActionAwaitAdminDecision ActionRequired = "await_admin_decision"
	ActionNone               ActionRequired = "none"
)

// TurnResult is the response payload of a single chat turn.
type TurnResult struct {
	Response       string           `json:"response"`
	Mode           Mode             `json:"mode"`
	Status         Status           `json:"status"`
	PendingField   Field            `json:"pendingField,omitempty"`
	Collected      map[Field]string `json:"collected,omitempty"`
	RequestID      string           `json:"requestId,omitempty"`
	ActionRequired ActionRequired   `json:"actionRequired,omitempty"`
	ReviewSummary  string           `json:"reviewSummary,omitempty"`
	Alternatives   []string         `json:"alternatives,omitempty"`
	StatusDetail   string           `json:"statusDetail,omitempty"`
	DecidedAt      string           `json:"decidedAt,omitempty"`
	Recorded       bool             `json:"recorded,omitempty"`
	McpRecorded    bool             `json:"mcpRecorded,omitempty"`
}
