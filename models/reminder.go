package models

// ApprovalReminderPayload is queued when a booking is submitted for approval,
// so an administrator can be nudged about requests left undecided.
type ApprovalReminderPayload struct {
	RequestID   string `json:"requestId"`
	ThreadID    string `json:"threadId"`
	SubmittedAt string `json:"submittedAt"`
}
