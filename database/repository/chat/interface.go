package chatRepo

import (
	"context"

	"parkwise/models"
)

// Persistence is the storage contract consumed by the conversation engine and
// the admin API: per-thread conversation state, the approval request store,
// and the append-only reservation ledger.
//
// GetThread and GetApproval return (nil, nil) when the id is unknown.
// SetApprovalDecision writes a decision at most once; when the request was
// already decided the stored decision is returned unchanged.
type Persistence interface {
	GetThread(ctx context.Context, threadID string) (*models.ConversationState, error)
	UpsertThread(ctx context.Context, threadID string, state models.ConversationState) error

	CreateApproval(ctx context.Context, payload map[string]string) (string, error)
	GetApproval(ctx context.Context, requestID string) (*models.ApprovalRequest, error)
	ListPendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error)
	SetApprovalDecision(ctx context.Context, requestID string, approved bool, notes string) (*models.ApprovalDecision, error)

	AppendReservation(ctx context.Context, record models.ReservationRecord) (models.ReservationRecord, error)
	ListReservations(ctx context.Context) ([]models.ReservationRecord, error)
}
