package chatRepo

import (
	"context"
	"errors"

	"parkwise/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type threadDoc struct {
	ThreadID  string                   `bson:"threadId"`
	State     models.ConversationState `bson:"state"`
	UpdatedAt string                   `bson:"updatedAt"`
}

// GetThread returns the persisted state for a thread, or nil when unknown.
func (r *mongoChatStore) GetThread(ctx context.Context, threadID string) (*models.ConversationState, error) {
	var doc threadDoc
	err := r.threads.FindOne(ctx, bson.M{"threadId": threadID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.State, nil
}

// UpsertThread stores the state for a thread, creating the document if needed.
func (r *mongoChatStore) UpsertThread(ctx context.Context, threadID string, state models.ConversationState) error {
	doc := threadDoc{ThreadID: threadID, State: state, UpdatedAt: utcNow()}
	opts := options.Replace().SetUpsert(true)
	_, err := r.threads.ReplaceOne(ctx, bson.M{"threadId": threadID}, doc, opts)
	return err
}

// CreateApproval inserts a new undecided approval request and returns its id.
func (r *mongoChatStore) CreateApproval(ctx context.Context, payload map[string]string) (string, error) {
	request := models.ApprovalRequest{
		RequestID: uuid.New().String(),
		Payload:   payload,
		CreatedAt: utcNow(),
	}
	if _, err := r.approvals.InsertOne(ctx, request); err != nil {
		return "", err
	}
	return request.RequestID, nil
}

// GetApproval returns an approval request by id, or nil when unknown.
func (r *mongoChatStore) GetApproval(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := r.approvals.FindOne(ctx, bson.M{"requestId": requestID}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListPendingApprovals fetches all approval requests without a decision.
func (r *mongoChatStore) ListPendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error) {
	cursor, err := r.approvals.Find(ctx, bson.M{"decision": bson.M{"$eq": nil}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pending []models.ApprovalRequest
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// SetApprovalDecision records the administrator decision for a request.
// The write is conditional on the request being undecided, so a decision can
// never be overwritten; a repeat call returns the stored decision.
func (r *mongoChatStore) SetApprovalDecision(ctx context.Context, requestID string, approved bool, notes string) (*models.ApprovalDecision, error) {
	decision := models.ApprovalDecision{
		Approved:  approved,
		DecidedAt: utcNow(),
		Notes:     notes,
	}
	res, err := r.approvals.UpdateOne(ctx,
		bson.M{"requestId": requestID, "decision": bson.M{"$eq": nil}},
		bson.M{"$set": bson.M{"decision": decision}},
	)
	if err != nil {
		return nil, err
	}
	if res.ModifiedCount == 1 {
		return &decision, nil
	}

	existing, err := r.GetApproval(ctx, requestID)
	if err != nil || existing == nil {
		return nil, err
	}
	return existing.Decision, nil
}

// AppendReservation inserts a ledger entry. The ledger is append-only.
func (r *mongoChatStore) AppendReservation(ctx context.Context, record models.ReservationRecord) (models.ReservationRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = utcNow()
	if _, err := r.reservations.InsertOne(ctx, record); err != nil {
		return models.ReservationRecord{}, err
	}
	return record, nil
}

// ListReservations returns every ledger entry.
func (r *mongoChatStore) ListReservations(ctx context.Context) ([]models.ReservationRecord, error) {
	cursor, err := r.reservations.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.ReservationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
