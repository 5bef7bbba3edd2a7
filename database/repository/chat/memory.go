package chatRepo

import (
	"context"
	"sync"
	"time"

	"parkwise/models"

	"github.com/google/uuid"
)

// InMemoryStore is the default Persistence implementation. It is safe for
// concurrent use and is the default backend for development and tests.
type InMemoryStore struct {
	mu           sync.RWMutex
	threads      map[string]models.ConversationState
	approvals    map[string]models.ApprovalRequest
	reservations []models.ReservationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads:   make(map[string]models.ConversationState),
		approvals: make(map[string]models.ApprovalRequest),
	}
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *InMemoryStore) GetThread(ctx context.Context, threadID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	copied := state
	copied.Collected = state.CollectedCopy()
	return &copied, nil
}

func (s *InMemoryStore) UpsertThread(ctx context.Context, threadID string, state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Collected = state.CollectedCopy()
	s.threads[threadID] = state
	return nil
}

func (s *InMemoryStore) CreateApproval(ctx context.Context, payload map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := uuid.New().String()
	copied := make(map[string]string, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	s.approvals[requestID] = models.ApprovalRequest{
		RequestID: requestID,
		Payload:   copied,
		CreatedAt: utcNow(),
	}
	return requestID, nil
}

func (s *InMemoryStore) GetApproval(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.approvals[requestID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *InMemoryStore) ListPendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []models.ApprovalRequest
	for _, item := range s.approvals {
		if item.Decision == nil {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

func (s *InMemoryStore) SetApprovalDecision(ctx context.Context, requestID string, approved bool, notes string) (*models.ApprovalDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.approvals[requestID]
	if !ok {
		return nil, nil
	}
	// Decisions are immutable once made.
	if item.Decision != nil {
		decision := *item.Decision
		return &decision, nil
	}

	decision := models.ApprovalDecision{
		Approved:  approved,
		DecidedAt: utcNow(),
		Notes:     notes,
	}
	item.Decision = &decision
	s.approvals[requestID] = item
	return &decision, nil
}

func (s *InMemoryStore) AppendReservation(ctx context.Context, record models.ReservationRecord) (models.ReservationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = utcNow()
	s.reservations = append(s.reservations, record)
	return record, nil
}

func (s *InMemoryStore) ListReservations(ctx context.Context) ([]models.ReservationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ReservationRecord, len(s.reservations))
	copy(out, s.reservations)
	return out, nil
}
