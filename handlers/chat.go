package handlers

import (
	"net/http"
	"sync"
	"time"

	"parkwise/config"
	chatRepo "parkwise/database/repository/chat"
	"parkwise/models"
	"parkwise/services/booking"
	"parkwise/services/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ChatHandler owns the conversational endpoints. Turns on the same thread are
// serialized with a per-thread mutex so concurrent messages cannot interleave
// their read-modify-write of the conversation state.
type ChatHandler struct {
	Engine      *booking.Engine
	Store       chatRepo.Persistence
	AsynqClient *asynq.Client
	Logger      *zap.Logger

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

func NewChatHandler(engine *booking.Engine, store chatRepo.Persistence, asynqClient *asynq.Client, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		Engine:      engine,
		Store:       store,
		AsynqClient: asynqClient,
		Logger:      logger,
		threadLocks: make(map[string]*sync.Mutex),
	}
}

func (h *ChatHandler) lockThread(threadID string) func() {
	h.mu.Lock()
	lock, ok := h.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		h.threadLocks[threadID] = lock
	}
	h.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

type chatMessageResponse struct {
	ThreadID string `json:"threadId"`
	models.TurnResult
}

// MessageHandler runs one chat turn: load state, run the engine, persist the
// next state, respond. A missing thread_id starts a fresh thread.
func (h *ChatHandler) MessageHandler(c *gin.Context) {
	var input struct {
		Message  string `json:"message"`
		ThreadID string `json:"thread_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	threadID := input.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}

	unlock := h.lockThread(threadID)
	defer unlock()

	ctx := c.Request.Context()
	state, err := h.Store.GetThread(ctx, threadID)
	if err != nil {
		h.Logger.Error("failed to load thread state", zap.String("threadId", threadID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation state"})
		return
	}

	priorRequestID := ""
	if state != nil {
		priorRequestID = state.RequestID
	}

	result, next := h.Engine.RunTurn(ctx, input.Message, state)

	if err := h.Store.UpsertThread(ctx, threadID, next); err != nil {
		// The turn already happened; losing the state write is logged but the
		// user still gets their response.
		h.Logger.Error("failed to persist thread state", zap.String("threadId", threadID), zap.Error(err))
	}

	if result.Status == models.StatusPending && result.RequestID != "" && result.RequestID != priorRequestID {
		h.enqueueApprovalReminder(threadID, result.RequestID)
	}

	c.JSON(http.StatusOK, chatMessageResponse{ThreadID: threadID, TurnResult: result})
}

func (h *ChatHandler) enqueueApprovalReminder(threadID, requestID string) {
	if h.AsynqClient == nil {
		return
	}

	delay := time.Duration(config.AppConfig.ApprovalReminderMin) * time.Minute
	if delay <= 0 {
		delay = 15 * time.Minute
	}

	task, opts, err := tasks.NewApprovalReminderTask(models.ApprovalReminderPayload{
		RequestID:   requestID,
		ThreadID:    threadID,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	}, delay)
	if err != nil {
		h.Logger.Error("failed to build approval reminder task", zap.Error(err))
		return
	}
	if _, err := h.AsynqClient.Enqueue(task, opts...); err != nil {
		h.Logger.Warn("failed to enqueue approval reminder",
			zap.String("requestId", requestID), zap.Error(err))
	}
}

// StatusHandler returns the stored conversation state for a thread.
func (h *ChatHandler) StatusHandler(c *gin.Context) {
	threadID := c.Param("threadID")

	state, err := h.Store.GetThread(c.Request.Context(), threadID)
	if err != nil {
		h.Logger.Error("failed to load thread state", zap.String("threadId", threadID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation state"})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown thread"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threadId": threadID, "state": state})
}
