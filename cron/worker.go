package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"parkwise/config"
	chatRepo "parkwise/database/repository/chat"
	"parkwise/models"
	"parkwise/services/tasks"
	"parkwise/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitApprovalWorker runs the async worker in background. It consumes the
// reminder tasks enqueued when a booking is submitted and warns about
// requests the administrator has still not decided.
func InitApprovalWorker(store chatRepo.Persistence) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeApprovalRemind, handleApprovalReminder(store))

	go func() {
		log.Println("[ApprovalWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ApprovalWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ApprovalWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleApprovalReminder(store chatRepo.Persistence) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ApprovalReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid approval reminder payload", zap.Error(err))
			return err
		}

		approval, err := store.GetApproval(ctx, p.RequestID)
		if err != nil {
			// Returning the error lets asynq retry the lookup.
			utils.GetLogger().Error("approval reminder lookup failed",
				zap.String("requestId", p.RequestID), zap.Error(err))
			return err
		}
		if approval == nil || approval.Decision != nil {
			return nil
		}

		utils.GetLogger().Warn("approval request still undecided",
			zap.String("requestId", p.RequestID),
			zap.String("threadId", p.ThreadID),
			zap.String("submittedAt", p.SubmittedAt))
		return nil
	}
}
