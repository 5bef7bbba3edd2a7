package tasks

import (
	"encoding/json"
	"time"

	"parkwise/models"

	"github.com/hibiken/asynq"
)

const TypeApprovalRemind = "approval:remind"

func NewApprovalReminderTask(payload models.ApprovalReminderPayload, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeApprovalRemind, b)
	opts := []asynq.Option{asynq.ProcessIn(delay)}

	return task, opts, nil
}
