package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskClassifyMessage = "leads.classify_message"

// ClassifyMessagePayload identifies the message to classify. The worker
// loads everything else fresh so retries see current state.
type ClassifyMessagePayload struct {
	MessageID string `json:"messageId"`
}

func NewClassifyMessageTask(payload ClassifyMessagePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClassifyMessage, data), nil
}

func ParseClassifyMessagePayload(task *asynq.Task) (ClassifyMessagePayload, error) {
	var payload ClassifyMessagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ClassifyMessagePayload{}, err
	}
	return payload, nil
}
