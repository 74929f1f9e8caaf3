package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
)

const TaskIntakeMessage = "intake:message"

const TaskFollowUpReminder = "followups:reminder"

type IntakeMessagePayload struct {
	UID        int       `json:"uid,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (p IntakeMessagePayload) Message() intake.Message {
	return intake.Message{
		MessageID:  p.MessageID,
		From:       p.From,
		Subject:    p.Subject,
		Body:       p.Body,
		ReceivedAt: p.ReceivedAt,
	}
}

type FollowUpReminderPayload struct {
	FollowUpID string `json:"followUpId"`
	LeadID     string `json:"leadId"`
	AgentID    string `json:"agentId"`
}

func NewIntakeMessageTask(payload IntakeMessagePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntakeMessage, data), nil
}

func ParseIntakeMessagePayload(task *asynq.Task) (IntakeMessagePayload, error) {
	var payload IntakeMessagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IntakeMessagePayload{}, err
	}
	return payload, nil
}

func NewFollowUpReminderTask(payload FollowUpReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpReminder, data), nil
}

func ParseFollowUpReminderPayload(task *asynq.Task) (FollowUpReminderPayload, error) {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpReminderPayload{}, err
	}
	return payload, nil
}
