package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coderun/internal/coderun/model"
	"coderun/internal/common/mq"
	appErr "coderun/pkg/errors"
)

// EventPublisher publishes run events for downstream consumers.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, result model.RunResult) error
}

// MQEventPublisher publishes run events to a message queue.
type MQEventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQEventPublisher creates a new MQ event publisher.
func NewMQEventPublisher(producer mq.Producer, topic string) *MQEventPublisher {
	return &MQEventPublisher{producer: producer, topic: topic}
}

// PublishRunCompleted publishes a completed-run event keyed by run id.
func (p *MQEventPublisher) PublishRunCompleted(ctx context.Context, result model.RunResult) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("event publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("event topic is required")
	}
	if result.RunID == "" {
		return appErr.ValidationError("run_id", "required")
	}
	event := model.RunEvent{
		Type:      model.RunEventCompleted,
		Result:    result,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = result.RunID
	message.SetHeader("event", string(event.Type))
	message.SetHeader("language", result.LanguageID)
	message.SetHeader("outcome", result.Outcome)
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish run event failed")
	}
	return nil
}
