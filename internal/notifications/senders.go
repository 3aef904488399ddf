package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// LogSender writes emails to the structured log. Used when no transport is configured.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender returns a sender that only logs.
func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	if s == nil || s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind":      string(email.Kind),
		"recipient": email.Recipient,
		"subject":   email.Subject,
		"body_size": len(email.HTMLBody),
	})
	s.logg.Info(ctx, "notification.logged")
	return nil
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) (string, error)
}

// PubSubSender publishes emails to the notification topic for the mail worker.
type PubSubSender struct {
	publisher publisher
}

// NewPubSubSender wraps the notification topic publisher.
func NewPubSubSender(p publisher) (*PubSubSender, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubSender{publisher: p}, nil
}

func (s *PubSubSender) Send(ctx context.Context, email Email) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	if _, err := s.publisher.Publish(ctx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":         "email",
			"notification": string(email.Kind),
		},
	}); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}
