package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

// ErrDelivery wraps every failure reported by a Sender.
var ErrDelivery = errors.New("notification delivery failed")

// Email is a fire-and-forget message for an operator mailbox.
type Email struct {
	Kind      enums.NotificationKind `json:"kind"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	HTMLBody  string                 `json:"html_body"`
}

func (e Email) validate() error {
	if strings.TrimSpace(e.Recipient) == "" {
		return errors.New("recipient required")
	}
	if strings.TrimSpace(e.Subject) == "" {
		return errors.New("subject required")
	}
	return nil
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Notifier is the caller-facing surface. Send never reports failure.
type Notifier interface {
	Send(ctx context.Context, email Email)
}
