package notifications

import (
	"context"
	"fmt"

	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// Dispatcher forwards emails to a Sender and absorbs every failure.
type Dispatcher struct {
	sender Sender
	logg   *logger.Logger
}

// NewDispatcher builds the caller-facing notifier.
func NewDispatcher(sender Sender, logg *logger.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{sender: sender, logg: logg}, nil
}

// Send delivers email once. Failures are logged and never returned or retried.
func (d *Dispatcher) Send(ctx context.Context, email Email) {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"kind":      string(email.Kind),
		"recipient": email.Recipient,
		"subject":   email.Subject,
	})

	if err := email.validate(); err != nil {
		d.logg.Error(ctx, "notification.invalid", fmt.Errorf("%w: %v", ErrDelivery, err))
		return
	}
	if err := d.sender.Send(ctx, email); err != nil {
		d.logg.Error(ctx, "notification.delivery_failed", fmt.Errorf("%w: %w", ErrDelivery, err))
		return
	}
	d.logg.Info(ctx, "notification.sent")
}
