package enums

import "fmt"

// NotificationKind labels outbound inventory emails.
type NotificationKind string

const (
	NotificationKindLowStock      NotificationKind = "low_stock_alert"
	NotificationKindAutoReorder   NotificationKind = "auto_reorder"
	NotificationKindSelloutReport NotificationKind = "sellout_report"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindLowStock,
	NotificationKindAutoReorder,
	NotificationKindSelloutReport,
}

// IsValid checks whether the given kind matches the canonical set.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
