package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/smart-inventory/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := map[string]string{
		"si-notification-events": "projects/inventory-prod/topics/si-notification-events",
		"  padded  ":             "projects/inventory-prod/topics/padded",
		"projects/other/topics/si-notification-events": "projects/other/topics/si-notification-events",
		"": "",
	}
	for in, want := range cases {
		if got := topicResourceName("inventory-prod", in); got != want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", in, got, want)
		}
	}

	if got := topicResourceName("", "topic"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{NotificationTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected errProjectIDRequired, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err != errNoTopic {
		t.Fatalf("expected errNoTopic, got %v", err)
	}
}

func TestApplySettings(t *testing.T) {
	settings := pubsub.DefaultPublishSettings
	applySettings(&settings, config.PubSubConfig{BatchDelay: 25 * time.Millisecond, PublishTimeout: 5 * time.Second})
	if settings.DelayThreshold != 25*time.Millisecond || settings.Timeout != 5*time.Second {
		t.Fatalf("unexpected settings %+v", settings)
	}

	defaults := pubsub.DefaultPublishSettings
	applySettings(&defaults, config.PubSubConfig{})
	if defaults.DelayThreshold != pubsub.DefaultPublishSettings.DelayThreshold {
		t.Fatalf("zero config should keep library defaults")
	}
}

func TestNilClientHelpers(t *testing.T) {
	var c *Client
	if _, err := c.Publish(context.Background(), &pubsub.Message{}); err != errNotInitialized {
		t.Fatalf("expected publish on nil client to fail, got %v", err)
	}
	if c.Topic() != "" {
		t.Fatalf("expected empty topic")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping on nil client to fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
