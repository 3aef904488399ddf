package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/smart-inventory/pkg/config"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClientCompleteRequest(t *testing.T) {
	const expectedURL = "http://llm.test/v1/chat/completions"
	respBody := `{"choices":[{"message":{"role":"assistant","content":"  42 units  "}}]}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload completionRequest
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload.Model != "test-model" || len(payload.Messages) != 1 || payload.Messages[0].Content != "forecast please" {
			t.Fatalf("unexpected payload %+v", payload)
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-key", "test-model", WithBaseURL("http://llm.test/v1/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reply, err := client.Complete(context.Background(), "forecast please")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("authorization header missing")
	}
	if reply != "42 units" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestClientCompleteErrorStatus(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader(`{"error":"slow down"}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("test-key", "", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Complete(context.Background(), "forecast")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestClientCompleteEmptyChoices(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"choices":[]}`)),
			Header:     http.Header{},
		}, nil
	})
	client, _ := NewClient("test-key", "", WithHTTPClient(&http.Client{Transport: rt}))

	if _, err := client.Complete(context.Background(), "forecast"); err == nil {
		t.Fatalf("expected empty choices to fail")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  ", ""); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}

func TestNewFromConfigAppliesRateLimit(t *testing.T) {
	client, err := NewFromConfig(config.OpenAIConfig{APIKey: "k", RequestsPerMinute: 30})
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	if client.limiter == nil {
		t.Fatalf("expected limiter to be configured")
	}
	if client.model != defaultModel || client.baseURL != defaultBaseURL {
		t.Fatalf("unexpected defaults model=%q base=%q", client.model, client.baseURL)
	}
}

func TestCompleteNilClient(t *testing.T) {
	var client *Client
	if _, err := client.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("expected nil client to fail")
	}
}
