package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// MessagingClient sends templated messages through the external
// messaging provider, fronted by a circuit breaker the same way the
// teacher's GDS client fronts its carrier calls.
type MessagingClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// MessagingConfig configures the outbound provider endpoint.
type MessagingConfig struct {
	BaseURL string
	APIKey  string
}

func NewMessagingClient(cfg MessagingConfig, logger *zap.SugaredLogger) *MessagingClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetRetryCount(0) // retries are owned by NotificationRetryService, not the HTTP layer

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "messaging-provider",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})

	return &MessagingClient{http: client, breaker: cb, logger: logger}
}

type sendPayload struct {
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// Send dispatches one templated message and returns the provider's
// message id on success.
func (m *MessagingClient) Send(ctx context.Context, to, templateID string, variables map[string]string) (string, error) {
	result, err := m.breaker.Execute(func() (interface{}, error) {
		resp, err := m.http.R().
			SetContext(ctx).
			SetBody(sendPayload{To: to, TemplateID: templateID, Variables: variables}).
			Post("/messages")
		if err != nil {
			return "", fmt.Errorf("messaging request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
			return "", fmt.Errorf("messaging provider returned %d: %s", resp.StatusCode(), resp.String())
		}
		var parsed sendResponse
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return "", fmt.Errorf("parse messaging response: %w", err)
		}
		return parsed.MessageID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
