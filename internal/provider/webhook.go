package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ledgermail/ledgermail/internal/compose"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookAttachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

type webhookRequest struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	HTML        bool                `json:"html"`
	Attachments []webhookAttachment `json:"attachments,omitempty"`
}

// WebhookProvider posts payloads to an HTTP mail-relay endpoint instead of
// speaking SMTP directly. 4xx answers are treated as per-recipient
// rejections, 5xx and transport failures as total call failures.
type WebhookProvider struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookProvider(endpoint string) (*WebhookProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookProviderWithClient(endpoint, client)
}

func NewWebhookProviderWithClient(endpoint string, client *resty.Client) (*WebhookProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

// Verify is a no-op: the relay holds no session, and endpoint validity was
// checked at construction.
func (p *WebhookProvider) Verify(ctx context.Context) error {
	return nil
}

func (p *WebhookProvider) Send(ctx context.Context, payload *compose.Payload, recipient string) (*Outcome, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if payload == nil {
		return nil, fmt.Errorf("payload is required")
	}

	reqBody := webhookRequest{
		To:      recipient,
		Subject: payload.Subject,
		Body:    payload.Body,
		HTML:    payload.HTML,
	}
	for _, attachment := range payload.Attachments {
		reqBody.Attachments = append(reqBody.Attachments, webhookAttachment{
			Name: attachment.Name,
			Data: attachment.Data,
		})
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &SendError{
			Message:   "relay request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &SendError{
			Message:   "relay returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	switch {
	case statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices:
		return &Outcome{}, nil
	case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError &&
		statusCode != http.StatusTooManyRequests:
		return &Outcome{Rejected: map[string]string{
			recipient: relayErrorMessage(statusCode, responseBody),
		}}, nil
	default:
		return nil, &SendError{
			StatusCode: statusCode,
			Message:    relayErrorMessage(statusCode, responseBody),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func relayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("relay returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
