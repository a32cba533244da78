package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

const (
	resendName           = "resend"
	resendEndpoint       = "https://api.resend.com/emails"
	defaultResendTimeout = 10 * time.Second
)

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// ResendProvider delivers email through the Resend REST API. It is the
// first link of the chain.
type ResendProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	identity Identity
}

func NewResendProvider(apiKey string, identity Identity) *ResendProvider {
	client := resty.New()
	client.SetTimeout(defaultResendTimeout)
	client.SetRetryCount(0)

	return NewResendProviderWithClient(apiKey, identity, resendEndpoint, client)
}

func NewResendProviderWithClient(apiKey string, identity Identity, endpoint string, client *resty.Client) *ResendProvider {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultResendTimeout)
	}
	client.SetRetryCount(0)

	return &ResendProvider{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		identity: identity,
	}
}

func (p *ResendProvider) Name() string { return resendName }

func (p *ResendProvider) Configured() bool {
	return p != nil && p.apiKey != ""
}

func (p *ResendProvider) Send(ctx context.Context, req domain.DispatchRequest) (*SendResult, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("resend provider is not configured")
	}

	body := resendRequest{
		From:    formatSender(p.identity),
		To:      []string{req.Recipient},
		Subject: req.Subject,
		HTML:    req.HTMLContent,
		Text:    req.TextContent,
		ReplyTo: p.identity.ReplyTo,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetBody(body).
		Post(p.endpoint)
	if err != nil {
		return nil, &Error{
			Provider:  resendName,
			Message:   "request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		var parsed resendResponse
		if err := json.Unmarshal(response.Body(), &parsed); err != nil {
			// Delivery succeeded; a malformed body only costs the message id.
			parsed.ID = ""
		}
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  parsed.ID,
		}, nil
	}

	return nil, &Error{
		Provider:   resendName,
		StatusCode: statusCode,
		Message:    httpErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func formatSender(identity Identity) string {
	name := strings.TrimSpace(identity.SenderName)
	if name == "" {
		return identity.SenderAddress
	}
	return fmt.Sprintf("%s <%s>", name, identity.SenderAddress)
}
