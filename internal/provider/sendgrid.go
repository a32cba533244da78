package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

const (
	sendgridName           = "sendgrid"
	sendgridEndpoint       = "https://api.sendgrid.com/v3/mail/send"
	defaultSendGridTimeout = 10 * time.Second
)

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridRequest struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	ReplyTo          *sendgridAddress          `json:"reply_to,omitempty"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

// SendGridProvider is the second link of the chain, tried when Resend is
// unconfigured or exhausted.
type SendGridProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	identity Identity
}

func NewSendGridProvider(apiKey string, identity Identity) *SendGridProvider {
	client := resty.New()
	client.SetTimeout(defaultSendGridTimeout)
	client.SetRetryCount(0)

	return NewSendGridProviderWithClient(apiKey, identity, sendgridEndpoint, client)
}

func NewSendGridProviderWithClient(apiKey string, identity Identity, endpoint string, client *resty.Client) *SendGridProvider {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendGridTimeout)
	}
	client.SetRetryCount(0)

	return &SendGridProvider{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		identity: identity,
	}
}

func (p *SendGridProvider) Name() string { return sendgridName }

func (p *SendGridProvider) Configured() bool {
	return p != nil && p.apiKey != ""
}

func (p *SendGridProvider) Send(ctx context.Context, req domain.DispatchRequest) (*SendResult, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("sendgrid provider is not configured")
	}

	// SendGrid requires text/plain before text/html.
	content := make([]sendgridContent, 0, 2)
	if strings.TrimSpace(req.TextContent) != "" {
		content = append(content, sendgridContent{Type: "text/plain", Value: req.TextContent})
	}
	if strings.TrimSpace(req.HTMLContent) != "" {
		content = append(content, sendgridContent{Type: "text/html", Value: req.HTMLContent})
	}

	body := sendgridRequest{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: req.Recipient}}}},
		From: sendgridAddress{
			Email: p.identity.SenderAddress,
			Name:  p.identity.SenderName,
		},
		Subject: req.Subject,
		Content: content,
	}
	if replyTo := strings.TrimSpace(p.identity.ReplyTo); replyTo != "" {
		body.ReplyTo = &sendgridAddress{Email: replyTo}
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetBody(body).
		Post(p.endpoint)
	if err != nil {
		return nil, &Error{
			Provider:  sendgridName,
			Message:   "request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  strings.TrimSpace(response.Header().Get("X-Message-Id")),
		}, nil
	}

	return nil, &Error{
		Provider:   sendgridName,
		StatusCode: statusCode,
		Message:    httpErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
