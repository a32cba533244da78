package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	mail "gopkg.in/mail.v2"
)

const (
	smtpName           = "smtp"
	defaultSMTPTimeout = 15 * time.Second
)

// SMTPConfig holds relay connection settings; the provider is configured
// when host and port are present.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPProvider is the last-resort relay at the end of the chain. SMTP has
// no provider-assigned id, so the generated Message-ID header stands in.
type SMTPProvider struct {
	cfg      SMTPConfig
	identity Identity
	send     func(ctx context.Context, msg *mail.Message) error
}

func NewSMTPProvider(cfg SMTPConfig, identity Identity) *SMTPProvider {
	p := &SMTPProvider{
		cfg:      cfg,
		identity: identity,
	}
	p.send = p.dialAndSend
	return p
}

func (p *SMTPProvider) Name() string { return smtpName }

func (p *SMTPProvider) Configured() bool {
	return p != nil && strings.TrimSpace(p.cfg.Host) != "" && p.cfg.Port > 0
}

func (p *SMTPProvider) Send(ctx context.Context, req domain.DispatchRequest) (*SendResult, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("smtp provider is not configured")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), p.cfg.Host)

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", p.identity.SenderAddress, p.identity.SenderName)
	msg.SetHeader("To", req.Recipient)
	msg.SetHeader("Subject", req.Subject)
	msg.SetHeader("Message-ID", messageID)
	if replyTo := strings.TrimSpace(p.identity.ReplyTo); replyTo != "" {
		msg.SetHeader("Reply-To", replyTo)
	}

	if strings.TrimSpace(req.TextContent) != "" {
		msg.SetBody("text/plain", req.TextContent)
		if strings.TrimSpace(req.HTMLContent) != "" {
			msg.AddAlternative("text/html", req.HTMLContent)
		}
	} else {
		msg.SetBody("text/html", req.HTMLContent)
	}

	if err := p.send(ctx, msg); err != nil {
		return nil, &Error{
			Provider:  smtpName,
			Message:   "relay send failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	return &SendResult{
		StatusCode: 250,
		MessageID:  messageID,
	}, nil
}

func (p *SMTPProvider) dialAndSend(ctx context.Context, msg *mail.Message) error {
	dialer := mail.NewDialer(p.cfg.Host, p.cfg.Port, p.cfg.Username, p.cfg.Password)
	dialer.Timeout = defaultSMTPTimeout

	// The dialer has no context support; run it in a goroutine so a caller
	// timeout is still honored while the dial finishes in the background.
	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
