package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	mail "gopkg.in/mail.v2"
)

func TestSMTPProviderConfigured(t *testing.T) {
	t.Parallel()

	if NewSMTPProvider(SMTPConfig{}, testIdentity()).Configured() {
		t.Fatal("provider without host must report unconfigured")
	}
	if NewSMTPProvider(SMTPConfig{Host: "smtp.example.com"}, testIdentity()).Configured() {
		t.Fatal("provider without port must report unconfigured")
	}
	if !NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 587}, testIdentity()).Configured() {
		t.Fatal("provider with host and port must report configured")
	}
}

func TestSMTPProviderSendAssignsMessageID(t *testing.T) {
	t.Parallel()

	var gotMessageID string
	p := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 587}, testIdentity())
	p.send = func(ctx context.Context, msg *mail.Message) error {
		gotMessageID = msg.GetHeader("Message-ID")[0]
		return nil
	}

	resp, err := p.Send(context.Background(), testDispatchRequest())
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.MessageID == "" {
		t.Fatal("MessageID should be synthesized for smtp")
	}
	if resp.MessageID != gotMessageID {
		t.Fatalf("result MessageID = %q, header = %q", resp.MessageID, gotMessageID)
	}
	if !strings.HasSuffix(resp.MessageID, "@smtp.example.com>") {
		t.Fatalf("MessageID = %q, want host-qualified id", resp.MessageID)
	}
}

func TestSMTPProviderSendFailureWrapsError(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("connection refused")
	p := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 587}, testIdentity())
	p.send = func(ctx context.Context, msg *mail.Message) error {
		return dialErr
	}

	_, err := p.Send(context.Background(), testDispatchRequest())
	if err == nil {
		t.Fatal("Send() expected error, got nil")
	}

	var providerErr *Error
	if !errors.As(err, &providerErr) {
		t.Fatalf("error type = %T, want *provider.Error", err)
	}
	if !errors.Is(err, dialErr) {
		t.Fatal("provider error must wrap the dial error")
	}
	if !IsTransient(err) {
		t.Fatal("relay failure must be transient")
	}
}
