package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

func testIdentity() Identity {
	return Identity{
		SenderName:    "SourceCo Deals",
		SenderAddress: "deals@sourcecodeals.com",
		ReplyTo:       "support@sourcecodeals.com",
	}
}

func testDispatchRequest() domain.DispatchRequest {
	return domain.DispatchRequest{
		Recipient:   "a@b.com",
		Subject:     "Test",
		HTMLContent: "<p>Hello</p>",
		TextContent: "Hello",
		Category:    domain.CategoryWelcome,
	}
}

func TestResendProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody resendRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"re-msg-1"}`))
	}))
	defer server.Close()

	p := NewResendProviderWithClient("rs-key", testIdentity(), server.URL, resty.New())

	resp, err := p.Send(context.Background(), testDispatchRequest())
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.MessageID != "re-msg-1" {
		t.Fatalf("MessageID = %q, want re-msg-1", resp.MessageID)
	}
	if gotAuth != "Bearer rs-key" {
		t.Fatalf("Authorization = %q, want Bearer rs-key", gotAuth)
	}
	if gotBody.From != "SourceCo Deals <deals@sourcecodeals.com>" {
		t.Fatalf("from = %q", gotBody.From)
	}
	if len(gotBody.To) != 1 || gotBody.To[0] != "a@b.com" {
		t.Fatalf("to = %v, want [a@b.com]", gotBody.To)
	}
	if gotBody.ReplyTo != "support@sourcecodeals.com" {
		t.Fatalf("reply_to = %q", gotBody.ReplyTo)
	}
}

func TestResendProviderStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "unprocessable is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("provider failed"))
			}))
			defer server.Close()

			p := NewResendProviderWithClient("rs-key", testIdentity(), server.URL, resty.New())

			_, err := p.Send(context.Background(), testDispatchRequest())
			if err == nil {
				t.Fatal("Send() expected error, got nil")
			}

			var providerErr *Error
			if !errors.As(err, &providerErr) {
				t.Fatalf("error type = %T, want *provider.Error", err)
			}
			if providerErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", providerErr.StatusCode, tc.statusCode)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
			if !IsRetryable(err) {
				t.Fatal("provider HTTP failures must be retryable")
			}
		})
	}
}

func TestResendProviderConfigured(t *testing.T) {
	t.Parallel()

	if NewResendProvider("", testIdentity()).Configured() {
		t.Fatal("provider without api key must report unconfigured")
	}
	if !NewResendProvider("rs-key", testIdentity()).Configured() {
		t.Fatal("provider with api key must report configured")
	}
}
