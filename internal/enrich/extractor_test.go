package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractorExtractContacts(t *testing.T) {
	t.Parallel()

	var (
		gotAuth string
		gotBody chatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "[{\"first_name\": \"Jane\", \"last_name\": \"Doe\", \"title\": \"CEO\"}]"}}]
		}`))
	}))
	defer server.Close()

	extractor := NewExtractorWithClient("router-key", server.URL, "", nil)

	contacts, err := extractor.ExtractContacts(context.Background(), "**Search Query:** acme.com CEO")
	if err != nil {
		t.Fatalf("ExtractContacts() error = %v", err)
	}

	if gotAuth != "Bearer router-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != defaultExtractionModel {
		t.Fatalf("model = %q, want %q", gotBody.Model, defaultExtractionModel)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[0].Content != extractionPrompt {
		t.Fatal("first message should carry the system prompt")
	}
	if !strings.HasPrefix(gotBody.Messages[1].Content, extractionUserPrefix) {
		t.Fatalf("user message missing prefix: %q", gotBody.Messages[1].Content)
	}

	if len(contacts) != 1 {
		t.Fatalf("contacts = %d, want 1", len(contacts))
	}
	if contacts[0].FirstName != "Jane" || contacts[0].Title != "CEO" {
		t.Fatalf("contact = %+v", contacts[0])
	}
}

func TestExtractorExtractContactsFencedContent(t *testing.T) {
	t.Parallel()

	fenced := "Here you go:\n```json\n[{\"first_name\": \"Jane\"}]\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": fenced}},
			},
		})
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	extractor := NewExtractorWithClient("router-key", server.URL, "", nil)

	contacts, err := extractor.ExtractContacts(context.Background(), "summary")
	if err != nil {
		t.Fatalf("ExtractContacts() error = %v", err)
	}
	if len(contacts) != 1 || contacts[0].FirstName != "Jane" {
		t.Fatalf("contacts = %+v", contacts)
	}
}

func TestExtractorExtractContactsNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	extractor := NewExtractorWithClient("router-key", server.URL, "", nil)

	if _, err := extractor.ExtractContacts(context.Background(), "summary"); err == nil {
		t.Fatal("ExtractContacts() should fail when no choices are returned")
	}
}

func TestExtractorExtractContactsNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	extractor := NewExtractorWithClient("router-key", server.URL, "", nil)

	_, err := extractor.ExtractContacts(context.Background(), "summary")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("ExtractContacts() error = %v, want status 502 failure", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare json",
			content: `[{"first_name": "Jane"}]`,
			want:    `[{"first_name": "Jane"}]`,
		},
		{
			name:    "json fence",
			content: "```json\n[{\"first_name\": \"Jane\"}]\n```",
			want:    `[{"first_name": "Jane"}]`,
		},
		{
			name:    "plain fence",
			content: "```\n[]\n```",
			want:    "[]",
		},
		{
			name:    "prose around fence",
			content: "Sure, here are the contacts:\n```json\n[]\n```\nLet me know if you need more.",
			want:    "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := stripCodeFences(tt.content); got != tt.want {
				t.Fatalf("stripCodeFences() = %q, want %q", got, tt.want)
			}
		})
	}
}
