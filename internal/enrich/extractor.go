package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

const (
	openRouterEndpoint       = "https://openrouter.ai/api/v1/chat/completions"
	defaultExtractorTimeout  = 60 * time.Second
	defaultExtractionModel   = "openai/gpt-4o-mini"
	extractionTemperature    = 0.1
	extractionMaxTokens      = 4000
	extractionUserPrefix     = "Here's the output of the google search results:\n"
	extractionSystemRoleName = "system"
	extractionUserRoleName   = "user"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extractor turns a formatted search-result summary into structured
// contacts via an OpenRouter chat completion.
type Extractor struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	model    string
}

func NewExtractor(apiKey string) *Extractor {
	client := resty.New()
	client.SetTimeout(defaultExtractorTimeout)
	client.SetRetryCount(0)

	return NewExtractorWithClient(apiKey, openRouterEndpoint, defaultExtractionModel, client)
}

func NewExtractorWithClient(apiKey string, endpoint string, model string, client *resty.Client) *Extractor {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultExtractorTimeout)
	}
	client.SetRetryCount(0)

	if strings.TrimSpace(model) == "" {
		model = defaultExtractionModel
	}

	return &Extractor{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
	}
}

func (e *Extractor) ExtractContacts(ctx context.Context, summary string) ([]domain.Contact, error) {
	if e == nil || e.apiKey == "" {
		return nil, fmt.Errorf("extractor is not configured")
	}

	body := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: extractionSystemRoleName, Content: extractionPrompt},
			{Role: extractionUserRoleName, Content: extractionUserPrefix + summary},
		},
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(body).
		Post(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("extraction returned status %d: %s", response.StatusCode(), strings.TrimSpace(response.String()))
	}

	var parsed chatResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("extraction response decode failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	content := stripCodeFences(parsed.Choices[0].Message.Content)

	var contacts []domain.Contact
	if err := json.Unmarshal([]byte(content), &contacts); err != nil {
		return nil, fmt.Errorf("extraction content is not a JSON contact array: %w", err)
	}

	return contacts, nil
}

// stripCodeFences removes a surrounding markdown code block, which some
// models wrap around the requested bare JSON array.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
	} else {
		return content
	}

	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[:idx]
	}

	return strings.TrimSpace(content)
}
