package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	serperEndpoint       = "https://google.serper.dev/search"
	defaultSerperTimeout = 15 * time.Second
	serperResultCount    = 10
)

type serperRequest struct {
	Q           string `json:"q"`
	GL          string `json:"gl"`
	Autocorrect bool   `json:"autocorrect"`
	Num         int    `json:"num"`
}

// SearchResponse is the subset of the Serper payload the extractor needs.
type SearchResponse struct {
	SearchParameters SearchParameters `json:"searchParameters"`
	Organic          []OrganicResult  `json:"organic"`
}

type SearchParameters struct {
	Q string `json:"q"`
}

type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperClient queries the Serper Google Search API.
type SerperClient struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewSerperClient(apiKey string) *SerperClient {
	client := resty.New()
	client.SetTimeout(defaultSerperTimeout)
	client.SetRetryCount(0)

	return NewSerperClientWithClient(apiKey, serperEndpoint, client)
}

func NewSerperClientWithClient(apiKey string, endpoint string, client *resty.Client) *SerperClient {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSerperTimeout)
	}
	client.SetRetryCount(0)

	return &SerperClient{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

func (c *SerperClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	if c == nil || c.apiKey == "" {
		return nil, fmt.Errorf("serper client is not configured")
	}

	body := serperRequest{
		Q:           query,
		GL:          "us",
		Autocorrect: false,
		Num:         serperResultCount,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-KEY", c.apiKey).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("serper request failed: %w", err)
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("serper returned status %d for query %q", response.StatusCode(), query)
	}

	var parsed SearchResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("serper response decode failed: %w", err)
	}
	if parsed.SearchParameters.Q == "" {
		parsed.SearchParameters.Q = query
	}

	return &parsed, nil
}

// IsCanceled reports whether a search failure was caller cancellation
// rather than an API problem; cancellation aborts the whole company fan-out
// while API failures only degrade that query's section.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
