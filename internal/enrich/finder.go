// Package enrich discovers decision makers at marketplace companies: it
// fans out role-focused Google searches per company, formats the results,
// and extracts structured contacts with a language model.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize bounds one processing batch. The search budget allows
// roughly 50 req/s and each company costs 5 queries, so 14 companies keep a
// batch comfortably inside one rate window.
const DefaultBatchSize = 14

// searchRateKey is the rate-limiter bucket shared by all search calls.
const searchRateKey = "serper"

// searchQueryTemplates are the role-focused queries issued per company,
// rendered as "<domain> <company name> <suffix>".
var searchQueryTemplates = []string{
	"CEO -zoominfo -dnb",
	"Founder owner -zoominfo -dnb",
	"president chairman -zoominfo -dnb",
	"partner -zoominfo -dnb",
	"contact email",
}

// SearchClient is the Serper port.
type SearchClient interface {
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// ContactExtractor is the LLM extraction port.
type ContactExtractor interface {
	ExtractContacts(ctx context.Context, summary string) ([]domain.Contact, error)
}

// Finder runs the enrichment pipeline for companies.
type Finder struct {
	search    SearchClient
	extractor ContactExtractor
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	batchSize int
}

func NewFinder(
	search SearchClient,
	extractor ContactExtractor,
	limiter ratelimit.RateLimiter,
	batchSize int,
	logger *zap.Logger,
) (*Finder, error) {
	if search == nil {
		return nil, fmt.Errorf("search client is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("contact extractor is required")
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Finder{
		search:    search,
		extractor: extractor,
		limiter:   limiter,
		logger:    logger,
		batchSize: batchSize,
	}, nil
}

func (f *Finder) BatchSize() int { return f.batchSize }

// EnrichCompany runs every search query for one company concurrently, then
// one extraction call over the combined summary. A failed query degrades to
// an empty section instead of failing the company; cancellation aborts.
func (f *Finder) EnrichCompany(ctx context.Context, company domain.Company) ([]domain.Contact, error) {
	if err := company.Validate(); err != nil {
		return nil, err
	}

	queries := renderQueries(company)
	responses := make([]*SearchResponse, len(queries))

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range queries {
		g.Go(func() error {
			if f.limiter != nil {
				if err := f.limiter.Wait(groupCtx, searchRateKey); err != nil {
					return err
				}
			}

			response, err := f.search.Search(groupCtx, queries[i])
			if err != nil {
				if IsCanceled(err) {
					return err
				}
				f.logger.Warn("search query failed",
					zap.String("companyDomain", company.Domain),
					zap.String("query", queries[i]),
					zap.Error(err),
				)
				responses[i] = &SearchResponse{SearchParameters: SearchParameters{Q: queries[i]}}
				return nil
			}

			responses[i] = response
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := FormatSearchResults(responses)

	contacts, err := f.extractor.ExtractContacts(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("contact extraction failed for %s: %w", company.Domain, err)
	}

	stamped := make([]domain.Contact, 0, len(contacts))
	for i := range contacts {
		c := contacts[i]
		c.ID = uuid.NewString()
		c.CompanyDomain = company.Domain
		c.CompanyName = company.Name
		c.LinkedInURL = domain.ValidateLinkedInURL(c.LinkedInURL)
		stamped = append(stamped, c)
	}

	return stamped, nil
}

// EnrichBatch processes up to BatchSize companies concurrently. It returns
// the contacts found plus how many companies failed; only cancellation is
// returned as an error.
func (f *Finder) EnrichBatch(ctx context.Context, companies []domain.Company) ([]domain.Contact, int, error) {
	if len(companies) == 0 {
		return nil, 0, nil
	}
	if len(companies) > f.batchSize {
		return nil, 0, fmt.Errorf("%w: batch exceeds %d companies", domain.ErrValidation, f.batchSize)
	}

	var (
		mu       sync.Mutex
		contacts []domain.Contact
		failed   int
	)

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range companies {
		company := companies[i]
		g.Go(func() error {
			found, err := f.EnrichCompany(groupCtx, company)
			if err != nil {
				if groupCtx.Err() != nil {
					return err
				}
				f.logger.Warn("company enrichment failed",
					zap.String("companyDomain", company.Domain),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			contacts = append(contacts, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failed, err
	}

	return contacts, failed, nil
}

func renderQueries(company domain.Company) []string {
	queries := make([]string, 0, len(searchQueryTemplates))
	for _, suffix := range searchQueryTemplates {
		queries = append(queries, fmt.Sprintf("%s %s %s", company.Domain, company.Name, suffix))
	}
	return queries
}

// FormatSearchResults renders search responses into the summary layout the
// extraction prompt expects: per-query sections headed by the query, with
// up to four organic hits each.
func FormatSearchResults(responses []*SearchResponse) string {
	sections := make([]string, 0, len(responses))

	for _, response := range responses {
		if response == nil {
			continue
		}

		query := response.SearchParameters.Q
		if query == "" {
			query = "(No query found)"
		}

		items := make([]string, 0, 4)
		for _, organic := range response.Organic {
			if len(items) == 4 {
				break
			}
			if organic.Title == "" || organic.Link == "" || organic.Snippet == "" {
				continue
			}
			items = append(items, fmt.Sprintf("- %s\n  %s\n  %s", organic.Title, organic.Link, organic.Snippet))
		}

		sections = append(sections, fmt.Sprintf("**Search Query:** %s\n\n%s", query, strings.Join(items, "\n---\n")))
	}

	return strings.Join(sections, "\n\n\n")
}
