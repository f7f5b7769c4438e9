package newscraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/imajij/news-scrapper/scraper"
)

// ErrAllSourcesFailed is returned when every requested source failed and no
// candidates were extracted.
var ErrAllSourcesFailed = errors.New("all requested sources failed")

// SourceError records one publisher's failure during a multi-source run.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Summary aggregates a multi-source scrape: every extracted candidate in
// canonical form, persistence counts, and per-source failures.
type Summary struct {
	Articles   []Article     `json:"articles"`
	Total      int           `json:"total"`
	Saved      int           `json:"saved"`
	Duplicates int           `json:"duplicates"`
	Errors     []SourceError `json:"errors,omitempty"`
}

// Orchestrator runs fetch, extraction and normalization across publisher
// sources concurrently and drives persistence of the aggregated candidates.
type Orchestrator struct {
	Fetcher *Fetcher
	// Store is optional; nil disables persistence entirely.
	Store *Store
	// Rules overrides the built-in publisher registry. Nil means the
	// registry in the scraper package.
	Rules map[string]scraper.SourceRule
}

// NewOrchestrator creates an orchestrator over the built-in publisher
// rules.
func NewOrchestrator(fetcher *Fetcher, store *Store) *Orchestrator {
	return &Orchestrator{Fetcher: fetcher, Store: store}
}

func (o *Orchestrator) lookupRule(id string) (scraper.SourceRule, bool) {
	if o.Rules != nil {
		r, ok := o.Rules[id]
		return r, ok
	}
	return scraper.Lookup(id)
}

// ScrapeSources scrapes the requested publisher sources concurrently, each
// in its own goroutine so that one source's failure never affects a
// sibling. After all sources settle the aggregated candidates are persisted
// sequentially (when save is set and a store is present). A partial failure
// is a success carrying per-source errors; only when every source failed is
// ErrAllSourcesFailed returned alongside the summary.
func (o *Orchestrator) ScrapeSources(ctx context.Context, sourceIDs []string, limit int, save bool) (*Summary, error) {
	log.Info().Strs("sources", sourceIDs).Int("limit", limit).Msg("live scrape started")

	extracted := make([][]Candidate, len(sourceIDs))
	failures := make([]error, len(sourceIDs))

	var wg sync.WaitGroup
	for i, id := range sourceIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			extracted[i], failures[i] = o.scrapeSource(ctx, id, limit)
		}(i, id)
	}
	wg.Wait()

	summary := &Summary{}
	var candidates []Candidate
	failedCount := 0
	for i, id := range sourceIDs {
		if failures[i] != nil {
			failedCount++
			log.Warn().Err(failures[i]).Str("source", id).Msg("source scrape failed")
			summary.Errors = append(summary.Errors, SourceError{Source: id, Error: failures[i].Error()})
			continue
		}
		log.Info().Str("source", id).Int("count", len(extracted[i])).Msg("source scrape finished")
		candidates = append(candidates, extracted[i]...)
	}

	for _, c := range candidates {
		summary.Articles = append(summary.Articles, c.Normalize())
	}
	summary.Total = len(summary.Articles)

	if failedCount == len(sourceIDs) && len(candidates) == 0 {
		return summary, ErrAllSourcesFailed
	}

	if save && o.Store != nil {
		summary.Saved, summary.Duplicates = o.persist(candidates)
	}

	return summary, nil
}

// scrapeSource runs the extraction pipeline for a single publisher. When
// the listing page yields nothing and the rule declares a feed URL, the RSS
// fallback is tried before giving up.
func (o *Orchestrator) scrapeSource(ctx context.Context, id string, limit int) ([]Candidate, error) {
	rule, ok := o.lookupRule(id)
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", id)
	}

	candidates, err := ScrapeListing(ctx, o.Fetcher, rule, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && rule.FeedURL != "" {
		log.Info().Str("source", id).Msg("listing page empty, trying feed fallback")
		return FetchFeedCandidates(ctx, rule, o.Fetcher.UserAgent, limit)
	}
	return candidates, nil
}

// persist upserts candidates one at a time. A failed upsert is logged and
// skipped; it never aborts the rest of the batch.
func (o *Orchestrator) persist(candidates []Candidate) (saved, duplicates int) {
	for _, c := range candidates {
		result, err := o.Store.SaveCandidate(c)
		if err != nil {
			log.Warn().Err(err).Str("url", firstNonEmpty(c.Link, c.URL)).Msg("failed to save article")
			continue
		}
		switch {
		case result.Saved:
			saved++
		case result.Reason == "duplicate":
			duplicates++
		}
	}
	return saved, duplicates
}

// ScrapeURL runs the generic single-URL extractor and optionally persists
// the result. Extraction failures propagate as hard errors since there is
// exactly one target; a persistence failure only clears the saved flag.
func (o *Orchestrator) ScrapeURL(ctx context.Context, rawURL string, save bool) (*Article, bool, error) {
	log.Info().Str("url", rawURL).Msg("scraping single URL")

	article, err := ScrapeGenericArticle(ctx, o.Fetcher, rawURL)
	if err != nil {
		return nil, false, err
	}

	saved := false
	if save && o.Store != nil {
		result, err := o.Store.SaveArticle(*article)
		if err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("failed to save article")
		} else {
			saved = result.Saved
		}
	}

	return article, saved, nil
}
