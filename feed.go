package newscraper

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/imajij/news-scrapper/scraper"
)

// FetchFeedCandidates pulls article candidates from a publisher's RSS feed.
// Used as a fallback when the publisher's listing page yields no candidates
// (markup drift is common; feeds are stable). The gofeed parser handles both
// RSS and Atom transparently.
func FetchFeedCandidates(ctx context.Context, rule scraper.SourceRule, userAgent string, limit int) ([]Candidate, error) {
	if rule.FeedURL == "" {
		return nil, fmt.Errorf("source %s has no feed URL", rule.ID)
	}

	fp := gofeed.NewParser()
	fp.UserAgent = userAgent

	feed, err := fp.ParseURLWithContext(rule.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", rule.Name, err)
	}

	candidates := make([]Candidate, 0, limit)
	seenTitles := make(map[string]bool)

	for _, item := range feed.Items {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		if item.Title == "" || item.Link == "" || len(item.Title) < minTitleLength {
			continue
		}
		if seenTitles[item.Title] {
			continue
		}
		seenTitles[item.Title] = true

		var publishedAt *time.Time
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = item.UpdatedParsed
		}

		candidates = append(candidates, Candidate{
			Title:       item.Title,
			Summary:     item.Description,
			Link:        absolutizeURL(item.Link, rule.BaseURL),
			Source:      rule.ID,
			PublishedAt: publishedAt,
			ScrapedAt:   time.Now(),
		})
	}

	return candidates, nil
}
