package newscraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/imajij/news-scrapper/scraper"
)

// minTitleLength filters navigation links, icons and other short noise out
// of listing-page extraction.
const minTitleLength = 10

// ScrapeListing fetches a publisher's listing page and extracts up to limit
// article candidates according to its rule.
func ScrapeListing(ctx context.Context, f *Fetcher, rule scraper.SourceRule, limit int) ([]Candidate, error) {
	doc, err := f.FetchHTML(ctx, rule.ListingURL())
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", rule.Name, err)
	}
	return extractCandidates(doc, rule, limit), nil
}

// extractCandidates applies a publisher rule to a parsed listing page. The
// rule's anchor selectors are tried in priority order; the first one that
// matches any elements is used. Candidates with missing or short titles are
// skipped, repeated titles are collapsed, and extraction stops early once
// limit distinct candidates are collected.
func extractCandidates(doc *goquery.Document, rule scraper.SourceRule, limit int) []Candidate {
	var candidates []Candidate
	seenTitles := make(map[string]bool)

	for _, selector := range rule.AnchorSelectors {
		anchors := doc.Find(selector)
		if anchors.Length() == 0 {
			continue
		}

		anchors.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if limit > 0 && len(candidates) >= limit {
				return false
			}

			title := anchorTitle(el, rule)
			href, _ := el.Attr("href")
			if title == "" || href == "" || len(title) < minTitleLength {
				return true
			}
			if seenTitles[title] {
				return true
			}
			seenTitles[title] = true

			container := el.Closest(rule.ContainerSelector)

			var summary string
			if rule.SummarySelector != "" {
				summary = strings.TrimSpace(container.Find(rule.SummarySelector).First().Text())
			}

			var publishedAt *time.Time
			if rule.DateSelector != "" {
				if datetime, ok := container.Find(rule.DateSelector).First().Attr("datetime"); ok {
					publishedAt = parsePublishedAt(datetime)
				}
			}

			candidates = append(candidates, Candidate{
				Title:       title,
				Summary:     summary,
				Link:        absolutizeURL(href, rule.BaseURL),
				Source:      rule.ID,
				PublishedAt: publishedAt,
				ScrapedAt:   time.Now(),
			})
			return true
		})

		// A matching selector ends the priority search even when it
		// produced fewer than limit candidates.
		break
	}

	return candidates
}

// anchorTitle extracts the title text from a matched anchor. Rules whose
// anchor wraps markup (e.g. headline spans) set TitleSelector; the anchor's
// own text is the fallback.
func anchorTitle(el *goquery.Selection, rule scraper.SourceRule) string {
	if rule.TitleSelector != "" {
		if title := strings.TrimSpace(el.Find(rule.TitleSelector).Text()); title != "" {
			return title
		}
	}
	return strings.Join(strings.Fields(el.Text()), " ")
}

// absolutizeURL resolves href against base. An unparseable href or base is
// passed through unchanged rather than aborting extraction.
func absolutizeURL(href, base string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
