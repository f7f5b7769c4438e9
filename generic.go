package newscraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Hard failures of generic extraction. The caller receives no partial
// article when either fires.
var (
	ErrNoHeadline  = errors.New("could not extract article headline")
	ErrThinContent = errors.New("could not extract sufficient article content")
)

const (
	// minHeadlineLength rejects headlines too short to be real.
	minHeadlineLength = 5
	// minContentLength is the floor after all fallback tiers.
	minContentLength = 50
	// minParagraphLength filters single-word and boilerplate paragraphs.
	minParagraphLength = 20
	// contentSweepThreshold triggers the next fallback tier while the
	// accumulated text stays below it.
	contentSweepThreshold = 100
)

// ScrapeGenericArticle fetches an arbitrary article URL and extracts its
// content using common HTML patterns: meta tags first, then progressively
// wider paragraph sweeps.
func ScrapeGenericArticle(ctx context.Context, f *Fetcher, rawURL string) (*Article, error) {
	doc, err := f.FetchHTML(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape article: %w", err)
	}
	return extractGenericArticle(doc, rawURL)
}

// extractGenericArticle applies the tiered extraction heuristic to a parsed
// document.
func extractGenericArticle(doc *goquery.Document, rawURL string) (*Article, error) {
	article := &Article{
		Headline:    extractHeadline(doc),
		Publisher:   extractPublisher(doc, rawURL),
		Content:     extractContent(doc),
		URL:         rawURL,
		PublishedAt: extractPublishedAt(doc),
		ScrapedAt:   time.Now(),
	}

	if len(article.Headline) < minHeadlineLength {
		return nil, ErrNoHeadline
	}
	if len(article.Content) < minContentLength {
		return nil, ErrThinContent
	}
	return article, nil
}

// extractPublisher resolves the site name from meta tags, falling back to
// the URL's host (first DNS label, capitalized) and finally "Unknown".
func extractPublisher(doc *goquery.Document, rawURL string) string {
	publisher := firstNonEmpty(
		metaContent(doc, "property", "og:site_name"),
		metaContent(doc, "name", "publisher"),
		metaContent(doc, "name", "application-name"),
		metaContent(doc, "property", "og:site"),
	)
	if publisher != "" {
		return publisher
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "Unknown"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// extractHeadline resolves the headline from meta tags, the first h1, or
// the page title split at its first pipe.
func extractHeadline(doc *goquery.Document) string {
	headline := firstNonEmpty(
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		strings.TrimSpace(doc.Find("h1").First().Text()),
	)
	if headline != "" {
		return headline
	}

	title, _, _ := strings.Cut(strings.TrimSpace(doc.Find("title").Text()), "|")
	return strings.TrimSpace(title)
}

// extractContent concatenates paragraph text in widening sweeps: inside an
// article element first, then the whole document, then with the meta
// description prepended. The result is trimmed and capped.
func extractContent(doc *goquery.Document) string {
	content := collectParagraphs(doc.Find("article"))

	if len(content) < contentSweepThreshold {
		content = collectParagraphs(doc.Selection)
	}

	if len(content) < contentSweepThreshold {
		description := firstNonEmpty(
			metaContent(doc, "property", "og:description"),
			metaContent(doc, "name", "description"),
		)
		content = strings.TrimSpace(description + "\n\n" + content)
	}

	if len(content) > MaxContentLength {
		content = content[:MaxContentLength]
	}
	return strings.TrimSpace(content)
}

// collectParagraphs joins the text of paragraphs under sel, skipping very
// short ones.
func collectParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) > minParagraphLength {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// extractPublishedAt tries publish-date meta tags and time elements.
// Absent or unparseable dates yield nil.
func extractPublishedAt(doc *goquery.Document) *time.Time {
	dateStr := firstNonEmpty(
		metaContent(doc, "property", "article:published_time"),
		metaContent(doc, "name", "publishdate"),
		metaContent(doc, "property", "og:published_time"),
	)
	if dateStr == "" {
		dateStr, _ = doc.Find("time").First().Attr("datetime")
	}
	return parsePublishedAt(dateStr)
}

// metaContent reads the content attribute of a meta tag matched by its
// property or name attribute.
func metaContent(doc *goquery.Document, attr, value string) string {
	selector := fmt.Sprintf(`meta[%s=%q]`, attr, value)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
