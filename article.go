package newscraper

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Size caps for persisted articles. Content beyond MaxContentLength is
// truncated rather than rejected.
const (
	MaxHeadlineLength = 1000
	MaxContentLength  = 20000
)

// Article is the canonical, validated record eligible for persistence and
// returned by the API.
type Article struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Headline  string    `json:"headline"`
	Publisher string    `json:"publisher"`
	Content   string    `json:"content,omitempty"`
	URL       string    `json:"url"`

	// Enrichment fields reserved for downstream classification. Never
	// populated by the scraping core.
	Factual        *int   `json:"factual,omitempty"`
	Bias           string `json:"bias,omitempty"`
	Classification string `json:"classification,omitempty"`

	PublishedAt *time.Time `json:"publishedAt"`
	ScrapedAt   time.Time  `json:"scrapedAt"`
}

// Candidate is a raw extraction result before normalization. Different
// producers populate different fields (a listing scraper emits Title/Link/
// Source, the generic scraper emits Headline/URL/Publisher), so every known
// alias has its own slot and Normalize resolves them in a fixed priority
// order.
type Candidate struct {
	Title    string `json:"title,omitempty"`
	Headline string `json:"headline,omitempty"`
	Summary  string `json:"summary,omitempty"`

	Content string `json:"content,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`

	Link string `json:"link,omitempty"`
	URL  string `json:"url,omitempty"`

	Source    string `json:"source,omitempty"`
	Site      string `json:"site,omitempty"`
	Publisher string `json:"publisher,omitempty"`

	PublishedAt *time.Time `json:"publishedAt"`
	ScrapedAt   time.Time  `json:"scrapedAt"`
}

// Normalize maps a candidate onto the canonical article shape. Alias
// resolution order per field:
//
//	headline:  title, headline, summary
//	publisher: publisher, source, site (else "unknown")
//	content:   content, summary, excerpt
//	url:       link, url
//
// The result may still be invalid (empty headline or URL); callers check
// Valid before persisting.
func (c Candidate) Normalize() Article {
	scrapedAt := c.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	headline := firstNonEmpty(c.Title, c.Headline, c.Summary)
	if len(headline) > MaxHeadlineLength {
		headline = headline[:MaxHeadlineLength]
	}

	content := firstNonEmpty(c.Content, c.Summary, c.Excerpt)
	if len(content) > MaxContentLength {
		content = content[:MaxContentLength]
	}

	publisher := firstNonEmpty(c.Publisher, c.Source, c.Site)
	if publisher == "" {
		publisher = "unknown"
	}

	return Article{
		Headline:    headline,
		Publisher:   publisher,
		Content:     content,
		URL:         firstNonEmpty(c.Link, c.URL),
		PublishedAt: c.PublishedAt,
		ScrapedAt:   scrapedAt,
	}
}

// Valid reports whether the article carries the two fields that must never
// be empty in a persisted record.
func (a Article) Valid() bool {
	return a.Headline != "" && a.URL != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// publishedAtLayouts are tried in order when parsing date strings found in
// meta tags and datetime attributes.
var publishedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePublishedAt parses a best-effort timestamp. Unparseable or empty
// input yields nil rather than an error.
func parsePublishedAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
