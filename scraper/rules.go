// Package scraper defines the per-publisher extraction rules consumed by
// the generic structured scraping algorithm. Each supported publisher is a
// data record here rather than its own scraping procedure.
package scraper

import "sort"

// SourceRule describes how to pull article candidates off one publisher's
// listing page.
type SourceRule struct {
	// ID is the short identifier used in API requests and stored records.
	ID string `json:"id"`
	// Name is the human-readable publisher name.
	Name string `json:"name"`
	// BaseURL is the site root; relative links resolve against it.
	BaseURL string `json:"base_url"`
	// ListingPath is appended to BaseURL to form the listing page URL.
	ListingPath string `json:"listing_path"`
	// AnchorSelectors are candidate selectors for article anchor elements,
	// tried in priority order. The first selector that matches anything on
	// the page wins.
	AnchorSelectors []string `json:"anchor_selectors"`
	// TitleSelector, when set, is applied inside a matched anchor to find
	// the title text. Empty means the anchor's own text.
	TitleSelector string `json:"title_selector,omitempty"`
	// ContainerSelector scopes the nearest enclosing element searched for a
	// summary and publish date.
	ContainerSelector string `json:"container_selector"`
	// SummarySelector finds a best-effort summary inside the container.
	SummarySelector string `json:"summary_selector"`
	// DateSelector finds an element whose datetime attribute holds the
	// publish date, if the listing exposes one.
	DateSelector string `json:"date_selector,omitempty"`
	// FeedURL, when set, names an RSS feed used as a fallback when the
	// listing page yields no candidates.
	FeedURL string `json:"feed_url,omitempty"`
}

// ListingURL returns the full URL of the publisher's listing page.
func (r SourceRule) ListingURL() string {
	return r.BaseURL + r.ListingPath
}

var rules = map[string]SourceRule{
	"toi": {
		ID:                "toi",
		Name:              "Times of India",
		BaseURL:           "https://timesofindia.indiatimes.com",
		ListingPath:       "/home/headlines",
		AnchorSelectors:   []string{`a[href*="/articleshow/"]`},
		ContainerSelector: "li, article, div.content",
		SummarySelector:   "p, .synopsis",
		DateSelector:      "time, .time, .date, [datetime]",
	},
	"bbc": {
		ID:                "bbc",
		Name:              "BBC",
		BaseURL:           "https://www.bbc.com",
		ListingPath:       "/news",
		AnchorSelectors:   []string{`a[data-testid="internal-link"]`},
		ContainerSelector: `div[data-testid="card-text-wrapper"], article, li`,
		SummarySelector:   "p",
		FeedURL:           "https://feeds.bbci.co.uk/news/rss.xml",
	},
	"ht": {
		ID:          "ht",
		Name:        "Hindustan Times",
		BaseURL:     "https://www.hindustantimes.com",
		ListingPath: "/india-news",
		AnchorSelectors: []string{
			"h3.hdg3 a",
			"div.cartHolder a, div.bigStory a, div.media-box a",
		},
		ContainerSelector: "div.cartHolder, div.bigStory, article",
		SummarySelector:   "p, div.sortDec",
		DateSelector:      "span.dateTime, time",
	},
	"guardian": {
		ID:                "guardian",
		Name:              "The Guardian",
		BaseURL:           "https://www.theguardian.com",
		ListingPath:       "/international",
		AnchorSelectors:   []string{`a[data-link-name="article"]`},
		TitleSelector:     "span",
		ContainerSelector: "li, article, div",
		SummarySelector:   "p",
		FeedURL:           "https://www.theguardian.com/international/rss",
	},
}

// Lookup returns the rule for a publisher identifier.
func Lookup(id string) (SourceRule, bool) {
	r, ok := rules[id]
	return r, ok
}

// IDs returns the known publisher identifiers in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
