package newscraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// maxRedirects caps redirect following on listing and article fetches.
const maxRedirects = 5

// ErrContentType indicates a response body that is not HTML.
var ErrContentType = errors.New("unexpected content type")

// FetchError describes a failed page retrieval. Timeout is set when the
// configured deadline elapsed; StatusCode is set for HTTP-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out fetching %s", e.URL)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves raw HTML pages. Timeout and UserAgent are injected by
// the caller (environment-driven in the API binary) rather than read from
// globals. Retry policy, if any, belongs to the orchestrator, not here.
type Fetcher struct {
	Timeout   time.Duration
	UserAgent string

	client *http.Client
}

// NewFetcher creates a fetcher with the given per-request timeout and
// User-Agent string. Zero values fall back to a 10 second timeout and a
// default bot identifier.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "NewsScraperBot/1.0"
	}
	f := &Fetcher{Timeout: timeout, UserAgent: userAgent}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return f
}

// FetchHTML retrieves a URL and parses the body as an HTML document.
// Accepted statuses are [200,400); anything else is a *FetchError. Non-HTML
// bodies fail with ErrContentType.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if ct := resp.Header.Get("Content-Type"); !isHTMLContentType(ct) {
		return nil, fmt.Errorf("%w %q from %s", ErrContentType, ct, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(err), Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isHTMLContentType accepts text/html and XHTML bodies. An absent header is
// accepted; some listing pages omit it.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
