package newscraper

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imajij/news-scrapper/scraper"
)

// Test helper: API server over an injected rule set
func setupTestAPI(t *testing.T, rules map[string]scraper.SourceRule, store *Store, cache *ResponseCache) http.Handler {
	t.Helper()
	orch := &Orchestrator{
		Fetcher: NewFetcher(time.Second, "test-agent"),
		Store:   store,
		Rules:   rules,
	}
	return NewAPIServer(orch, store, cache).Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestHandleHealth verifies the health endpoint
func TestHandleHealth(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

// TestHandleLiveNews_InvalidSource verifies the 400 reply lists the valid
// identifiers
func TestHandleLiveNews_InvalidSource(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news?sources=cnn", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "cnn")
	assert.Equal(t, []string{"bbc", "guardian", "ht", "toi"}, resp.AvailableSources)
}

// TestHandleLiveNews verifies the success envelope against a test publisher
func TestHandleLiveNews(t *testing.T) {
	listing := newListingServer(t, testListingHTML)
	rules := map[string]scraper.SourceRule{"toi": serverRule("toi", listing)}
	handler := setupTestAPI(t, rules, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news?sources=toi&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp NewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"toi"}, resp.Sources)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "First story from the listing", resp.Data[0].Headline)
	assert.Empty(t, resp.Errors)
}

// TestHandleLiveNews_DefaultSource verifies the fallback when no sources
// are requested
func TestHandleLiveNews_DefaultSource(t *testing.T) {
	listing := newListingServer(t, testListingHTML)
	rules := map[string]scraper.SourceRule{"toi": serverRule("toi", listing)}
	handler := setupTestAPI(t, rules, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp NewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"toi"}, resp.Sources)
}

// TestHandleLiveNews_AllFailed verifies the 500 envelope when every source
// fails
func TestHandleLiveNews_AllFailed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	rules := map[string]scraper.SourceRule{"toi": serverRule("toi", down)}
	handler := setupTestAPI(t, rules, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news?sources=toi", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp NewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "toi", resp.Errors[0].Source)
}

// TestHandleLiveNews_CacheHit verifies the second identical request is
// served without re-scraping
func TestHandleLiveNews_CacheHit(t *testing.T) {
	var hits atomic.Int64
	listing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, testListingHTML)
	}))
	t.Cleanup(listing.Close)

	rules := map[string]scraper.SourceRule{"toi": serverRule("toi", listing)}
	handler := setupTestAPI(t, rules, nil, NewResponseCache(time.Minute))

	first := doRequest(t, handler, http.MethodGet, "/api/news?sources=toi&limit=5", "")
	second := doRequest(t, handler, http.MethodGet, "/api/news?sources=toi&limit=5", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(1), hits.Load(), "second request should hit the cache")
}

// TestHandleSources verifies the publisher registry listing
func TestHandleSources(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news/sources", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Total  int    `json:"total"`
		Data   []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 4, resp.Total)

	names := map[string]string{}
	for _, s := range resp.Data {
		names[s.ID] = s.Name
	}
	assert.Equal(t, "Times of India", names["toi"])
	assert.Equal(t, "BBC", names["bbc"])
}

// TestHandleStored verifies reads from storage with and without the
// publisher filter
func TestHandleStored(t *testing.T) {
	store := setupTestStore(t)
	for i, publisher := range []string{"bbc", "toi", "bbc"} {
		_, err := store.SaveArticle(Article{
			Headline:  fmt.Sprintf("Stored headline number %d", i),
			Publisher: publisher,
			URL:       fmt.Sprintf("https://example.com/stored/%d", i),
		})
		require.NoError(t, err)
	}

	handler := setupTestAPI(t, nil, store, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news/stored", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status    string           `json:"status"`
		Total     int              `json:"total"`
		Publisher string           `json:"publisher"`
		Data      []ArticleSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "all", resp.Publisher)

	rec = doRequest(t, handler, http.MethodGet, "/api/news/stored?publisher=bbc&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "bbc", resp.Publisher)
	for _, a := range resp.Data {
		assert.Equal(t, "bbc", a.Publisher)
	}
}

// TestHandleStored_NoStore verifies the error when storage is not wired
func TestHandleStored_NoStore(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/news/stored", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Storage is not configured")
}

// TestHandleScrapeURL_Validation verifies request validation happens before
// any fetch
func TestHandleScrapeURL_Validation(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/news/scrape-url", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "URL is required")

	rec = doRequest(t, handler, http.MethodPost, "/api/news/scrape-url", `{"url":"notaurl"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid URL format")

	rec = doRequest(t, handler, http.MethodPost, "/api/news/scrape-url", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")

	rec = doRequest(t, handler, http.MethodGet, "/api/news/scrape-url", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestHandleScrapeURL verifies a successful scrape with persistence
func TestHandleScrapeURL(t *testing.T) {
	articleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<meta property="og:site_name" content="Example News">
			<meta property="og:title" content="A Story Worth Scraping">
		</head><body><article>
			<p>The body paragraph carries enough words to satisfy the content floor.</p>
		</article></body></html>`)
	}))
	t.Cleanup(articleServer.Close)

	store := setupTestStore(t)
	handler := setupTestAPI(t, nil, store, nil)

	body := fmt.Sprintf(`{"url":%q,"saveToDb":true}`, articleServer.URL)
	rec := doRequest(t, handler, http.MethodPost, "/api/news/scrape-url", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string  `json:"status"`
		Saved  bool    `json:"saved"`
		Data   Article `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.True(t, resp.Saved)
	assert.Equal(t, "A Story Worth Scraping", resp.Data.Headline)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestParseLimit verifies the clamp behaviour
func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, parseLimit("", 10, 50))
	assert.Equal(t, 5, parseLimit("5", 10, 50))
	assert.Equal(t, 50, parseLimit("500", 10, 50))
	assert.Equal(t, 10, parseLimit("0", 10, 50))
	assert.Equal(t, 10, parseLimit("-3", 10, 50))
	assert.Equal(t, 10, parseLimit("abc", 10, 50))
	assert.Equal(t, 100, parseLimit("101", 20, 100))
}

// TestParseSources verifies splitting and normalization
func TestParseSources(t *testing.T) {
	assert.Equal(t, []string{"toi"}, parseSources(""))
	assert.Equal(t, []string{"toi", "bbc"}, parseSources("TOI, bbc"))
	assert.Equal(t, []string{"toi"}, parseSources(", ,"))
}

// TestCORSMiddleware verifies cross-origin headers and preflight handling
func TestCORSMiddleware(t *testing.T) {
	handler := setupTestAPI(t, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodOptions, "/api/news", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = doRequest(t, handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
