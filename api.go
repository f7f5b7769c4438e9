package newscraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imajij/news-scrapper/scraper"
)

// Limit clamps for the live-scrape and stored-article endpoints.
const (
	defaultLiveLimit   = 10
	maxLiveLimit       = 50
	defaultStoredLimit = 20
	maxStoredLimit     = 100
)

// defaultSource is scraped when the request names no sources.
const defaultSource = "toi"

// APIServer exposes the scraping pipeline over REST.
type APIServer struct {
	orch  *Orchestrator
	store *Store
	cache *ResponseCache
}

// NewAPIServer creates an API server. store may be nil (stored-article
// reads then fail) and cache may be nil (every request recomputes).
func NewAPIServer(orch *Orchestrator, store *Store, cache *ResponseCache) *APIServer {
	return &APIServer{orch: orch, store: store, cache: cache}
}

// ArticleSummary is the listing view of an article, without the content
// body.
type ArticleSummary struct {
	ID             string  `json:"id,omitempty"`
	Headline       string  `json:"headline"`
	Publisher      string  `json:"publisher"`
	URL            string  `json:"url"`
	Factual        *int    `json:"factual,omitempty"`
	Bias           string  `json:"bias,omitempty"`
	Classification string  `json:"classification,omitempty"`
	PublishedAt    *string `json:"publishedAt"`
	ScrapedAt      string  `json:"scrapedAt"`
}

func summarize(a Article) ArticleSummary {
	s := ArticleSummary{
		Headline:       a.Headline,
		Publisher:      a.Publisher,
		URL:            a.URL,
		Factual:        a.Factual,
		Bias:           a.Bias,
		Classification: a.Classification,
		ScrapedAt:      a.ScrapedAt.Format(timeFormat),
	}
	if a.ID != uuid.Nil {
		s.ID = a.ID.String()
	}
	if a.PublishedAt != nil {
		t := a.PublishedAt.Format(timeFormat)
		s.PublishedAt = &t
	}
	return s
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// NewsResponse is the envelope for the live-scrape endpoint.
type NewsResponse struct {
	Status  string           `json:"status"`
	Total   int              `json:"total"`
	Saved   int              `json:"saved"`
	Sources []string         `json:"sources"`
	Message string           `json:"message"`
	Errors  []SourceError    `json:"errors,omitempty"`
	Data    []ArticleSummary `json:"data"`
}

// ErrorResponse is the envelope for all error replies.
type ErrorResponse struct {
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	AvailableSources []string `json:"availableSources,omitempty"`
}

// Routes builds the HTTP handler with all routes registered and CORS
// applied.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.HandleIndex)
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.HandleFunc("/api/news", s.HandleLiveNews)
	mux.HandleFunc("/api/news/sources", s.HandleSources)
	mux.HandleFunc("/api/news/stored", s.HandleStored)
	mux.HandleFunc("/api/news/scrape-url", s.HandleScrapeURL)

	return CORSMiddleware(mux)
}

// HandleIndex handles GET / with a small service descriptor.
func (s *APIServer) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "Route not found", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"name":   "News Scraper API",
		"endpoints": map[string]string{
			"live":      "/api/news?sources=toi,bbc,ht,guardian&limit=10",
			"stored":    "/api/news/stored?limit=20&publisher=bbc",
			"sources":   "/api/news/sources",
			"scrapeURL": "/api/news/scrape-url",
		},
		"availableSources": scraper.IDs(),
	})
}

// HandleHealth handles GET /healthz.
func (s *APIServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLiveNews handles GET /api/news?sources=toi,bbc&limit=10. Unknown
// source identifiers are rejected with 400 before any network I/O. Partial
// failures return 200 with an errors list; only a total failure is a 500.
func (s *APIServer) HandleLiveNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultLiveLimit, maxLiveLimit)
	sources := parseSources(r.URL.Query().Get("sources"))

	var invalid []string
	for _, id := range sources {
		if _, ok := s.orch.lookupRule(id); !ok {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		s.writeError(w, http.StatusBadRequest,
			"Invalid sources: "+strings.Join(invalid, ", "), scraper.IDs())
		return
	}

	cacheKey := fmt.Sprintf("news:%s:%d", strings.Join(sources, ","), limit)
	if body, ok := s.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	summary, err := s.orch.ScrapeSources(r.Context(), sources, limit, true)
	if err != nil {
		if errors.Is(err, ErrAllSourcesFailed) {
			s.writeJSON(w, http.StatusInternalServerError, NewsResponse{
				Status:  "error",
				Sources: sources,
				Message: "Failed to scrape news from all requested sources",
				Errors:  summary.Errors,
				Data:    []ArticleSummary{},
			})
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to scrape news: "+err.Error(), nil)
		return
	}

	data := make([]ArticleSummary, 0, len(summary.Articles))
	for _, a := range summary.Articles {
		data = append(data, summarize(a))
	}

	resp := NewsResponse{
		Status:  "success",
		Total:   summary.Total,
		Saved:   summary.Saved,
		Sources: sources,
		Message: fmt.Sprintf("Scraped %d articles from %s", summary.Total, strings.Join(sources, ", ")),
		Errors:  summary.Errors,
		Data:    data,
	}

	if body, err := json.Marshal(resp); err == nil {
		s.cache.Set(cacheKey, body)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleSources handles GET /api/news/sources.
func (s *APIServer) HandleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	ids := scraper.IDs()
	type sourceInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	data := make([]sourceInfo, 0, len(ids))
	for _, id := range ids {
		rule, _ := scraper.Lookup(id)
		data = append(data, sourceInfo{ID: id, Name: rule.Name})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"total":  len(data),
		"data":   data,
	})
}

// HandleStored handles GET /api/news/stored?limit=20&publisher=bbc.
func (s *APIServer) HandleStored(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusInternalServerError, "Storage is not configured", nil)
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultStoredLimit, maxStoredLimit)
	publisher := r.URL.Query().Get("publisher")
	if publisher == "all" {
		publisher = ""
	}

	articles, err := s.store.Recent(limit, publisher)
	if err != nil {
		log.Error().Err(err).Msg("failed to read stored articles")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch stored articles", nil)
		return
	}

	data := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		data = append(data, summarize(a))
	}

	filter := publisher
	if filter == "" {
		filter = "all"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"total":     len(data),
		"publisher": filter,
		"data":      data,
	})
}

// ScrapeURLRequest is the body of POST /api/news/scrape-url.
type ScrapeURLRequest struct {
	URL      string `json:"url"`
	SaveToDB bool   `json:"saveToDb"`
}

// HandleScrapeURL handles POST /api/news/scrape-url. The URL is validated
// before any fetch is attempted.
func (s *APIServer) HandleScrapeURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req ScrapeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "URL is required", nil)
		return
	}
	if !isValidArticleURL(req.URL) {
		s.writeError(w, http.StatusBadRequest, "Invalid URL format", nil)
		return
	}

	article, saved, err := s.orch.ScrapeURL(r.Context(), req.URL, req.SaveToDB)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to scrape URL: "+err.Error(), nil)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Article scraped successfully",
		"saved":   saved,
		"data":    article,
	})
}

// parseLimit parses a limit query parameter, substituting def for missing
// or invalid input and clamping to [1,max].
func parseLimit(raw string, def, max int) int {
	limit := def
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// parseSources splits a comma-separated sources parameter. An absent
// parameter means the default source.
func parseSources(raw string) []string {
	if raw == "" {
		return []string{defaultSource}
	}
	var sources []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.ToLower(strings.TrimSpace(part)); id != "" {
			sources = append(sources, id)
		}
	}
	if len(sources) == 0 {
		return []string{defaultSource}
	}
	return sources
}

// isValidArticleURL requires a syntactically valid absolute http(s) URL.
func isValidArticleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, message string, availableSources []string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Status:           "error",
		Message:          message,
		AvailableSources: availableSources,
	})
}

// CORSMiddleware adds CORS headers to responses and answers preflight
// requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
