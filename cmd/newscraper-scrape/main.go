// Command newscraper-scrape runs the scraping pipeline once from the
// command line: either a multi-source listing scrape or a single-URL
// generic scrape, with optional persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	newscraper "github.com/imajij/news-scrapper"
	"github.com/imajij/news-scrapper/config"
	"github.com/imajij/news-scrapper/scraper"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		sourcesCSV string
		singleURL  string
		limit      int
		save       bool
	)
	flag.StringVar(&sourcesCSV, "sources", "toi", "Comma-separated publisher identifiers")
	flag.StringVar(&singleURL, "url", "", "Scrape a single article URL instead of listing pages")
	flag.IntVar(&limit, "limit", 10, "Maximum articles per source")
	flag.BoolVar(&save, "save", false, "Persist scraped articles to the database")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Resolve(nil)

	var store *newscraper.Store
	if save {
		var err error
		store, err = newscraper.OpenStore(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open article store")
		}
		defer store.Close()
	}

	fetcher := newscraper.NewFetcher(cfg.FetchTimeout, cfg.UserAgent)
	orch := newscraper.NewOrchestrator(fetcher, store)
	ctx := context.Background()

	if singleURL != "" {
		article, saved, err := orch.ScrapeURL(ctx, singleURL, save)
		if err != nil {
			log.Fatal().Err(err).Str("url", singleURL).Msg("scrape failed")
		}
		fmt.Printf("%s\n%s — %s\n\n", article.Headline, article.Publisher, article.URL)
		fmt.Println(article.Content)
		if save {
			fmt.Printf("\nsaved: %v\n", saved)
		}
		return
	}

	var sources []string
	for _, s := range strings.Split(sourcesCSV, ",") {
		if id := strings.TrimSpace(s); id != "" {
			sources = append(sources, id)
		}
	}
	for _, id := range sources {
		if _, ok := scraper.Lookup(id); !ok {
			log.Fatal().Str("source", id).Strs("available", scraper.IDs()).Msg("unknown source")
		}
	}

	summary, err := orch.ScrapeSources(ctx, sources, limit, save)
	if err != nil {
		log.Fatal().Err(err).Msg("scrape failed")
	}

	for i, a := range summary.Articles {
		fmt.Printf("%d. [%s] %s\n   %s\n", i+1, a.Publisher, a.Headline, a.URL)
	}
	fmt.Printf("\n%d articles", summary.Total)
	if save {
		fmt.Printf(", %d new, %d duplicates", summary.Saved, summary.Duplicates)
	}
	fmt.Println()
	for _, e := range summary.Errors {
		fmt.Fprintf(os.Stderr, "source %s failed: %s\n", e.Source, e.Error)
	}
}
