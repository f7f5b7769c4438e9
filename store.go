package newscraper

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Store persists canonical articles in SQLite with a uniqueness constraint
// on url. It is an explicitly constructed handle with open/close lifecycle,
// passed to collaborators rather than accessed as ambient state.
type Store struct {
	db *sql.DB
}

// SaveResult reports the outcome of a single persistence attempt. A
// duplicate sighting is a normal outcome, not an error.
type SaveResult struct {
	Saved   bool     `json:"saved"`
	Reason  string   `json:"reason,omitempty"` // "duplicate" or "invalid"
	Article *Article `json:"article,omitempty"`
}

// OpenStore opens (creating if necessary) the article database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	// busy_timeout keeps concurrent upserts from surfacing SQLITE_BUSY.
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		headline TEXT NOT NULL,
		publisher TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		factual INTEGER,
		bias TEXT,
		classification TEXT,
		published_at TEXT,
		scraped_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_publisher ON articles (publisher);
	CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles (scraped_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticle inserts an article if no record with its URL exists. The
// first writer wins: a later sighting of the same URL never rewrites any
// field of the stored record, including scraped_at. A uniqueness violation
// surfaced by SQLite is reported as a duplicate, not an error.
func (s *Store) SaveArticle(a Article) (SaveResult, error) {
	if !a.Valid() {
		return SaveResult{Reason: "invalid"}, nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ScrapedAt.IsZero() {
		a.ScrapedAt = time.Now()
	}

	query := `
		INSERT OR IGNORE INTO articles (
			id, headline, publisher, content, url, published_at, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.Exec(query,
		a.ID.String(),
		a.Headline,
		a.Publisher,
		a.Content,
		a.URL,
		formatTime(a.PublishedAt),
		formatTime(&a.ScrapedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return SaveResult{Reason: "duplicate"}, nil
		}
		return SaveResult{}, fmt.Errorf("failed to insert article: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return SaveResult{Reason: "duplicate"}, nil
	}

	return SaveResult{Saved: true, Article: &a}, nil
}

// SaveCandidate normalizes a raw candidate and persists it. Candidates that
// normalize to an empty headline or URL are rejected locally without
// touching the database.
func (s *Store) SaveCandidate(c Candidate) (SaveResult, error) {
	article := c.Normalize()
	if !article.Valid() {
		return SaveResult{Reason: "invalid"}, nil
	}
	return s.SaveArticle(article)
}

// Recent returns up to limit articles ordered by scrape time descending,
// optionally filtered by publisher.
func (s *Store) Recent(limit int, publisher string) ([]Article, error) {
	query := `
		SELECT id, headline, publisher, content, url,
		       factual, bias, classification, published_at, scraped_at
		FROM articles
	`
	var args []any
	if publisher != "" {
		query += " WHERE publisher = ?"
		args = append(args, publisher)
	}
	query += " ORDER BY scraped_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var idStr, scrapedAtStr string
		var factual sql.NullInt64
		var bias, classification, publishedAtStr sql.NullString

		err := rows.Scan(
			&idStr, &a.Headline, &a.Publisher, &a.Content, &a.URL,
			&factual, &bias, &classification, &publishedAtStr, &scrapedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		a.ID, _ = uuid.Parse(idStr)
		a.ScrapedAt = parseTime(scrapedAtStr)
		if publishedAtStr.Valid {
			t := parseTime(publishedAtStr.String)
			a.PublishedAt = &t
		}
		if factual.Valid {
			v := int(factual.Int64)
			a.Factual = &v
		}
		if bias.Valid {
			a.Bias = bias.String
		}
		if classification.Valid {
			a.Classification = classification.String
		}

		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// Count returns the number of stored articles.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
