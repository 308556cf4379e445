package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	maxExcerptRunes  = 5000
	fetchConcurrency = 4

	// NoCurrentNews is the digest when nothing survived filtering.
	NoCurrentNews = "No current flood news articles found. All results were either from non-news sites or contained historical data."
)

// FloodQueries returns the search queries for the given year.
func FloodQueries(year int) []string {
	return []string{
		fmt.Sprintf("flood warning today %d India news", year),
		fmt.Sprintf("Chennai Tamil Nadu flood alert today %d", year),
		"India flood news today latest",
	}
}

// Article is a page that passed both the domain and the currentness filter.
type Article struct {
	Title   string
	URL     string
	Excerpt string
}

// Scraper runs the flood queries concurrently and builds a news digest.
type Scraper struct {
	search Searcher
	fetch  PageFetcher
	now    func() time.Time
}

func NewScraper(search Searcher, fetch PageFetcher) *Scraper {
	return &Scraper{search: search, fetch: fetch, now: time.Now}
}

// Collect searches, deduplicates by URL and keeps current articles from allowlisted sites.
// It fails only when every query failed.
func (s *Scraper) Collect(ctx context.Context) ([]Article, error) {
	now := s.now()
	queries := FloodQueries(now.Year())

	results := make([][]Result, len(queries))
	errs := make([]error, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			res, err := s.search.Search(gctx, q)
			if err != nil {
				logx.Warn().Err(err).Str("query", q).Msg("Flood news query failed")
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []Result
	seen := map[string]bool{}
	failed := 0
	for i := range queries {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, r := range results[i] {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			if !IsNewsDomain(r.Link) {
				logx.Debug().Str("url", r.Link).Msg("Skipping non-news site")
				continue
			}
			candidates = append(candidates, r)
		}
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all flood news queries failed: %w", errors.Join(errs...))
	}

	return s.fetchCurrent(ctx, candidates, now)
}

func (s *Scraper) fetchCurrent(ctx context.Context, candidates []Result, now time.Time) ([]Article, error) {
	kept := make([]*Article, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, r := range candidates {
		g.Go(func() error {
			text, err := s.fetch.FetchText(gctx, r.Link)
			if err != nil {
				logx.Warn().Err(err).Str("url", r.Link).Msg("Failed to fetch news page")
				return nil
			}
			excerpt := truncateRunes(text, maxExcerptRunes)
			if strings.TrimSpace(excerpt) == "" || !IsCurrentNews(excerpt, now) {
				logx.Debug().Str("url", r.Link).Msg("Skipping historical or empty page")
				return nil
			}
			kept[i] = &Article{Title: r.Title, URL: r.Link, Excerpt: excerpt}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Article
	for _, a := range kept {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// Digest renders the collected articles for the alert stage.
func (s *Scraper) Digest(ctx context.Context) (string, error) {
	articles, err := s.Collect(ctx)
	if err != nil {
		return "", err
	}
	logx.Info().Int("articles", len(articles)).Msg("Flood news collected")
	return FormatDigest(articles), nil
}

func FormatDigest(articles []Article) string {
	if len(articles) == 0 {
		return NoCurrentNews
	}
	entries := make([]string, 0, len(articles))
	for _, a := range articles {
		entries = append(entries, fmt.Sprintf("NEWS SOURCE: %s\nURL: %s\n---\n%s\n", a.Title, a.URL, a.Excerpt))
	}
	return strings.Join(entries, "\n\n===\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
