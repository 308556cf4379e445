package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

const maxPageBytes = 2 << 20

type PageFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// HTMLFetcher downloads a page and extracts its readable text with goquery.
type HTMLFetcher struct {
	http *http.Client
}

func NewHTMLFetcher(httpClient *http.Client) *HTMLFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTMLFetcher{http: httpClient}
}

func (f *HTMLFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "HeliosCommand/1.0 (+flood-monitor)")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", errx.WrapUpstream("page fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errx.WrapUpstream("page fetch", fmt.Errorf("status %d for %s", resp.StatusCode, pageURL))
	}
	return ExtractText(io.LimitReader(resp.Body, maxPageBytes))
}

// ExtractText returns the article text of an HTML document, falling back to the body.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer, header, aside, form").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	root.Find("h1, h2, h3, p, li, time").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) <= 1 {
		if t := strings.Join(strings.Fields(root.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), nil
}
