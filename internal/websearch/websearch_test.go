package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

func TestIsNewsDomain(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://randomblog.com/floods", false},
		{"https://news.bbc.co.uk/2024/chennai", true},
		{"https://notbbc.com/story", false},
		{"https://www.thehindu.com/news/cities/chennai/", true},
		{"https://WWW.NDTV.COM/india-news", true},
		{"https://bbc.com.evil.io/x", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNewsDomain(tt.url), tt.url)
	}
}

func TestIsCurrentNews(t *testing.T) {
	now := time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

	assert.True(t, IsCurrentNews("Heavy rain lashes Chennai, 16 Oct 2026", now))
	assert.True(t, IsCurrentNews("Officials said rescue teams were deployed", now))
	assert.True(t, IsCurrentNews("Water levels rising since early October", now))
	assert.False(t, IsCurrentNews("Flood history of Chennai 2026 edition", now))
	assert.False(t, IsCurrentNews("From Wikipedia, the free encyclopedia", now))
	assert.False(t, IsCurrentNews("Monsoon patterns in Tamil Nadu", now))

	late := strings.Repeat("x", 3000) + " breaking"
	assert.False(t, IsCurrentNews(late, now))
}

func TestExtractText(t *testing.T) {
	html := `<html><head><title>Chennai floods</title><script>var x=1;</script></head>
<body><nav>Home | World</nav><article><h1>Red alert issued</h1><p>Rescue   teams
deployed in Velachery.</p></article><footer>Copyright</footer></body></html>`
	text, err := ExtractText(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "Chennai floods\nRed alert issued\nRescue teams deployed in Velachery.", text)
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "var x")
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "cx1", r.URL.Query().Get("cx"))
		assert.Equal(t, "3", r.URL.Query().Get("num"))
		if r.URL.Query().Get("q") == "fail" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"quota"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Flood alert","link":"https://www.ndtv.com/a","snippet":"s"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", EngineID: "cx1", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "flood")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "https://www.ndtv.com/a", res[0].Link)

	_, err = c.Search(context.Background(), "fail")
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstream, errx.KindOf(err))
	assert.Contains(t, err.Error(), "429")

	_, err = NewClient(Config{}, nil)
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))
}

func TestClientSearchErrorsHideAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{APIKey: "SECRET-KEY-123", EngineID: "cx1", BaseURL: base}, nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "flood")
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstream, errx.KindOf(err))
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")

	_, err = NewScraper(c, fakeFetcher{}).Collect(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	byQuery func(q string) ([]Result, error)
}

func (f *fakeSearcher) Search(_ context.Context, q string) ([]Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.byQuery(q)
}

type fakeFetcher struct {
	pages map[string]string
}

func (f fakeFetcher) FetchText(_ context.Context, u string) (string, error) {
	p, ok := f.pages[u]
	if !ok {
		return "", errors.New("404")
	}
	return p, nil
}

func TestScraperDigest(t *testing.T) {
	search := &fakeSearcher{byQuery: func(q string) ([]Result, error) {
		if strings.HasPrefix(q, "Chennai") {
			return nil, errors.New("timeout")
		}
		return []Result{
			{Title: "Live: Chennai flood", Link: "https://www.thehindu.com/live"},
			{Title: "Blog", Link: "https://randomblog.com/post"},
			{Title: "Archive", Link: "https://www.bbc.com/archive"},
			{Title: "Gone", Link: "https://www.ndtv.com/gone"},
		}, nil
	}}
	fetch := fakeFetcher{pages: map[string]string{
		"https://www.thehindu.com/live": "Live updates: red alert issued for Chennai",
		"https://randomblog.com/post":   "breaking news 2026",
		"https://www.bbc.com/archive":   "Archived: flood history of India",
	}}
	s := NewScraper(search, fetch)
	s.now = func() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) }

	digest, err := s.Digest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NEWS SOURCE: Live: Chennai flood\nURL: https://www.thehindu.com/live\n---\nLive updates: red alert issued for Chennai\n", digest)
	assert.ElementsMatch(t, FloodQueries(2026), search.queries)
}

func TestScraperAllQueriesFail(t *testing.T) {
	s := NewScraper(&fakeSearcher{byQuery: func(string) ([]Result, error) {
		return nil, errors.New("quota")
	}}, fakeFetcher{})
	_, err := s.Digest(context.Background())
	assert.Error(t, err)
}

func TestFormatDigest(t *testing.T) {
	assert.Equal(t, NoCurrentNews, FormatDigest(nil))
	out := FormatDigest([]Article{{Title: "A", URL: "u1", Excerpt: "x"}, {Title: "B", URL: "u2", Excerpt: "y"}})
	assert.Equal(t, "NEWS SOURCE: A\nURL: u1\n---\nx\n\n\n===\n\nNEWS SOURCE: B\nURL: u2\n---\ny\n", out)
}

func TestFloodQueries(t *testing.T) {
	assert.Equal(t, []string{
		"flood warning today 2026 India news",
		"Chennai Tamil Nadu flood alert today 2026",
		"India flood news today latest",
	}, FloodQueries(2026))
}
