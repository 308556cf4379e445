// Package websearch gathers current flood news from allowlisted news sites.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

// Config is read with the SEARCH_ prefix.
type Config struct {
	APIKey          string        `envconfig:"SEARCH_API_KEY"`
	EngineID        string        `envconfig:"SEARCH_ENGINE_ID"`
	BaseURL         string        `envconfig:"SEARCH_API_BASE_URL" default:"https://www.googleapis.com/customsearch/v1"`
	ResultsPerQuery int           `envconfig:"SEARCH_RESULTS_PER_QUERY" default:"3"`
	Timeout         time.Duration `envconfig:"SEARCH_TIMEOUT" default:"20s"`
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Mime    string `json:"mime"`
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Client calls the Google Custom Search JSON API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, errx.Config("SEARCH_API_KEY and SEARCH_ENGINE_ID must be set")
	}
	if cfg.ResultsPerQuery <= 0 || cfg.ResultsPerQuery > 10 {
		cfg.ResultsPerQuery = 3
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

func (c *Client) searchURL(query string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errx.Config(fmt.Sprintf("invalid SEARCH_API_BASE_URL: %v", err))
	}
	params := url.Values{}
	params.Add("key", c.cfg.APIKey)
	params.Add("cx", c.cfg.EngineID)
	params.Add("q", query)
	params.Add("num", strconv.Itoa(c.cfg.ResultsPerQuery))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	searchURL, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error prints the request URL, which carries the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, errx.WrapUpstream("web search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errx.WrapUpstream("web search", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var payload struct {
		Items []Result `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errx.WrapUpstream("web search", fmt.Errorf("decode response: %w", err))
	}
	return payload.Items, nil
}
