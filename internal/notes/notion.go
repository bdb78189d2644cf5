// Package notes reads study notes from a Notion database. Titles are the
// human-chosen lookup keys; content is a read-only snapshot fetched on
// demand and never persisted.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studykit/study-companion/pkg/logging"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
)

// Page is one row of the notes database.
type Page struct {
	ID      string
	Title   string
	Content string
}

// Client queries the Notion API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	databaseID string
	logger     *logging.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the Notion API base URL (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Notion client for the given integration key and
// database. An unconfigured client is usable and returns empty results.
func NewClient(apiKey, databaseID string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		databaseID: databaseID,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTitles returns the titles of every page in the database, in the
// order Notion returns them.
func (c *Client) ListTitles(ctx context.Context) ([]string, error) {
	pages, err := c.queryDatabase(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
	}
	return titles, nil
}

// FetchContent returns the content of the page with the exact title, or
// an empty string when no page matches.
func (c *Client) FetchContent(ctx context.Context, title string) (string, error) {
	pages, err := c.queryDatabase(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if p.Title == title {
			return p.Content, nil
		}
	}
	return "", nil
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type pageProperty struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
}

type queryResponse struct {
	Results []struct {
		ID         string                  `json:"id"`
		Properties map[string]pageProperty `json:"properties"`
	} `json:"results"`
}

func (c *Client) queryDatabase(ctx context.Context) ([]Page, error) {
	if c.apiKey == "" || c.databaseID == "" {
		c.logger.Warn("notes: notion credentials not set")
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, c.databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("notes: build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notes: query database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notes: notion returned status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("notes: decode query response: %w", err)
	}

	pages := make([]Page, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		page := Page{ID: result.ID}
		for _, prop := range result.Properties {
			switch prop.Type {
			case "title":
				page.Title = joinPlainText(prop.Title)
			case "rich_text":
				page.Content = joinPlainText(prop.RichText)
			}
		}
		if page.Title == "" {
			// Untitled pages stay addressable by their id.
			page.Title = result.ID
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func joinPlainText(parts []richText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return b.String()
}
