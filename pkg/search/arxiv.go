package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Arxiv searches the arXiv Atom API. Useful for academic questions where
// general web search returns thin results.
type Arxiv struct {
	MaxResults int

	client  *http.Client
	baseURL string
}

// NewArxiv constructs an arXiv search provider.
func NewArxiv() *Arxiv {
	return &Arxiv{
		MaxResults: 5,
		client:     &http.Client{Timeout: 20 * time.Second},
		baseURL:    "https://export.arxiv.org/api/query",
	}
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	ID      string      `xml:"id"`
	Link    []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// Search queries the arXiv API and normalizes the Atom feed.
func (a *Arxiv) Search(ctx context.Context, query string) ([]Result, error) {
	max := a.MaxResults
	if max <= 0 {
		max = 5
	}

	params := url.Values{}
	params.Add("search_query", query)
	params.Add("max_results", strconv.Itoa(max))
	params.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("arxiv http %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	return parseArxivFeed(body)
}

// parseArxivFeed converts an Atom feed into results. The abstract page URL
// is preferred; the PDF link is the fallback.
func parseArxivFeed(body []byte) ([]Result, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arxiv feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		link := strings.TrimSpace(entry.ID)
		if link == "" {
			for _, l := range entry.Link {
				if l.Type == "application/pdf" {
					link = l.Href
					break
				}
			}
		}
		title := strings.Join(strings.Fields(entry.Title), " ")
		if title == "" || link == "" {
			continue
		}
		results = append(results, Result{
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(entry.Summary),
		})
	}
	return results, nil
}
