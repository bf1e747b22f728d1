// Package scraper crawls the university website and collects page text for
// the knowledge base.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"os"
	"strings"
	"time"

	"github.com/baltabekpro/iitu-bot/internal/atomicio"
	"github.com/baltabekpro/iitu-bot/internal/logger"
	"github.com/baltabekpro/iitu-bot/internal/request"

	"github.com/PuerkitoBio/goquery"
)

// Page is a single scraped page.
type Page struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Text        string    `json:"text"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Scraper crawls pages starting from BaseURL, never leaving its host.
type Scraper struct {
	// BaseURL is the crawl starting point; only pages on its host are visited.
	BaseURL string
	// MaxPages caps the number of pages fetched in one crawl.
	MaxPages int
	// Delay is the pause between consecutive fetches.
	Delay time.Duration
	// MaxRetries is the number of attempts per page.
	MaxRetries int
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Logf is used for progress reporting. Defaults to a no-op.
	Logf logger.Logf
}

// Crawl walks the site breadth-first and returns the scraped pages. It stops
// at MaxPages or when there is nothing left to visit. Pages that keep failing
// after MaxRetries attempts are skipped, not fatal.
func (s *Scraper) Crawl(ctx context.Context) ([]Page, error) {
	base, err := urlpkg.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("scraper: invalid base URL %q: %w", s.BaseURL, err)
	}

	var (
		pages   []Page
		queue   = []string{base.String()}
		visited = map[string]bool{base.String(): true}
	)

	for len(queue) > 0 && len(pages) < s.MaxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		url := queue[0]
		queue = queue[1:]

		page, links, err := s.fetch(ctx, url)
		if err != nil {
			s.logf("Failed to scrape %s: %v", url, err)
			continue
		}
		pages = append(pages, page)
		s.logf("Scraped %s (%d/%d)", url, len(pages), s.MaxPages)

		for _, link := range links {
			if visited[link] {
				continue
			}
			visited[link] = true
			queue = append(queue, link)
		}

		if len(queue) > 0 && len(pages) < s.MaxPages {
			select {
			case <-time.After(s.Delay):
			case <-ctx.Done():
				return pages, ctx.Err()
			}
		}
	}

	return pages, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (page Page, links []string, err error) {
	attempts := max(s.MaxRetries, 1)
	for i := range attempts {
		page, links, err = s.fetchOnce(ctx, url)
		if err == nil {
			return page, links, nil
		}
		if ctx.Err() != nil {
			return Page{}, nil, ctx.Err()
		}
		if i < attempts-1 {
			s.logf("Retrying %s after error: %v", url, err)
		}
	}
	return Page{}, nil, err
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) (Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, nil, err
	}
	req.Header.Set("User-Agent", request.UserAgent())

	httpc := s.HTTPClient
	if httpc == nil {
		httpc = request.DefaultClient
	}

	res, err := httpc.Do(req)
	if err != nil {
		return Page{}, nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(res.Body, 1<<14))
		return Page{}, nil, fmt.Errorf("GET %q: want 200, got %d", url, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return Page{}, nil, err
	}

	page := Page{
		URL:       url,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		FetchedAt: time.Now(),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	}

	// Drop non-content elements before extracting text.
	doc.Find("script, style, nav, header, footer, noscript").Remove()
	page.Text = collapseWhitespace(doc.Find("body").Text())

	return page, s.extractLinks(doc, url), nil
}

// extractLinks returns absolute same-host links found in doc, with fragments
// stripped and duplicates removed.
func (s *Scraper) extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := urlpkg.Parse(pageURL)
	if err != nil {
		return nil
	}

	var (
		links []string
		seen  = map[string]bool{}
	)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		if u.Host != base.Host {
			return
		}
		u.Fragment = ""
		link := u.String()
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links
}

func (s *Scraper) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// SavePages writes pages to path atomically as indented JSON.
func SavePages(path string, pages []Page) error {
	b, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return err
	}
	return atomicio.WriteFile(path, b, 0o644)
}

// LoadPages reads pages previously written by [SavePages].
func LoadPages(path string) ([]Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pages []Page
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
