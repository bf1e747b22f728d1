package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FetchFeed fetches the university news feed and converts its items into
// pages, so news get indexed alongside crawled content.
func FetchFeed(ctx context.Context, url string) ([]Page, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := item.Content
		if text == "" {
			text = item.Description
		}
		page := Page{
			URL:         item.Link,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Text:        collapseWhitespace(stripTags(text)),
			FetchedAt:   time.Now(),
		}
		if item.PublishedParsed != nil {
			page.FetchedAt = *item.PublishedParsed
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// stripTags removes HTML tags from feed item bodies. Feed content is usually
// simple enough that tag stripping beats full HTML parsing here.
func stripTags(s string) string {
	var (
		sb    strings.Builder
		inTag bool
	)
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			sb.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
