package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>IITU News</title>
<link>https://iitu.edu.kz/news</link>
<item>
<title> Open Day </title>
<link>https://iitu.edu.kz/news/open-day</link>
<description>&lt;p&gt;Join us   on&#10;Saturday.&lt;/p&gt;</description>
<pubDate>Mon, 02 Jun 2025 10:00:00 +0000</pubDate>
</item>
<item>
<title>New programs</title>
<link>https://iitu.edu.kz/news/programs</link>
<description>Two new master programs.</description>
</item>
</channel>
</rss>`

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	t.Cleanup(srv.Close)

	pages, err := FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	if len(pages) != 2 {
		t.Fatalf("want 2 pages, got %d", len(pages))
	}

	first := pages[0]
	if first.Title != "Open Day" {
		t.Errorf("title = %q, want %q", first.Title, "Open Day")
	}
	if first.URL != "https://iitu.edu.kz/news/open-day" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Text != "Join us on Saturday." {
		t.Errorf("text = %q, want HTML stripped and whitespace collapsed", first.Text)
	}
	if first.FetchedAt.IsZero() {
		t.Error("published date must be used as FetchedAt")
	}
}

func TestFetchFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	if _, err := FetchFeed(context.Background(), srv.URL); err == nil {
		t.Fatal("want error for a failing feed")
	}
}
