package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsseeker/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: listing selectors matching testHTML
func testSelectors() *sources.Selectors {
	return &sources.Selectors{
		Item:    "ul.news li",
		Title:   "a",
		Link:    "a",
		Summary: "p.summary",
		Date:    "span.date",
	}
}

// Test helper: parse an HTML string
func parseHTML(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// TestExtractListing verifies per-entry extraction
func TestExtractListing(t *testing.T) {
	items := ExtractListing(parseHTML(t, testHTML), testSelectors(), "http://example.com/news/", "City news")
	require.Len(t, items, 2, "entry without a link is skipped")

	first := items[0]
	assert.Equal(t, "路边停车收费调整", first.Title)
	assert.Equal(t, "http://example.com/city/1", first.URL, "relative link resolves against base")
	assert.Equal(t, "今年起 停车 费用上调", first.Summary, "whitespace is normalized")
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2024, first.PublishedAt.Year())
	assert.Equal(t, time.January, first.PublishedAt.Month())
	assert.Equal(t, 4, first.PublishedAt.Day())
	require.NotNil(t, first.Publisher)
	assert.Equal(t, "City news", *first.Publisher)

	second := items[1]
	assert.Equal(t, "http://other.example.com/2", second.URL)
	assert.Nil(t, second.PublishedAt, "unparseable date leaves item undated")
	assert.Empty(t, second.Summary)
}

// TestExtractListing_DateFormat verifies custom layouts
func TestExtractListing_DateFormat(t *testing.T) {
	html := `<div class="row"><h3><a href="/x">停车场开放</a></h3><em>2024年01月03日</em></div>`
	sel := &sources.Selectors{Item: "div.row", Title: "h3", Link: "a", Date: "em", DateFormat: "2006年01月02日"}

	items := ExtractListing(parseHTML(t, html), sel, "http://example.com", "")
	require.Len(t, items, 1)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 3, items[0].PublishedAt.Day())
	assert.Nil(t, items[0].Publisher)
}

// TestTruncate verifies rune-aware truncation
func TestTruncate(t *testing.T) {
	assert.Equal(t, "停车", truncate("停车", 2))
	assert.Equal(t, "停...", truncate("停车", 1))
}

// TestFetchHTML verifies fetching and status handling
func TestFetchHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(testHTML))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "")

	doc, err := fetcher.FetchHTML(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Find("ul.news li").Length())

	_, err = fetcher.FetchHTML(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

// TestFetchHTML_ContextCancelled verifies the request honors ctx
func TestFetchHTML_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testHTML))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(5*time.Second, "").FetchHTML(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
