package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/sources"
)

// maxSummary caps scraped summaries, in runes.
const maxSummary = 500

// FetchHTML fetches a page and parses it with goquery.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

// ExtractListing pulls news items out of a listing page. Entries without a
// title or link are skipped; relative links resolve against baseURL. Dates
// that do not parse leave the item undated.
func ExtractListing(doc *goquery.Document, sel *sources.Selectors, baseURL string, publisher string) []newsfeed.NewsItem {
	base, _ := url.Parse(baseURL)

	var pub *string
	if publisher != "" {
		pub = &publisher
	}

	var items []newsfeed.NewsItem
	doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		title := normalize(s.Find(sel.Title).First().Text())
		href, ok := s.Find(sel.Link).First().Attr("href")
		if title == "" || !ok || strings.TrimSpace(href) == "" {
			return
		}

		link := strings.TrimSpace(href)
		if base != nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}

		var summary string
		if sel.Summary != "" {
			summary = truncate(normalize(s.Find(sel.Summary).First().Text()), maxSummary)
		}

		var publishedAt *time.Time
		if sel.Date != "" {
			dateText := normalize(s.Find(sel.Date).First().Text())
			if t, err := time.ParseInLocation(sel.Layout(), dateText, time.Local); err == nil {
				publishedAt = &t
			}
		}

		items = append(items, newsfeed.NewsItem{
			ID:           uuid.New(),
			Title:        title,
			Summary:      summary,
			URL:          link,
			Publisher:    pub,
			Authors:      []string{},
			PublishedAt:  publishedAt,
			DiscoveredAt: time.Now(),
		})
	})

	return items
}

// normalize collapses runs of whitespace into single spaces.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
