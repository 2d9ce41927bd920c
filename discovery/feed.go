package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsseeker/newsfeed"
)

// DefaultUserAgent identifies the collector to the sites it reads.
const DefaultUserAgent = "newsseeker/1.0 (news collector)"

// Fetcher retrieves feeds and web pages with a shared client.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchFeed fetches and parses an RSS or Atom feed. gofeed detects the
// format.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client
	fp.UserAgent = f.userAgent

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// FeedItemToNewsItem converts an RSS or Atom item to a NewsItem. The feed
// title becomes the publisher.
func FeedItemToNewsItem(item *gofeed.Item, feedTitle string) newsfeed.NewsItem {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "(No title)"
	}

	var publisher *string
	if feedTitle != "" {
		publisher = &feedTitle
	}

	authors := make([]string, 0)
	if item.Author != nil && item.Author.Name != "" {
		authors = append(authors, item.Author.Name)
	}
	for _, author := range item.Authors {
		if author.Name != "" && !containsFold(authors, author.Name) {
			authors = append(authors, author.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if creator != "" && !containsFold(authors, creator) {
				authors = append(authors, creator)
			}
		}
	}

	// Undated items stay undated; matching keeps them regardless of range.
	var publishedAt *time.Time
	if item.PublishedParsed != nil {
		publishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = item.UpdatedParsed
	}

	return newsfeed.NewsItem{
		ID:           uuid.New(),
		Title:        title,
		Summary:      item.Description,
		URL:          item.Link,
		Publisher:    publisher,
		Authors:      authors,
		PublishedAt:  publishedAt,
		DiscoveredAt: time.Now(),
	}
}

// FeedToNewsItems converts every item in a feed.
func FeedToNewsItems(feed *gofeed.Feed) []newsfeed.NewsItem {
	items := make([]newsfeed.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, FeedItemToNewsItem(item, feed.Title))
	}
	return items
}

func containsFold(slice []string, str string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, str) {
			return true
		}
	}
	return false
}
