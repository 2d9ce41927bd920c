package discovery

import (
	"strings"

	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/taskconfig"
)

// Match reports whether item belongs to the collection described by cfg
// and returns the terms it matched. Items without a publish date pass the
// date check.
func Match(item newsfeed.NewsItem, cfg taskconfig.TaskConfig) ([]string, bool) {
	if item.PublishedAt != nil && !cfg.Covers(*item.PublishedAt) {
		return nil, false
	}

	text := strings.ToLower(item.Title + "\n" + item.Summary)

	var matched []string
	for _, term := range cfg.Terms() {
		if strings.Contains(text, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	return matched, len(matched) > 0
}
