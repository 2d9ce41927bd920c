package newsfeed

import (
	"time"

	"github.com/google/uuid"
)

// NewsItem is a single collected article.
type NewsItem struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	URL          string     `json:"url"`
	Publisher    *string    `json:"publisher,omitempty"`
	Authors      []string   `json:"authors"`
	PublishedAt  *time.Time `json:"published_at,omitempty"` // nil when the source gives no date
	DiscoveredAt time.Time  `json:"discovered_at"`
	Keywords     []string   `json:"keywords"`
	SourceID     *uuid.UUID `json:"source_id,omitempty"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
}

// HasKeyword reports whether term was matched when the item was collected.
func (item NewsItem) HasKeyword(term string) bool {
	for _, k := range item.Keywords {
		if k == term {
			return true
		}
	}
	return false
}
