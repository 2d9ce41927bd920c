package newsfeed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NewsFeed stores collected news items as JSON files in a directory
type NewsFeed struct {
	storageDir string

	mu   sync.Mutex
	urls map[string]bool // loaded on first AddIfNew
}

// ReadError describes a failure to read a single news item file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the results of listing news items, including
// any per-file errors that occurred during the operation.
type ListResult struct {
	Items  []NewsItem
	Errors []ReadError
}

// ListOptions narrows List. Zero values mean no restriction.
type ListOptions struct {
	TaskID  *uuid.UUID
	Keyword string
	Limit   int
}

// NewNewsFeed opens a news feed in storageDir, creating it if needed
func NewNewsFeed(storageDir string) (*NewsFeed, error) {
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &NewsFeed{
		storageDir: storageDir,
	}, nil
}

// Add saves a news item, overwriting any item with the same ID
func (nf *NewsFeed) Add(item NewsItem) error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if err := nf.write(item); err != nil {
		return err
	}
	if nf.urls != nil {
		nf.urls[item.URL] = true
	}
	return nil
}

// AddIfNew saves item unless an item with the same URL is already stored.
// It reports whether the item was written.
func (nf *NewsFeed) AddIfNew(item NewsItem) (bool, error) {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.urls == nil {
		result, err := nf.List(ListOptions{})
		if err != nil {
			return false, err
		}
		nf.urls = make(map[string]bool, len(result.Items))
		for _, existing := range result.Items {
			nf.urls[existing.URL] = true
		}
	}

	if nf.urls[item.URL] {
		return false, nil
	}
	if err := nf.write(item); err != nil {
		return false, err
	}
	nf.urls[item.URL] = true
	return true, nil
}

func (nf *NewsFeed) write(item NewsItem) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal news item: %w", err)
	}

	if err := os.WriteFile(nf.path(item.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write news item: %w", err)
	}
	return nil
}

// List returns stored news items, newest discovery first. Unreadable files
// land in the result's Errors; a non-nil error means the directory itself
// could not be read.
func (nf *NewsFeed) List(opts ListOptions) (*ListResult, error) {
	entries, err := os.ReadDir(nf.storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(nf.storageDir, entry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		var item NewsItem
		if err := json.Unmarshal(data, &item); err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		if opts.TaskID != nil && (item.TaskID == nil || *item.TaskID != *opts.TaskID) {
			continue
		}
		if opts.Keyword != "" && !item.HasKeyword(opts.Keyword) {
			continue
		}
		result.Items = append(result.Items, item)
	}

	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].DiscoveredAt.After(result.Items[j].DiscoveredAt)
	})
	if opts.Limit > 0 && len(result.Items) > opts.Limit {
		result.Items = result.Items[:opts.Limit]
	}

	return result, nil
}

// Get retrieves a news item by its ID. A missing item returns nil, nil.
func (nf *NewsFeed) Get(id uuid.UUID) (*NewsItem, error) {
	data, err := os.ReadFile(nf.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read news item: %w", err)
	}

	var item NewsItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal news item: %w", err)
	}

	return &item, nil
}

// Delete removes a news item by its ID.
func (nf *NewsFeed) Delete(id uuid.UUID) error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	item, err := nf.Get(id)
	if err != nil {
		return err
	}
	if err := os.Remove(nf.path(id)); err != nil {
		return fmt.Errorf("failed to delete news item: %w", err)
	}
	if item != nil && nf.urls != nil {
		delete(nf.urls, item.URL)
	}
	return nil
}

func (nf *NewsFeed) path(id uuid.UUID) string {
	return filepath.Join(nf.storageDir, id.String()+".json")
}
