package sources

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for source operations
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrDuplicateURL      = errors.New("source with this URL already exists")
	ErrInvalidSourceType = errors.New("source_type must be rss, atom, or website")
)

// Source types.
const (
	TypeRSS     = "rss"
	TypeAtom    = "atom"
	TypeWebsite = "website"
)

// SourceStore keeps the news sources a collection run reads from, in SQLite.
type SourceStore struct {
	db *sql.DB
}

// Source is one place news is collected from.
type Source struct {
	SourceID        uuid.UUID  `json:"source_id"`
	SourceType      string     `json:"source_type"`
	URL             string     `json:"url"`
	Name            string     `json:"name"`
	EnabledAt       *time.Time `json:"enabled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastFetchedAt   *time.Time `json:"last_fetched_at,omitempty"`
	FetchErrorCount int        `json:"fetch_error_count"`
	LastError       *string    `json:"last_error,omitempty"`
	Selectors       *Selectors `json:"selectors,omitempty"`
}

// IsEnabled returns true if the source is currently enabled.
func (s *Source) IsEnabled() bool {
	return s.EnabledAt != nil
}

// IsFeed reports whether the source is an RSS or Atom feed.
func (s *Source) IsFeed() bool {
	return s.SourceType == TypeRSS || s.SourceType == TypeAtom
}

// SourceFilter represents filtering options for listing sources.
type SourceFilter struct {
	Type    *string
	Enabled *bool
	Limit   int
	Offset  int
}

// NewSourceStore opens (or creates) the source database at dbPath.
func NewSourceStore(dbPath string) (*SourceStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		source_id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		enabled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_fetched_at TEXT,
		fetch_error_count INTEGER DEFAULT 0,
		last_error TEXT,
		selectors TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// CreateSource adds a source. Website sources must carry selectors.
func (s *SourceStore) CreateSource(
	sourceType, url, name string,
	selectors *Selectors,
	enabledAt *time.Time,
) (*Source, error) {
	switch sourceType {
	case TypeRSS, TypeAtom:
		selectors = nil
	case TypeWebsite:
		if err := selectors.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidSourceType
	}

	now := time.Now()
	source := &Source{
		SourceID:   uuid.New(),
		SourceType: sourceType,
		URL:        url,
		Name:       name,
		EnabledAt:  enabledAt,
		CreatedAt:  now,
		UpdatedAt:  now,
		Selectors:  selectors,
	}

	var selectorsJSON *string
	if selectors != nil {
		data, err := json.Marshal(selectors)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal selectors: %w", err)
		}
		str := string(data)
		selectorsJSON = &str
	}

	_, err := s.db.Exec(`
		INSERT INTO sources (
			source_id, source_type, url, name, enabled_at,
			created_at, updated_at, selectors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		source.SourceID.String(),
		source.SourceType,
		source.URL,
		source.Name,
		formatTime(source.EnabledAt),
		formatTime(&source.CreatedAt),
		formatTime(&source.UpdatedAt),
		selectorsJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to insert source: %w", err)
	}

	return source, nil
}

const selectColumns = `
	SELECT source_id, source_type, url, name, enabled_at,
	       created_at, updated_at, last_fetched_at,
	       fetch_error_count, last_error, selectors
	FROM sources`

// GetSource retrieves a source by ID.
func (s *SourceStore) GetSource(sourceID uuid.UUID) (*Source, error) {
	row := s.db.QueryRow(selectColumns+" WHERE source_id = ?", sourceID.String())

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// ListSources lists sources, newest first, with optional filtering.
func (s *SourceStore) ListSources(filter SourceFilter) ([]Source, error) {
	query := selectColumns

	var whereClauses []string
	var args []any

	if filter.Type != nil {
		whereClauses = append(whereClauses, "source_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Enabled != nil {
		if *filter.Enabled {
			whereClauses = append(whereClauses, "enabled_at IS NOT NULL")
		} else {
			whereClauses = append(whereClauses, "enabled_at IS NULL")
		}
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	return sources, rows.Err()
}

// Enabled lists the sources a collection run should read.
func (s *SourceStore) Enabled() ([]Source, error) {
	enabled := true
	return s.ListSources(SourceFilter{Enabled: &enabled})
}

// SetEnabled enables or disables a source.
func (s *SourceStore) SetEnabled(sourceID uuid.UUID, enabled bool) error {
	now := time.Now()

	var enabledAt any
	if enabled {
		enabledAt = formatTime(&now)
	}

	return s.exec(sourceID,
		"UPDATE sources SET enabled_at = ?, updated_at = ? WHERE source_id = ?",
		enabledAt, formatTime(&now), sourceID.String(),
	)
}

// RecordFetch records the outcome of fetching a source. A nil fetchErr
// resets the error count; otherwise the count grows and the message is kept.
func (s *SourceStore) RecordFetch(sourceID uuid.UUID, at time.Time, fetchErr error) error {
	if fetchErr == nil {
		return s.exec(sourceID, `
			UPDATE sources
			SET last_fetched_at = ?, fetch_error_count = 0, last_error = NULL, updated_at = ?
			WHERE source_id = ?`,
			formatTime(&at), formatTime(&at), sourceID.String(),
		)
	}

	return s.exec(sourceID, `
		UPDATE sources
		SET fetch_error_count = fetch_error_count + 1, last_error = ?, updated_at = ?
		WHERE source_id = ?`,
		fetchErr.Error(), formatTime(&at), sourceID.String(),
	)
}

// DeleteSource deletes a source.
func (s *SourceStore) DeleteSource(sourceID uuid.UUID) error {
	return s.exec(sourceID, "DELETE FROM sources WHERE source_id = ?", sourceID.String())
}

// exec runs a statement that must touch exactly the given source.
func (s *SourceStore) exec(sourceID uuid.UUID, query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update source %s: %w", sourceID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*Source, error) {
	var sourceIDStr, createdAtStr, updatedAtStr string
	var enabledAtStr, lastFetchedAtStr, lastError, selectorsJSON sql.NullString
	source := &Source{}

	err := row.Scan(
		&sourceIDStr, &source.SourceType, &source.URL, &source.Name,
		&enabledAtStr, &createdAtStr, &updatedAtStr, &lastFetchedAtStr,
		&source.FetchErrorCount, &lastError, &selectorsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	source.SourceID, err = uuid.Parse(sourceIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source ID: %w", err)
	}
	source.CreatedAt = parseTime(createdAtStr)
	source.UpdatedAt = parseTime(updatedAtStr)

	if enabledAtStr.Valid {
		t := parseTime(enabledAtStr.String)
		source.EnabledAt = &t
	}
	if lastFetchedAtStr.Valid {
		t := parseTime(lastFetchedAtStr.String)
		source.LastFetchedAt = &t
	}
	if lastError.Valid {
		source.LastError = &lastError.String
	}
	if selectorsJSON.Valid {
		var sel Selectors
		if err := json.Unmarshal([]byte(selectorsJSON.String), &sel); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selectors: %w", err)
		}
		source.Selectors = &sel
	}

	return source, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
