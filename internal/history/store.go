package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// HistoryEntry records one grid query run
type HistoryEntry struct {
	ID           int
	Provider     string
	Source       string
	Filter       string
	Search       string
	OrderBy      string
	Rows         int
	TotalCount   int
	Duration     time.Duration
	Success      bool
	ErrorMessage string
	ExecutedAt   time.Time
}

// Store manages query history persistence
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add appends an entry. A zero ExecutedAt is stamped with the current time.
func (s *Store) Add(entry HistoryEntry) error {
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO query_history
		(provider, source, filter, search, order_by, rows_fetched, total_count,
		 duration_ms, success, error_message, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Provider,
		entry.Source,
		entry.Filter,
		entry.Search,
		entry.OrderBy,
		entry.Rows,
		entry.TotalCount,
		entry.Duration.Milliseconds(),
		entry.Success,
		entry.ErrorMessage,
		entry.ExecutedAt.UnixMilli(),
	)
	return err
}

const selectColumns = `
	SELECT id, provider, source, filter, search, order_by, rows_fetched, total_count,
	       duration_ms, success, error_message, executed_at
	FROM query_history`

// GetRecent retrieves the most recent entries, newest first
func (s *Store) GetRecent(limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(selectColumns+`
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Search finds entries whose source, filter or search text contains text
func (s *Store) Search(text string, limit int) ([]HistoryEntry, error) {
	pattern := "%" + text + "%"
	rows, err := s.db.Query(selectColumns+`
		WHERE source LIKE ? OR filter LIKE ? OR search LIKE ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Prune keeps only the newest keep entries
func (s *Store) Prune(keep int) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM query_history
		WHERE id NOT IN (SELECT id FROM query_history ORDER BY executed_at DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]HistoryEntry, error) {
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			durationMs int64
			executedAt int64
		)
		err := rows.Scan(
			&e.ID,
			&e.Provider,
			&e.Source,
			&e.Filter,
			&e.Search,
			&e.OrderBy,
			&e.Rows,
			&e.TotalCount,
			&durationMs,
			&e.Success,
			&e.ErrorMessage,
			&executedAt,
		)
		if err != nil {
			return nil, err
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.ExecutedAt = time.UnixMilli(executedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
