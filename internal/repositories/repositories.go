package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., user #42).
// They are not exposed in CLI output but used internally for sorting and debugging.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// PurgeFilters selects which synced entities a purge removes. All overrides
// the sub-filters and deletes everything for the user. Without All, the set
// sub-filters are OR'd together; Playlist matches entities that are neither
// top nor saved.
type PurgeFilters struct {
	All      bool
	Top      bool
	Saved    bool
	Playlist bool
}

// whereClause renders the filters into a WHERE fragment following "user_id = ?".
// An empty string means no additional restriction.
func (f PurgeFilters) whereClause() string {
	if f.All {
		return ""
	}

	var conditions []string
	if f.Top {
		conditions = append(conditions, "is_top = 1")
	}
	if f.Saved {
		conditions = append(conditions, "is_saved = 1")
	}
	if f.Playlist {
		conditions = append(conditions, "(is_top = 0 AND is_saved = 0)")
	}
	if len(conditions) == 0 {
		return ""
	}
	return " AND (" + strings.Join(conditions, " OR ") + ")"
}

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
