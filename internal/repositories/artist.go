package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// ArtistRepository persists synced [models.Artist] entities.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new [ArtistRepository] with the given database connection.
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// GetList retrieves a page of the user's artists ordered by insertion time.
func (r *ArtistRepository) GetList(ctx context.Context, userID string, offset, limit int) ([]models.Artist, error) {
	query := `
		SELECT provider_id, user_id, name, popularity, genres, is_top, top_position
		FROM artists
		WHERE user_id = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var (
			artist      models.Artist
			genres      string
			topPosition sql.NullInt64
		)
		if err := rows.Scan(&artist.ProviderID, &artist.UserID, &artist.Name, &artist.Popularity, &genres, &artist.IsTop, &topPosition); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		if genres != "" {
			if err := json.Unmarshal([]byte(genres), &artist.Genres); err != nil {
				return nil, fmt.Errorf("failed to decode genres for %s: %w", artist.ProviderID, err)
			}
		}
		if topPosition.Valid {
			artist.TopPosition = int(topPosition.Int64)
		}
		artists = append(artists, artist)
	}

	return artists, rows.Err()
}

// BulkUpsert inserts or updates artists keyed by (user_id, provider_id) in
// chunks of batchSize, each chunk in its own transaction. It returns the
// affected row IDs and the exact number of rows that were fresh inserts.
func (r *ArtistRepository) BulkUpsert(ctx context.Context, artists []models.Artist, batchSize int) ([]string, int, error) {
	ids := make([]string, 0, len(artists))
	created := 0

	for _, batch := range chunk(artists, batchSize) {
		batchIDs, batchCreated, err := r.upsertBatch(ctx, batch)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, batchIDs...)
		created += batchCreated
	}

	return ids, created, nil
}

func (r *ArtistRepository) upsertBatch(ctx context.Context, artists []models.Artist) ([]string, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := existingKeys(ctx, tx, "artists", artists, func(a models.Artist) (string, string) {
		return a.UserID, a.ProviderID
	})
	if err != nil {
		return nil, 0, err
	}

	query := `
		INSERT INTO artists (id, user_id, provider_id, name, popularity, genres, is_top, top_position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider_id) DO UPDATE SET
			name = excluded.name,
			popularity = excluded.popularity,
			genres = excluded.genres,
			is_top = excluded.is_top,
			top_position = excluded.top_position,
			updated_at = excluded.updated_at
		RETURNING id
	`

	now := time.Now().UTC()
	ids := make([]string, 0, len(artists))
	created := 0

	for _, artist := range artists {
		genres, err := json.Marshal(artist.Genres)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode genres for %s: %w", artist.ProviderID, err)
		}

		var id string
		err = tx.QueryRowContext(ctx, query,
			shared.GenerateID(), artist.UserID, artist.ProviderID, artist.Name, artist.Popularity,
			string(genres), artist.IsTop, nullablePosition(artist.TopPosition), now, now,
		).Scan(&id)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to upsert artist %s: %w", artist.ProviderID, err)
		}

		ids = append(ids, id)
		if !existing[artist.UserID+"\x00"+artist.ProviderID] {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit artist upsert: %w", err)
	}

	return ids, created, nil
}

// Purge deletes the user's artists matching the filters and returns the
// number of rows removed. Only the All and Top filters apply to artists.
func (r *ArtistRepository) Purge(ctx context.Context, userID string, filters PurgeFilters) (int64, error) {
	query := "DELETE FROM artists WHERE user_id = ?"
	if !filters.All && filters.Top {
		query += " AND is_top = 1"
	}

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge artists: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return deleted, nil
}

// existingKeys returns the set of (user_id, provider_id) pairs from items that
// already have rows in table, encoded as "user\x00provider".
func existingKeys[T any](ctx context.Context, tx *sql.Tx, table string, items []T, key func(T) (string, string)) (map[string]bool, error) {
	existing := make(map[string]bool, len(items))
	if len(items) == 0 {
		return existing, nil
	}

	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*2)
	for _, item := range items {
		userID, providerID := key(item)
		placeholders = append(placeholders, "(?, ?)")
		args = append(args, userID, providerID)
	}

	query := fmt.Sprintf(
		"SELECT user_id, provider_id FROM %s WHERE (user_id, provider_id) IN (VALUES %s)",
		table, strings.Join(placeholders, ", "),
	)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, providerID string
		if err := rows.Scan(&userID, &providerID); err != nil {
			return nil, fmt.Errorf("failed to scan existing key: %w", err)
		}
		existing[userID+"\x00"+providerID] = true
	}

	return existing, rows.Err()
}

// nullablePosition maps the zero rank to NULL so unranked entities carry no position.
func nullablePosition(position int) any {
	if position < 1 {
		return nil
	}
	return position
}
