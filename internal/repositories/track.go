package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// TrackRepository persists synced [models.Track] entities.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new [TrackRepository] with the given database connection.
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// GetList retrieves a page of the user's tracks ordered by insertion time.
func (r *TrackRepository) GetList(ctx context.Context, userID string, offset, limit int) ([]models.Track, error) {
	query := `
		SELECT provider_id, user_id, name, popularity, artists, is_top, top_position, is_saved
		FROM tracks
		WHERE user_id = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var (
			track       models.Track
			artists     string
			topPosition sql.NullInt64
		)
		if err := rows.Scan(&track.ProviderID, &track.UserID, &track.Name, &track.Popularity, &artists, &track.IsTop, &topPosition, &track.IsSaved); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		if artists != "" {
			if err := json.Unmarshal([]byte(artists), &track.Artists); err != nil {
				return nil, fmt.Errorf("failed to decode artists for %s: %w", track.ProviderID, err)
			}
		}
		if topPosition.Valid {
			track.TopPosition = int(topPosition.Int64)
		}
		tracks = append(tracks, track)
	}

	return tracks, rows.Err()
}

// BulkUpsert inserts or updates tracks keyed by (user_id, provider_id) in
// chunks of batchSize, each chunk in its own transaction. It returns the
// affected row IDs and the exact number of rows that were fresh inserts.
func (r *TrackRepository) BulkUpsert(ctx context.Context, tracks []models.Track, batchSize int) ([]string, int, error) {
	ids := make([]string, 0, len(tracks))
	created := 0

	for _, batch := range chunk(tracks, batchSize) {
		batchIDs, batchCreated, err := r.upsertBatch(ctx, batch)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, batchIDs...)
		created += batchCreated
	}

	return ids, created, nil
}

func (r *TrackRepository) upsertBatch(ctx context.Context, tracks []models.Track) ([]string, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := existingKeys(ctx, tx, "tracks", tracks, func(t models.Track) (string, string) {
		return t.UserID, t.ProviderID
	})
	if err != nil {
		return nil, 0, err
	}

	query := `
		INSERT INTO tracks (id, user_id, provider_id, name, popularity, artists, is_top, top_position, is_saved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider_id) DO UPDATE SET
			name = excluded.name,
			popularity = excluded.popularity,
			artists = excluded.artists,
			is_top = excluded.is_top,
			top_position = excluded.top_position,
			is_saved = excluded.is_saved,
			updated_at = excluded.updated_at
		RETURNING id
	`

	now := time.Now().UTC()
	ids := make([]string, 0, len(tracks))
	created := 0

	for _, track := range tracks {
		artists, err := json.Marshal(track.Artists)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode artists for %s: %w", track.ProviderID, err)
		}

		var id string
		err = tx.QueryRowContext(ctx, query,
			shared.GenerateID(), track.UserID, track.ProviderID, track.Name, track.Popularity,
			string(artists), track.IsTop, nullablePosition(track.TopPosition), track.IsSaved, now, now,
		).Scan(&id)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to upsert track %s: %w", track.ProviderID, err)
		}

		ids = append(ids, id)
		if !existing[track.UserID+"\x00"+track.ProviderID] {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit track upsert: %w", err)
	}

	return ids, created, nil
}

// Purge deletes the user's tracks matching the filters and returns the number
// of rows removed.
func (r *TrackRepository) Purge(ctx context.Context, userID string, filters PurgeFilters) (int64, error) {
	query := "DELETE FROM tracks WHERE user_id = ?" + filters.whereClause()

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tracks: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return deleted, nil
}
