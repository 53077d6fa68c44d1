package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// UserRepository persists [models.User] records and their linked Spotify accounts.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with a generated ID and sequence number.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	user.ID = shared.GenerateID()
	user.Sequence = sequence
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, sequence, email, name, spotify_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query, user.ID, user.Sequence, user.Email, user.Name, user.SpotifyState, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", shared.ErrEmailAlreadyExists, user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

const userSelect = `
	SELECT u.id, u.sequence, u.email, u.name, u.spotify_state, u.created_at, u.updated_at,
	       a.id, a.token_type, a.token_access, a.token_refresh, a.token_expires_at, a.created_at, a.updated_at
	FROM users u
	LEFT JOIN spotify_accounts a ON a.user_id = u.id
`

// GetByID retrieves a user and any linked Spotify account by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, userSelect+" WHERE u.id = ?", id)
}

// GetByEmail retrieves a user and any linked Spotify account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, userSelect+" WHERE u.email = ?", email)
}

// FindBySpotifyState retrieves the user holding the given transient OAuth state token.
func (r *UserRepository) FindBySpotifyState(ctx context.Context, state string) (*models.User, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty state token", shared.ErrUserNotFound)
	}
	return r.getOne(ctx, userSelect+" WHERE u.spotify_state = ?", state)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user           models.User
		accountID      sql.NullString
		tokenType      sql.NullString
		tokenAccess    sql.NullString
		tokenRefresh   sql.NullString
		tokenExpiresAt sql.NullTime
		accountCreated sql.NullTime
		accountUpdated sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Sequence, &user.Email, &user.Name, &user.SpotifyState, &user.CreatedAt, &user.UpdatedAt,
		&accountID, &tokenType, &tokenAccess, &tokenRefresh, &tokenExpiresAt, &accountCreated, &accountUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %v", shared.ErrUserNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if accountID.Valid {
		user.SpotifyAccount = &models.SpotifyAccount{
			ID:             accountID.String,
			UserID:         user.ID,
			TokenType:      tokenType.String,
			TokenAccess:    tokenAccess.String,
			TokenRefresh:   tokenRefresh.String,
			TokenExpiresAt: tokenExpiresAt.Time,
			CreatedAt:      accountCreated.Time,
			UpdatedAt:      accountUpdated.Time,
		}
	}

	return &user, nil
}

// Update persists the user's mutable fields, and the linked account's token
// fields when an account is present.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		"UPDATE users SET email = ?, name = ?, spotify_state = ?, updated_at = ? WHERE id = ?",
		user.Email, user.Name, user.SpotifyState, now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user.ID)
	}

	if user.SpotifyAccount != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE spotify_accounts
			SET token_type = ?, token_access = ?, token_refresh = ?, token_expires_at = ?, updated_at = ?
			WHERE user_id = ?
		`, user.SpotifyAccount.TokenType, user.SpotifyAccount.TokenAccess, user.SpotifyAccount.TokenRefresh,
			user.SpotifyAccount.TokenExpiresAt, now, user.ID)
		if err != nil {
			return fmt.Errorf("failed to update spotify account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}

	user.UpdatedAt = now
	return nil
}

// SetSpotifyState stores a transient OAuth state token on the user for the
// duration of a connect flow.
func (r *UserRepository) SetSpotifyState(ctx context.Context, userID, state string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET spotify_state = ?, updated_at = ? WHERE id = ?",
		state, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set spotify state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}

	return nil
}

// LinkSpotifyAccount upserts the user's Spotify account from an exchanged
// token and clears the transient state token.
func (r *UserRepository) LinkSpotifyAccount(ctx context.Context, userID string, ts models.TokenState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := `
		INSERT INTO spotify_accounts (id, user_id, token_type, token_access, token_refresh, token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			token_type = excluded.token_type,
			token_access = excluded.token_access,
			token_refresh = excluded.token_refresh,
			token_expires_at = excluded.token_expires_at,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query, shared.GenerateID(), userID, ts.TokenType, ts.AccessToken, ts.RefreshToken, ts.ExpiresAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert spotify account: %w", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE users SET spotify_state = '', updated_at = ? WHERE id = ?", now, userID)
	if err != nil {
		return fmt.Errorf("failed to clear spotify state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account link: %w", err)
	}

	return nil
}

// UpdateSpotifyAccount writes a refreshed credential back to the linked account.
func (r *UserRepository) UpdateSpotifyAccount(ctx context.Context, userID string, ts models.TokenState) error {
	query := `
		UPDATE spotify_accounts
		SET token_type = ?, token_access = ?, token_refresh = ?, token_expires_at = ?, updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, ts.TokenType, ts.AccessToken, ts.RefreshToken, ts.ExpiresAt, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update spotify account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: no linked account for user %s", shared.ErrSpotifyAccountNotFound, userID)
	}

	return nil
}
