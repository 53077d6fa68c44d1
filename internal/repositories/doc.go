// Package repositories provides the SQLite persistence layer.
//
// [UserRepository] stores accounts and their linked Spotify credentials.
// [ArtistRepository] and [TrackRepository] store synced library entities keyed
// by (user_id, provider_id) and implement the bulk-upsert reconciliation the
// sync pipeline depends on: every upserted row is classified exactly as
// created or updated, and purges honor the top/saved/playlist sub-filters.
package repositories
