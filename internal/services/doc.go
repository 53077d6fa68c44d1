// Package services contains the remote provider clients and the per-user Spotify session.
//
// # Components
//
//   - [SpotifyClient] : authenticated HTTP access to the Spotify user API, owning the
//     OAuth token lifecycle (code exchange, refresh) and the retry/backoff policy
//     (exponential backoff on network errors and 5xx, Retry-After handling on 429,
//     one reactive refresh on 401)
//   - [SpotifyUserSession] : binds one user's credentials to the client and exposes
//     the four library fetch operations (top artists, top tracks, saved tracks,
//     playlist tracks) over a shared paginated fetch engine
//   - [SpotifySessionFactory] : validates account linkage and constructs sessions
//   - [LastFMClient] : single-call similarity lookup against the Last.fm API
//
// The session owns token persistence side effects: a refreshed credential is written
// back through [UserTokenStore] only when the access token value actually changed.
package services
