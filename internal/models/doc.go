// Package models defines the domain entities for the Spotify library sync service.
//
// The package contains three categories of types:
//
// 1. OAuth credential state:
//   - [TokenState] : Immutable bearer credential with absolute expiry
//   - [SpotifyAccount] : Persisted linked-account token fields, owned 1:1 by a [User]
//
// 2. Identity:
//   - [User] : Account record resolved by email, carrying the optional linked Spotify account
//
// 3. Music entities produced by a sync run:
//   - [Artist] : Top artist with rank and genre metadata
//   - [Track] : Track with contributing artists and top/saved flags
//
// Artists and tracks are value objects rebuilt on every fetch; storage identity is the
// (user id, provider id) pair, with surrogate ids assigned by the repositories.
package models
