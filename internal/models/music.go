package models

// TrackArtist identifies an artist contributing to a track.
type TrackArtist struct {
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
}

// Artist represents a synced artist for one user.
//
// TopPosition is the 1-based rank within the fetched top-artist ordering;
// zero means unranked.
type Artist struct {
	ProviderID  string
	UserID      string
	Name        string
	Popularity  int
	Genres      []string
	IsTop       bool
	TopPosition int
}

// Track represents a synced track for one user.
//
// IsTop and IsSaved are independent; a track with neither flag set came from a
// playlist. TopPosition follows the same convention as [Artist.TopPosition].
type Track struct {
	ProviderID  string
	UserID      string
	Name        string
	Popularity  int
	Artists     []TrackArtist
	IsTop       bool
	TopPosition int
	IsSaved     bool
}
