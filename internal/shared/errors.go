package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed             = fmt.Errorf("authentication failed")
	ErrTokenExchange          = fmt.Errorf("token exchange failed")
	ErrTokenRefresh           = fmt.Errorf("token refresh failed")
	ErrTimeout                = fmt.Errorf("operation timed out")
	ErrSpotifyAccountNotFound = fmt.Errorf("spotify account not linked")
	ErrUserNotFound           = fmt.Errorf("user not found")
	ErrEmailAlreadyExists     = fmt.Errorf("email already exists")

	// API and service errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrPageValidation = fmt.Errorf("page validation failed")
	ErrSyncFailed     = fmt.Errorf("sync completed with errors")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
