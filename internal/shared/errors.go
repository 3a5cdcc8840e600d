package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("session token expired")

	// Sync and remote errors
	ErrRemote         = fmt.Errorf("remote sync failed")
	ErrSyncInProgress = fmt.Errorf("sync already in progress")

	// Library errors
	ErrNotFound       = fmt.Errorf("record not found")
	ErrSystemPlaylist = fmt.Errorf("system playlists cannot be deleted")
	ErrInvalidBackup  = fmt.Errorf("invalid backup file")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// RemoteError is returned when the sync endpoint answers with anything other than success.
//
// It unwraps to [ErrRemote] so callers can match with [errors.Is].
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", ErrRemote, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: %s (status %d)", ErrRemote, e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("%v: %s", ErrRemote, e.Message)
	}
}

func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRemote, e.Err}
	}
	return []error{ErrRemote}
}

// NewRemoteError wraps a transport failure (or a failure message) as a [RemoteError].
func NewRemoteError(status int, message string, err error) *RemoteError {
	return &RemoteError{StatusCode: status, Message: message, Err: err}
}

// AsRemoteError reports whether err carries a [RemoteError] and returns it.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
