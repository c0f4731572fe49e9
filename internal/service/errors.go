package service

import "errors"

var (
	// ErrStoryComplete signals a terminal session: the turn limit was
	// reached and only reset is allowed.
	ErrStoryComplete = errors.New("story is complete: maximum turns reached")

	// ErrRateLimited signals a local policy rejection; no network call
	// was made and no session state was mutated.
	ErrRateLimited = errors.New("rate limit exceeded, please wait before trying again")

	// ErrServiceUnavailable signals a local precondition failure: a
	// dependent client was not initialized.
	ErrServiceUnavailable = errors.New("story services are not initialized")
)

// ValidationError rejects input before any network call or mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
