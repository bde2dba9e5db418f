package archive

import (
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrPasswordRequired is returned when an archive is encrypted and no password was supplied
	ErrPasswordRequired = errors.Base("archive password required")

	// ErrInvalidPassword is returned when the supplied password is rejected
	ErrInvalidPassword = errors.Base("invalid archive password")

	// ErrUnsupportedFormat is returned for file names with no known archive suffix
	ErrUnsupportedFormat = errors.Base("unsupported archive format")

	// ErrWorkerPanicked is returned by Wait when the worker goroutine panicked
	ErrWorkerPanicked = errors.Base("archive worker panicked")

	// ErrSevenZipUnavailable is returned when creating a 7z archive without a 7z executable
	ErrSevenZipUnavailable = errors.Base("7z executable not found")
)

// ListError is a generic listing failure: the container could not be read
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return "failed to list archive " + e.Path + ": " + e.Err.Error()
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// IsPasswordError reports whether err asks the caller to prompt for a password
func IsPasswordError(err error) bool {
	return errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrInvalidPassword)
}
