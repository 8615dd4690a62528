package pipeline

import "errors"

// ErrInvalidCount is returned when the requested color count is not positive.
// It is the only input validation failure; every other error is a processing failure.
var ErrInvalidCount = errors.New("count must be greater than 0")

// IsInvalidInput reports whether err is an input validation failure rather
// than a processing failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidCount)
}
