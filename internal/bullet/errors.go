package bullet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex means a delete request had a token that is not an
	// integer, or no tokens at all.
	ErrInvalidIndex = errors.New("invalid bullet index")

	// ErrIndexNotFound means a requested position has no note in the view.
	ErrIndexNotFound = errors.New("bullet not found")

	// ErrDeleteMismatch means the store deleted a different number of notes
	// than were resolved. The whole delete is rolled back.
	ErrDeleteMismatch = errors.New("deleted bullet count mismatch")
)

// IndexError reports the first requested position that did not resolve.
// Pos is where it appeared in the request.
type IndexError struct {
	Index int
	Pos   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bullet %d not found", e.Index)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexNotFound
}
