package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned for tab indexes out of range, or removals
	// that would leave the session without tabs
	ErrInvalidIndex = errors.New("invalid tab index")

	// ErrStaleResponse is returned when a response arrives for a request
	// that has since been superseded by a newer submission, load or reset
	ErrStaleResponse = errors.New("stale response")
)

// PayloadTooLargeError blocks a submission whose tab exceeds the code size limit
type PayloadTooLargeError struct {
	Index int
	Title string
	Size  int
	Max   int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("code in %q is %d characters long, maximum is %d", e.Title, e.Size, e.Max)
}

func indexError(i, n int) error {
	return fmt.Errorf("%w: %d (session has %d tabs)", ErrInvalidIndex, i, n)
}
