package cleanup

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPage is returned when the remote answers a listing request
	// without a usable result. It is never treated as an empty page.
	ErrInvalidPage = errors.New("invalid listing result")

	// ErrInvalidConfig is returned by Config.Validate and by Run before any
	// remote call when the limits are unusable.
	ErrInvalidConfig = errors.New("invalid cleanup config")

	// ErrDeleteFailed is wrapped by every DeleteError.
	ErrDeleteFailed = errors.New("delete failed")
)

// DeleteError describes a delete that did not end in StatusDeleted.
type DeleteError struct {
	Item   CandidateItem
	Status int
	Err    error
}

// Error implements the error interface.
func (e *DeleteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Something went wrong while deleting workflow %q with ID:%d. Status code: %d: %v",
			e.Item.DisplayLabel(), e.Item.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("Something went wrong while deleting workflow %q with ID:%d. Status code: %d",
		e.Item.DisplayLabel(), e.Item.ID, e.Status)
}

// Unwrap exposes the transport error and ErrDeleteFailed to errors.Is/As.
func (e *DeleteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDeleteFailed, e.Err}
	}
	return []error{ErrDeleteFailed}
}
