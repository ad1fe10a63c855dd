package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network error")

	// ErrMergeAborted is returned when a conflict resolver fails.
	ErrMergeAborted = errors.New("merge aborted")

	// ErrDocumentTooLarge is wrapped by the read NetworkError of Fetch when a
	// peer sends more than MaxDocumentSize bytes without a newline.
	ErrDocumentTooLarge = errors.New("document too large")
)

// NetworkError reports a connection failure or unexpected disconnect.
// Sync never retries.
type NetworkError struct {
	// Op is the failed step: "listen", "accept", "dial" or "read".
	Op string

	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("sync: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
