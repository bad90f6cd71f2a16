package twap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParam represents an invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrUnsupportedChain is returned when no TWAP deployment is known for a chain
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrOrdersUnavailable is returned once order history fetching gave up
	ErrOrdersUnavailable = errors.New("orders unavailable")

	// ErrNotFound represents a missing order or cache entry
	ErrNotFound = errors.New("not found")

	// ErrUnresolvedOrder is returned when a submission is built from unresolved parameters
	ErrUnresolvedOrder = errors.New("order parameters unresolved")
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

func (e *InvalidParamError) Is(target error) bool {
	return target == ErrInvalidParam
}

// IndexerError represents a non-success response from the order indexer
type IndexerError struct {
	StatusCode int
	Message    string
}

func (e *IndexerError) Error() string {
	return fmt.Sprintf("indexer HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request may succeed
func (e *IndexerError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
