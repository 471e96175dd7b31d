package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrievalUnavailable marks a vector index that is unreachable or
	// rejected the query. It triggers the text fallback and is never
	// surfaced to the end user as a failure.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrMalformedRecord marks a stored record that failed to parse. The
	// record is skipped; the batch continues.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrRecordUnavailable marks the record store itself being unreachable.
	// This is the only condition the retrieval core propagates.
	ErrRecordUnavailable = errors.New("record store unavailable")

	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTemporary      = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
