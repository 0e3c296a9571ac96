package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrTemporary          = errors.New("temporary failure")
	ErrOracleUnavailable  = errors.New("oracle unavailable")
	ErrEmptyCorpus        = errors.New("empty corpus")
	ErrNoAnswer           = errors.New("no answer")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrSessionNotFound    = errors.New("session not found")
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
