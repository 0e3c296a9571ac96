package qdrant

import (
	"fmt"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "qdrant status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, e.Body)
}

// Transient is true for statuses qdrant returns while overloaded or restarting.
func (e *HTTPStatusError) Transient() bool {
	return resilience.RetryableStatus(e.StatusCode)
}

// callPolicy leaves the breaker alone when a collection is simply missing.
var callPolicy = resilience.Policy{
	Ignored: func(err error) bool { return domain.IsKind(err, domain.ErrCollectionNotFound) },
}
