package httpadapter

import (
	"net/http"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound),
		domain.IsKind(err, domain.ErrCollectionNotFound),
		domain.IsKind(err, domain.ErrEmptyCorpus):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoAnswer):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
