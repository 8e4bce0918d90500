// Package usecase implements the orchestrator contract of spec.md §4.9:
// authorize against a Profile, invoke repositories, emit webhook
// events, and return a Result that maps uniformly to HTTP status.
package usecase

import "net/http"

// Result is the closed enum every use case returns (spec.md §4.9).
type Result string

const (
	Created    Result = "created"
	NotCreated Result = "not_created"
	Updated    Result = "updated"
	NotUpdated Result = "not_updated"
	Deleted    Result = "deleted"
	NotDeleted Result = "not_deleted"
	Found      Result = "found"
	NotFound   Result = "not_found"
)

// HTTPStatus maps a Result to its edge status code.
func (r Result) HTTPStatus() int {
	switch r {
	case Created:
		return http.StatusCreated
	case NotCreated, NotUpdated, NotDeleted:
		return http.StatusConflict
	case Updated, Deleted, Found:
		return http.StatusOK
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
