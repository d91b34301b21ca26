package httpx

import (
	"errors"
	"net/http"
)

// Stable error kinds exposed to API consumers. Domain packages map their
// sentinel errors onto one of these before a response crosses the boundary.
const (
	KindUnmappedCategory = "unmapped-category"
	KindUnbalancedEntry  = "unbalanced-entry"
	KindInvalidAmount    = "invalid-amount"
	KindNotFound         = "not-found"
	KindDuplicate        = "duplicate"
	KindStaleReference   = "stale-reference"
	KindValidation       = "validation-failed"
	KindInternal         = "internal"
)

// Sentinel errors for handlers without a richer domain taxonomy.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps generic errors to HTTP responses. Handlers with
// domain-specific taxonomies call Problem directly with their own kind.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, KindNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, KindDuplicate, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, KindValidation, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, KindInternal, "Internal Error", "")
	}
}
