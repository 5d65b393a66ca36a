package httpx

import (
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP responses using RFC7807.
// Business-rule failures keep their message; storage failures are generic.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	detail := shared.UserSafeMessage(err)
	switch kind {
	case shared.KindValidation:
		Problem(w, http.StatusBadRequest, "Validation Failed", detail, string(kind))
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", detail, string(kind))
	case shared.KindInvalidTransition, shared.KindAlreadyMatched:
		Problem(w, http.StatusConflict, "Invalid Transition", detail, string(kind))
	case shared.KindMissingLinkage:
		Problem(w, http.StatusUnprocessableEntity, "Missing Linkage", detail, string(kind))
	case shared.KindConfiguration:
		Problem(w, http.StatusUnprocessableEntity, "Configuration Error", detail, string(kind))
	case shared.KindConcurrencyConflict:
		Problem(w, http.StatusConflict, "Concurrency Conflict", detail, string(kind))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", detail, string(shared.KindPersistence))
	}
}
