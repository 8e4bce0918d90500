package merr

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// wireError is the JSON body written for every non-2xx response.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteHTTP renders err as the gateway's standard error envelope and logs
// it. Unexpected errors never leak their message to the client; expected
// ones (duplicate resources, bad input) do.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	domainErr, ok := As(err)
	if !ok {
		domainErr = ErrInternal.Wrap(err)
	}

	if domainErr.Expected || domainErr.Kind == KindBadRequest || domainErr.Kind == KindForbidden ||
		domainErr.Kind == KindUnauthorized || domainErr.Kind == KindMethodNotAllowed {
		slog.WarnContext(r.Context(), "request_error",
			"code", domainErr.Code, "path", r.URL.Path, "method", r.Method)
	} else {
		slog.ErrorContext(r.Context(), "request_error",
			"code", domainErr.Code, "path", r.URL.Path, "method", r.Method, "cause", domainErr.Unwrap())
	}

	body := wireError{Code: domainErr.Code, Message: domainErr.Message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domainErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(body)
}
