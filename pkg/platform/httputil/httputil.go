// Package httputil holds the JSON response and request helpers shared by
// handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "fedcore/pkg/domain-errors"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// Validatable request bodies check and normalize themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps err's domain code to a status. Internal errors never expose
// their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
		}
	}
	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the JSON body into T and validates it. On failure
// it writes the error response and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := PT(new(T))
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request", "request_id", requestID, "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json payload"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return nil, false
	}
	return (*T)(req), true
}
