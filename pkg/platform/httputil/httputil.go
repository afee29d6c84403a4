// Package httputil holds the JSON response helpers shared by HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "tavola/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// Validatable is implemented by request DTOs that check their own fields.
type Validatable interface {
	Validate() error
}

// reasoned is implemented by domain errors that carry a finer-grained
// discriminant than their code.
type reasoned interface {
	Reason() string
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusUnprocessableEntity,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a JSON error body. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.MessageOf(err)
		var r reasoned
		if errors.As(err, &r) {
			body["reason"] = r.Reason()
		}
	}
	WriteJSON(w, StatusFor(err), body)
}

// DecodeAndPrepare decodes a JSON body into T and runs its validation. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err)))
			return nil, false
		}
	}
	return &req, true
}
