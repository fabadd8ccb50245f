package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"subtrack/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (1 MB).
const maxRequestBodySize = 1 << 20 // 1 MB

// legacyError is the error body the demo clients and the billing provider's
// retry logic key off: a single short label, nothing else.
type legacyError struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code and data.
// If marshalling fails, it falls back to a 500 with a legacy error body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		// Known-safe literal; nothing more we can do if this write fails.
		_, _ = w.Write([]byte(`{"error":"InternalError"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes an error response in the legacy wire contract:
//   - Expected outcomes (validation, unknown token, no subscription) map to
//     HTTP 200 with {"error":"<Label>"}.
//   - A bad webhook credential maps to 401 {"ok":false}, so the provider
//     stops retrying instead of treating the delivery as transient.
//   - Internal failures (and generic non-AppError errors) map to 500 with a
//     generic body. Wrapped error details are never exposed to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		if status == http.StatusUnauthorized {
			JSON(w, r, status, map[string]bool{"ok": false})
			return
		}
		JSON(w, r, status, legacyError{Error: appErr.Code.Label()})
		return
	}

	JSON(w, r, http.StatusInternalServerError, legacyError{Error: "InternalError"})
}

// DecodeJSON reads the request body into dst, enforcing a 1 MB size cap and
// rejecting bodies with trailing JSON values. Unknown fields are tolerated:
// billing provider payloads carry fields the demo does not model.
//
// It returns a *types.AppError with a validation code on malformed, empty,
// or oversized bodies; handlers surface these as a 200 BadRequest per the
// legacy contract.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}

	if dec.More() {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"request body must contain a single JSON object",
			nil,
		)
	}

	return nil
}

// mapDecodeError translates a json.Decoder error into a structured AppError.
func mapDecodeError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"request body must not exceed 1MB",
			err,
		)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"malformed JSON in request body",
			err,
		)
	}

	var unmarshalTypeErr *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeErr) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"invalid value for field",
			err,
			map[string]any{
				"field":    unmarshalTypeErr.Field,
				"expected": unmarshalTypeErr.Type.String(),
			},
		)
	}

	if errors.Is(err, io.EOF) {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"request body must not be empty",
			err,
		)
	}

	return types.NewAppError(
		types.ErrCodeValidationMissingField,
		"invalid JSON in request body",
		err,
	)
}
