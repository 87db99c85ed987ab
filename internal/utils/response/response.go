// Package response provides helpers for writing consistent HTTP responses.
//
// Success responses may be any JSON shape (a user, a list, null…).
// Error responses always look like:
//
//	{ "error": "Bad Request", "kind": "validation",
//	  "fields": [ { "field": "email", "message": "must be a valid email address" } ] }
//
// "error" is always the standard status text, so no internal detail ever
// reaches the client. "kind" is a stable tag clients and tests can match on.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/go-playground/validator/v10"
)

// Kind classifies an API error. Each kind maps to exactly one status code.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindInvalidID        Kind = "invalid_id"
	KindRejected         Kind = "rejected"
	KindNotFound         Kind = "not_found"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInternal         Kind = "internal"
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidID, KindRejected:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the JSON body of every error response.
type Error struct {
	Error  string       `json:"error"`
	Kind   Kind         `json:"kind"`
	Fields []FieldError `json:"fields,omitempty"`
}

// APIError is an error that knows how it is rendered.
// Cause is logged but never sent to the client.
type APIError struct {
	Kind   Kind
	Fields []FieldError
	Cause  error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Status returns the HTTP status code of the error.
func (e *APIError) Status() int { return e.Kind.Status() }

// Body returns the JSON body for the error.
func (e *APIError) Body() Error {
	status := e.Status()
	return Error{
		Error:  http.StatusText(status),
		Kind:   e.Kind,
		Fields: e.Fields,
	}
}

// New returns an APIError of the given kind wrapping cause.
func New(kind Kind, cause error) *APIError {
	return &APIError{Kind: kind, Cause: cause}
}

// FromStorageError classifies an error returned by the storage layer.
//
// The sentinel errors of package storage map to fixed kinds; anything
// else becomes fallback. Create uses KindRejected as fallback (a failed
// write answers 400), reads and deletes use KindInternal.
func FromStorageError(err error, fallback Kind) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return New(KindInvalidID, err)
	case errors.Is(err, storage.ErrNotFound):
		return New(KindNotFound, err)
	case errors.Is(err, storage.ErrInvalidEntity), errors.Is(err, storage.ErrDuplicate):
		return New(KindRejected, err)
	case errors.Is(err, storage.ErrUnavailable):
		return New(KindStoreUnavailable, err)
	default:
		return New(fallback, err)
	}
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteText writes a plain-text response.
func WriteText(w http.ResponseWriter, status int, text string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(text))
	return err
}

// WriteError renders err as an error response.
//
// Non-APIError values are treated as KindInternal. 5xx responses are
// logged at ERROR with the cause, 4xx at DEBUG.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = New(KindInternal, err)
	}

	status := apiErr.Status()
	attrs := []any{
		slog.Int("status", status),
		slog.String("kind", string(apiErr.Kind)),
	}
	if apiErr.Cause != nil {
		attrs = append(attrs, slog.String("error", apiErr.Cause.Error()))
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Debug("request rejected", attrs...)
	}

	if err := WriteJSON(w, status, apiErr.Body()); err != nil {
		log.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// ValidationError converts validator.ValidationErrors into an APIError
// with one FieldError per failing field. Field names come from the json
// tags when the validator was set up with RegisterTagNameFunc.
func ValidationError(errs validator.ValidationErrors) *APIError {
	fields := make([]FieldError, 0, len(errs))

	for _, e := range errs {
		var msg string
		switch e.ActualTag() {
		// "required" tag: field was missing or zero-valued
		case "required":
			msg = "is required"
		// "email" tag: field did not match email format
		case "email":
			msg = "must be a valid email address"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", e.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", e.Param())
		case "gte":
			msg = fmt.Sprintf("must be greater than or equal to %s", e.Param())
		case "lte":
			msg = fmt.Sprintf("must be less than or equal to %s", e.Param())
		// Catch-all for any other validation tag
		default:
			msg = "is invalid"
		}
		fields = append(fields, FieldError{Field: e.Field(), Message: msg})
	}

	return &APIError{Kind: KindValidation, Fields: fields, Cause: errs}
}
